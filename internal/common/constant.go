// Package common contains shared constants and sentinel errors used across
// townsquare components.
package common

import "time"

// SessionTokenHeaderName is the HTTP header (and, lower-cased, the gRPC
// metadata key) that carries the opaque session token.
const SessionTokenHeaderName = "X-Session-Token"

// SessionTokenMetadataKey is the gRPC metadata key for the session token.
const SessionTokenMetadataKey = "x-session-token"

// SessionTokenBytes is the amount of randomness behind one session token.
const SessionTokenBytes = 32

// DefaultSessionValidity is how long a session lives without a refresh.
const DefaultSessionValidity = 30 * 24 * time.Hour

// RoleAdmin grants access to the admin console.
const RoleAdmin = "admin"

// RoleModerator grants chat moderation rights.
const RoleModerator = "moderator"
