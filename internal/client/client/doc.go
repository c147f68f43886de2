// Package client contains the CLI's transport to the townsquare auth server.
//
// # Overview
//
// The package provides:
//  1. The Client contract covering signup, signin, session validation,
//     refresh, logout, avatar upload URLs and a liveness probe.
//  2. HTTPClient, its implementation over the server's JSON API. The session
//     token travels in the X-Session-Token header.
//  3. InitDatabase and RunMigrations, which open the local SQLite store that
//     keeps the session between runs.
//
// # Error Handling
//
// Transport failures wrap ErrUnavailable. Non-2xx replies are *APIError; it
// matches ErrUnauthorized, ErrForbidden, ErrTooManyAttempts or ErrUnavailable
// with errors.Is according to its status.
package client
