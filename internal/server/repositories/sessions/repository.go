// Package sessions persists opaque session tokens and their lifecycle flags.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/townsquare/internal/server/models"
)

// Repository defines session persistence. At most one session per user may
// be active; the store rejects a second active row.
type Repository interface {
	Create(ctx context.Context, userID string, token string, expiresAt time.Time) error

	// Find returns common.ErrorNotFound for an unknown token.
	Find(ctx context.Context, token string) (*models.Session, error)

	// DeactivateForUser marks every active session of userID inactive and
	// returns their tokens.
	DeactivateForUser(ctx context.Context, userID string) ([]string, error)

	// Deactivate marks one active session inactive. It returns the owning
	// user id, or common.ErrorNotFound when no active session matched.
	Deactivate(ctx context.Context, token string) (string, error)

	// Extend moves expires_at of an active session that is still valid at
	// now. It reports whether a row changed.
	Extend(ctx context.Context, token string, expiresAt time.Time, now time.Time) (bool, error)

	// ListForUser returns newest first.
	ListForUser(ctx context.Context, userID string) ([]*models.Session, error)
}
