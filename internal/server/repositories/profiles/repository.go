// Package profiles stores the public per-user attributes keyed by the
// credential id.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/townsquare/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Profile) error
	// Get returns common.ErrorNotFound when the profile does not exist.
	Get(ctx context.Context, id string) (*models.Profile, error)
	// UsernameTaken compares case-insensitively.
	UsernameTaken(ctx context.Context, username string) (bool, error)
	SetOnline(ctx context.Context, id string, online bool) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
	SetAvatarURL(ctx context.Context, id string, url string) error
}
