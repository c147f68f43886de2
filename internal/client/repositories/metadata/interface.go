// Package metadata persists the CLI's session in the local SQLite store as
// key/value rows.
package metadata

import (
	"context"

	"github.com/dmitrijs2005/townsquare/internal/client/models"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error

	// LoadSession returns common.ErrorNotFound when no session is stored.
	LoadSession(ctx context.Context) (*models.Session, error)
	SaveSession(ctx context.Context, s *models.Session) error
}
