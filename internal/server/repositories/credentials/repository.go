// Package credentials declares and implements storage for the
// mobile-number/password-hash rows that root every account.
package credentials

import (
	"context"

	"github.com/dmitrijs2005/townsquare/internal/server/models"
)

// Repository defines credential persistence.
type Repository interface {
	// Create inserts c and fills in its generated ID and timestamps. A
	// duplicate mobile number surfaces as a unique violation from the store.
	Create(ctx context.Context, c *models.Credential) (*models.Credential, error)

	// GetByMobileNumber returns common.ErrorNotFound when nothing matches.
	GetByMobileNumber(ctx context.Context, mobileNumber string) (*models.Credential, error)

	// GetByID returns common.ErrorNotFound when nothing matches.
	GetByID(ctx context.Context, id string) (*models.Credential, error)

	// Lock takes a row lock on the credential for the rest of the
	// surrounding transaction.
	Lock(ctx context.Context, id string) error

	UpdatePasswordHash(ctx context.Context, id string, hash string) error
}
