// Package roles stores role grants (admin, moderator) per user.
package roles

import "context"

type Repository interface {
	List(ctx context.Context, userID string) ([]string, error)
	// Grant is idempotent.
	Grant(ctx context.Context, userID string, role string) error
	// Revoke reports whether the user had the role.
	Revoke(ctx context.Context, userID string, role string) (bool, error)
}
