package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/townsquare/internal/common"
	"github.com/dmitrijs2005/townsquare/internal/dbx"
	"github.com/dmitrijs2005/townsquare/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (id, full_name, username)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRowContext(ctx, query, p.ID, p.FullName, p.Username).Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Profile, error) {
	query := `
		SELECT id, full_name, username, bio, location, avatar_url,
		       is_online, is_blocked, chat_disabled, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`
	p := &models.Profile{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.FullName, &p.Username, &p.Bio, &p.Location, &p.AvatarURL,
		&p.IsOnline, &p.IsBlocked, &p.ChatDisabled, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM profiles WHERE lower(username) = lower($1))`

	var taken bool
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&taken); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return taken, nil
}

func (r *PostgresRepository) SetOnline(ctx context.Context, id string, online bool) error {
	return r.update(ctx, `UPDATE profiles SET is_online = $1, updated_at = now() WHERE id = $2`, online, id)
}

func (r *PostgresRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	return r.update(ctx, `UPDATE profiles SET is_blocked = $1, updated_at = now() WHERE id = $2`, blocked, id)
}

func (r *PostgresRepository) SetAvatarURL(ctx context.Context, id string, url string) error {
	return r.update(ctx, `UPDATE profiles SET avatar_url = $1, updated_at = now() WHERE id = $2`, url, id)
}

// update runs a single-row UPDATE and reports common.ErrorNotFound when no
// row matched.
func (r *PostgresRepository) update(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
