package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/townsquare/internal/client/models"
	"github.com/dmitrijs2005/townsquare/internal/common"
	"github.com/dmitrijs2005/townsquare/internal/dbx"
)

// Keys of the stored session.
const (
	KeySessionToken = "session_token"
	KeyUserID       = "user_id"
	KeyMobileNumber = "mobile_number"
	KeyUsername     = "username"
	KeyRefreshedAt  = "refreshed_at"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns (nil, nil) for an absent key.
func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM metadata`)
	if err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) LoadSession(ctx context.Context) (*models.Session, error) {
	token, err := r.Get(ctx, KeySessionToken)
	if err != nil {
		return nil, err
	}
	if len(token) == 0 {
		return nil, common.ErrorNotFound
	}

	s := &models.Session{Token: string(token)}
	for key, dst := range map[string]*string{
		KeyUserID:       &s.UserID,
		KeyMobileNumber: &s.MobileNumber,
		KeyUsername:     &s.Username,
	} {
		v, err := r.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		*dst = string(v)
	}

	v, err := r.Get(ctx, KeyRefreshedAt)
	if err != nil {
		return nil, err
	}
	if len(v) > 0 {
		if s.RefreshedAt, err = time.Parse(time.RFC3339Nano, string(v)); err != nil {
			return nil, fmt.Errorf("failed to parse metadata[%s]: %w", KeyRefreshedAt, err)
		}
	}

	return s, nil
}

// SaveSession overwrites the stored session. Pass a transaction as the
// repository's DBTX when the write must be atomic.
func (r *SQLiteRepository) SaveSession(ctx context.Context, s *models.Session) error {
	values := []struct {
		key   string
		value string
	}{
		{KeySessionToken, s.Token},
		{KeyUserID, s.UserID},
		{KeyMobileNumber, s.MobileNumber},
		{KeyUsername, s.Username},
		{KeyRefreshedAt, s.RefreshedAt.UTC().Format(time.RFC3339Nano)},
	}
	for _, v := range values {
		if err := r.Set(ctx, v.key, []byte(v.value)); err != nil {
			return err
		}
	}
	return nil
}
