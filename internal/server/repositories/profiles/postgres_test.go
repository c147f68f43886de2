package profiles

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/townsquare/internal/common"
	"github.com/dmitrijs2005/townsquare/internal/dbx"
	"github.com/dmitrijs2005/townsquare/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate(t *testing.T) {
	q := `(?s)INSERT\s+INTO\s+profiles\s*\(id,\s*full_name,\s*username\).*RETURNING\s+created_at,\s*updated_at`

	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		now := time.Now()
		mock.ExpectQuery(q).WithArgs("u1", "Ada L", "ada").
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		p := &models.Profile{ID: "u1", FullName: "Ada L", Username: "ada"}
		require.NoError(t, repo.Create(context.Background(), p))
		assert.Equal(t, now, p.CreatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("username clash keeps pg error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("u1", "Ada L", "ADA").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "profiles_username_lower_key"})

		err := repo.Create(context.Background(), &models.Profile{ID: "u1", FullName: "Ada L", Username: "ADA"})
		name, ok := dbx.UniqueViolation(err)
		assert.True(t, ok)
		assert.Equal(t, "profiles_username_lower_key", name)
	})
}

func TestGet(t *testing.T) {
	q := `(?s)SELECT\s+id,\s*full_name,.*FROM\s+profiles\s+WHERE\s+id\s*=\s*\$1`
	cols := []string{"id", "full_name", "username", "bio", "location", "avatar_url",
		"is_online", "is_blocked", "chat_disabled", "created_at", "updated_at"}

	t.Run("found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		now := time.Now()
		mock.ExpectQuery(q).WithArgs("u1").WillReturnRows(
			sqlmock.NewRows(cols).AddRow("u1", "Ada L", "ada", "bio", "Riga", "", true, false, true, now, now))

		p, err := repo.Get(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "ada", p.Username)
		assert.Equal(t, "Riga", p.Location)
		assert.True(t, p.IsOnline)
		assert.False(t, p.IsBlocked)
		assert.True(t, p.ChatDisabled)
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("u1").WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), "u1")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("u1").WillReturnError(errors.New("conn reset"))

		_, err := repo.Get(context.Background(), "u1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestUsernameTaken_IsCaseInsensitiveQuery(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `lower\(username\)\s*=\s*lower\(\$1\)`

	mock.ExpectQuery(q).WithArgs("Ada").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	taken, err := repo.UsernameTaken(context.Background(), "Ada")
	require.NoError(t, err)
	assert.True(t, taken)

	mock.ExpectQuery(q).WithArgs("bob").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	taken, err = repo.UsernameTaken(context.Background(), "bob")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestFlagUpdates(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE\s+profiles\s+SET\s+is_online\s*=\s*\$1`).WithArgs(true, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetOnline(ctx, "u1", true))

	mock.ExpectExec(`UPDATE\s+profiles\s+SET\s+is_blocked\s*=\s*\$1`).WithArgs(true, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetBlocked(ctx, "u1", true))

	mock.ExpectExec(`UPDATE\s+profiles\s+SET\s+avatar_url\s*=\s*\$1`).WithArgs("https://cdn/x", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetAvatarURL(ctx, "u1", "https://cdn/x"))

	mock.ExpectExec(`UPDATE\s+profiles\s+SET\s+is_online`).WithArgs(false, "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SetOnline(ctx, "ghost", false), common.ErrorNotFound)

	mock.ExpectExec(`UPDATE\s+profiles\s+SET\s+is_online`).WithArgs(false, "u1").
		WillReturnError(errors.New("boom"))
	assert.Error(t, repo.SetOnline(ctx, "u1", false))

	require.NoError(t, mock.ExpectationsWereMet())
}
