package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
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

func TestList(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `SELECT\s+role\s+FROM\s+user_roles\s+WHERE\s+user_id\s*=\s*\$1`

	mock.ExpectQuery(q).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("admin").AddRow("moderator"))
	got, err := repo.List(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "moderator"}, got)

	mock.ExpectQuery(q).WithArgs("u2").WillReturnRows(sqlmock.NewRows([]string{"role"}))
	got, err = repo.List(context.Background(), "u2")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	mock.ExpectQuery(q).WithArgs("u3").WillReturnError(errors.New("down"))
	_, err = repo.List(context.Background(), "u3")
	assert.Error(t, err)
}

func TestGrant(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `(?s)INSERT\s+INTO\s+user_roles.*ON\s+CONFLICT\s+\(user_id,\s*role\)\s+DO\s+NOTHING`

	mock.ExpectExec(q).WithArgs("u1", "admin").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Grant(context.Background(), "u1", "admin"))

	// already granted
	mock.ExpectExec(q).WithArgs("u1", "admin").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.Grant(context.Background(), "u1", "admin"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevoke(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `DELETE\s+FROM\s+user_roles\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+role\s*=\s*\$2`

	mock.ExpectExec(q).WithArgs("u1", "admin").WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.Revoke(context.Background(), "u1", "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(q).WithArgs("u1", "admin").WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.Revoke(context.Background(), "u1", "admin")
	require.NoError(t, err)
	assert.False(t, ok)
}
