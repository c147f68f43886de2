package metadata

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/townsquare/internal/client/client"
	"github.com/dmitrijs2005/townsquare/internal/client/models"
	"github.com/dmitrijs2005/townsquare/internal/common"
	"github.com/dmitrijs2005/townsquare/internal/dbx"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, client.RunMigrations(context.Background(), db))
	return db
}

func TestKeyValue(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	v, err := r.Get(ctx, KeyUsername)
	require.NoError(t, err)
	assert.Nil(t, v, "absent key reads as nil")

	require.NoError(t, r.Set(ctx, KeyUsername, []byte("ada")))
	require.NoError(t, r.Set(ctx, KeyUsername, []byte("ada_l")))
	require.NoError(t, r.Set(ctx, KeyUserID, []byte{0x00, 0xff}))

	v, err = r.Get(ctx, KeyUsername)
	require.NoError(t, err)
	assert.Equal(t, []byte("ada_l"), v, "set overwrites")

	require.NoError(t, r.Delete(ctx, KeyUsername))
	require.NoError(t, r.Delete(ctx, KeyUsername), "delete is idempotent")
	v, err = r.Get(ctx, KeyUsername)
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, r.Clear(ctx))
	v, err = r.Get(ctx, KeyUserID)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestClosedDBErrorsAreWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	assert.ErrorContains(t, err, "failed to get metadata[k]")
	assert.ErrorContains(t, r.Set(ctx, "k", []byte("v")), "failed to set metadata[k]")
	assert.ErrorContains(t, r.Delete(ctx, "k"), "failed to delete metadata[k]")
	assert.ErrorContains(t, r.Clear(ctx), "failed to clear metadata")

	_, err = r.LoadSession(ctx)
	assert.Error(t, err)
}

func TestLoadSession_EmptyStore(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.LoadSession(context.Background())
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSaveAndLoadSession(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	refreshed := time.Date(2026, 2, 3, 4, 5, 6, 7, time.UTC)

	want := &models.Session{
		Token:        "tok",
		UserID:       "u1",
		MobileNumber: "+15550100",
		Username:     "ada",
		RefreshedAt:  refreshed,
	}

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return NewSQLiteRepository(tx).SaveSession(ctx, want)
	})
	require.NoError(t, err)

	got, err := NewSQLiteRepository(db).LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, NewSQLiteRepository(db).Clear(ctx))
	_, err = NewSQLiteRepository(db).LoadSession(ctx)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLoadSession_BadTimestamp(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, KeySessionToken, []byte("tok")))
	require.NoError(t, r.Set(ctx, KeyRefreshedAt, []byte("yesterday")))

	_, err := r.LoadSession(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse metadata[refreshed_at]")
}
