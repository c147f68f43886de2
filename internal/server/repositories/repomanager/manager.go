package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/townsquare/internal/dbx"
	"github.com/dmitrijs2005/townsquare/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/townsquare/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/townsquare/internal/server/repositories/roles"
	"github.com/dmitrijs2005/townsquare/internal/server/repositories/sessions"
)

// RepositoryManager vends repositories bound to a DBTX so the same code runs
// against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Credentials(db dbx.DBTX) credentials.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Roles(db dbx.DBTX) roles.Repository
}
