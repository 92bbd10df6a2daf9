package repomanager

import (
	"context"
	"database/sql"

	"github.com/avolkov/tiergate/internal/dbx"
	"github.com/avolkov/tiergate/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX (connection pool
// or transaction) and runs schema migrations.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
