package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/dentdocs/internal/dbx"
	"github.com/dmitrijs2005/dentdocs/internal/server/repositories/documents"
)

// RepositoryManager vends repositories bound to a DBTX so services can run
// them against either a connection pool or a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Documents(db dbx.DBTX) documents.Repository
}
