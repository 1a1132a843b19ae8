// Package repomanager wires the database connection, the repositories, and
// the schema migrations together.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/adarshn/notebox/internal/dbx"
	"github.com/adarshn/notebox/internal/server/repositories/notes"
	"github.com/adarshn/notebox/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to a DBTX, so services can
// run the same repository code on the pool or inside a transaction.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Notes(db dbx.DBTX) notes.Repository
	RunMigrations(ctx context.Context) error
	Conn() *sql.DB
	Close() error
}
