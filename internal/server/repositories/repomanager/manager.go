// Package repomanager wires concrete repository implementations behind a
// single factory so services stay agnostic of the storage backend.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/dbx"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/server/repositories/media"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Media(db dbx.DBTX) media.Repository
}
