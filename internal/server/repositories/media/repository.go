// Package media provides PostgreSQL-backed persistence for verified media
// records.
package media

import (
	"context"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/server/models"
)

// Repository is the storage contract for canonical media records.
type Repository interface {
	// Create inserts a verified record. Returns common.ErrAlreadyExists when
	// a record with the same id is already present, and
	// common.ErrDuplicateContent when another record for the same report
	// carries the same content digest.
	Create(ctx context.Context, rec *models.MediaRecord) error

	// GetByID returns the record with the given id, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.MediaRecord, error)

	// GetByReportAndDigest returns the record for (reportID, digest), or
	// common.ErrNotFound.
	GetByReportAndDigest(ctx context.Context, reportID, digest string) (*models.MediaRecord, error)

	// ListByReport returns all records for a report, newest first.
	ListByReport(ctx context.Context, reportID string) ([]*models.MediaRecord, error)
}
