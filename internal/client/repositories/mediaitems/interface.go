package mediaitems

import (
	"context"
	"time"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/models"
)

// Filter narrows a metadata query. Zero values mean "no constraint".
type Filter struct {
	ReportID string
	Statuses []models.SyncStatus
}

// StatusCount aggregates item count and byte volume for one status.
type StatusCount struct {
	Items int
	Bytes int64
}

// UpdateFields are the optional columns written alongside a status
// transition. Nil pointers leave the column untouched.
type UpdateFields struct {
	Progress      *int
	RetryCount    *int
	LastError     *string
	NextAttemptAt *time.Time
	// ClearNextAttempt sets next_attempt_at to NULL (no automatic retry
	// scheduled). Mutually exclusive with NextAttemptAt.
	ClearNextAttempt bool
}

// Repository persists QueuedMediaItem metadata. Blob bytes live outside the
// database and are managed by the store layer.
type Repository interface {
	// Insert persists a freshly captured item (state pending_upload).
	Insert(ctx context.Context, item *models.QueuedMediaItem) error

	// GetByID returns one item or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.QueuedMediaItem, error)

	// Query lists item metadata matching the filter, newest capture first.
	Query(ctx context.Context, f Filter) ([]*models.QueuedMediaItem, error)

	// CountsByStatus aggregates item counts and byte sizes per status.
	CountsByStatus(ctx context.Context) (map[models.SyncStatus]StatusCount, error)

	// TotalBytes sums byte_size over every stored item (quota accounting).
	TotalBytes(ctx context.Context) (int64, error)

	// UpdateStatus performs an atomic compare-and-set transition to the
	// given status, writing fields in the same statement. It fails with
	// common.ErrInvalidTransition when the item's current status is not a
	// legal predecessor, and common.ErrNotFound when the item is gone.
	UpdateStatus(ctx context.Context, id string, to models.SyncStatus, fields UpdateFields) error

	// UpdateProgress writes upload_progress for an item that is currently
	// uploading; a stale write after a transition is silently dropped.
	UpdateProgress(ctx context.Context, id string, percent int) error

	// Delete removes the row outright. Permitted in any state.
	Delete(ctx context.Context, id string) error

	// SelectEligible returns pending_upload items ready for dispatch.
	SelectEligible(ctx context.Context, limit int) ([]*models.QueuedMediaItem, error)

	// SelectRetryDue returns error items whose scheduled retry instant has
	// passed. Items without a schedule (manual-only) are never returned.
	SelectRetryDue(ctx context.Context, now time.Time) ([]*models.QueuedMediaItem, error)

	// NextRetryAt returns the earliest scheduled retry instant among error
	// items, or the zero time when none is scheduled.
	NextRetryAt(ctx context.Context) (time.Time, error)

	// ResetInFlight recovers items stranded mid-attempt by a crash:
	// uploading reverts to pending_upload, uploaded moves to error with an
	// immediate retry schedule. Returns the number of recovered items.
	ResetInFlight(ctx context.Context, now time.Time) (int64, error)
}
