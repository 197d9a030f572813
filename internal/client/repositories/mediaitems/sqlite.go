package mediaitems

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/models"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/common"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const itemColumns = `id, report_id, kind, original_filename, mime_type, byte_size,
	content_digest, has_thumbnail, captured_at, sync_status, upload_progress,
	retry_count, last_error, next_attempt_at, caption, gps, duration_seconds, transcription`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.QueuedMediaItem, error) {
	var (
		item        models.QueuedMediaItem
		capturedAt  int64
		nextAttempt sql.NullInt64
	)
	err := row.Scan(&item.ID, &item.ReportID, &item.Kind, &item.OriginalFilename,
		&item.MimeType, &item.ByteSize, &item.ContentDigest, &item.HasThumbnail,
		&capturedAt, &item.SyncStatus, &item.UploadProgressPercent,
		&item.RetryCount, &item.LastError, &nextAttempt,
		&item.Caption, &item.GPS, &item.DurationSeconds, &item.Transcription)
	if err != nil {
		return nil, err
	}
	item.CapturedAt = time.Unix(capturedAt, 0).UTC()
	if nextAttempt.Valid {
		item.NextAttemptAt = time.Unix(nextAttempt.Int64, 0).UTC()
	}
	return &item, nil
}

// Insert persists a freshly captured item.
func (r *SQLiteRepository) Insert(ctx context.Context, item *models.QueuedMediaItem) error {
	query := `INSERT INTO media_items (id, report_id, kind, original_filename, mime_type,
			byte_size, content_digest, has_thumbnail, captured_at, sync_status,
			upload_progress, retry_count, last_error, caption, gps, duration_seconds, transcription)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.ReportID, string(item.Kind), item.OriginalFilename, item.MimeType,
		item.ByteSize, item.ContentDigest, item.HasThumbnail, item.CapturedAt.Unix(),
		string(item.SyncStatus), item.UploadProgressPercent, item.RetryCount,
		item.LastError, item.Caption, item.GPS, item.DurationSeconds, item.Transcription)
	if err != nil {
		return fmt.Errorf("failed to insert media item: %w", err)
	}
	return nil
}

// GetByID returns one item or common.ErrNotFound.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.QueuedMediaItem, error) {
	query := `SELECT ` + itemColumns + ` FROM media_items WHERE id = ?`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select media item: %w", err)
	}
	return item, nil
}

// Query lists item metadata matching the filter, newest capture first.
func (r *SQLiteRepository) Query(ctx context.Context, f Filter) ([]*models.QueuedMediaItem, error) {
	var (
		conds []string
		args  []any
	)
	if f.ReportID != "" {
		conds = append(conds, "report_id = ?")
		args = append(args, f.ReportID)
	}
	if len(f.Statuses) > 0 {
		conds = append(conds, "sync_status IN ("+placeholders(len(f.Statuses))+")")
		for _, s := range f.Statuses {
			args = append(args, string(s))
		}
	}

	query := `SELECT ` + itemColumns + ` FROM media_items`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY captured_at DESC, id"

	return r.selectItems(ctx, query, args...)
}

// CountsByStatus aggregates item counts and byte sizes per status.
func (r *SQLiteRepository) CountsByStatus(ctx context.Context) (map[models.SyncStatus]StatusCount, error) {
	query := `SELECT sync_status, COUNT(*), COALESCE(SUM(byte_size), 0)
		FROM media_items GROUP BY sync_status`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count media items: %w", err)
	}
	defer rows.Close()

	result := make(map[models.SyncStatus]StatusCount)
	for rows.Next() {
		var (
			status string
			c      StatusCount
		)
		if err := rows.Scan(&status, &c.Items, &c.Bytes); err != nil {
			return nil, err
		}
		result[models.SyncStatus(status)] = c
	}
	return result, rows.Err()
}

// TotalBytes sums byte_size over every stored item.
func (r *SQLiteRepository) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(byte_size), 0) FROM media_items`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum media item sizes: %w", err)
	}
	return total, nil
}

// UpdateStatus performs an atomic compare-and-set transition. The WHERE
// clause carries the set of legal predecessor statuses, so a concurrent
// ticker or a stale scheduler can never push an item along an edge that is
// not in the lifecycle graph.
func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, to models.SyncStatus, fields UpdateFields) error {
	from := models.AllowedFrom(to)
	if len(from) == 0 {
		return common.ErrInvalidTransition
	}

	set := []string{"sync_status = ?"}
	args := []any{string(to)}

	if fields.Progress != nil {
		set = append(set, "upload_progress = ?")
		args = append(args, *fields.Progress)
	}
	if fields.RetryCount != nil {
		set = append(set, "retry_count = ?")
		args = append(args, *fields.RetryCount)
	}
	if fields.LastError != nil {
		set = append(set, "last_error = ?")
		args = append(args, *fields.LastError)
	}
	switch {
	case fields.NextAttemptAt != nil:
		set = append(set, "next_attempt_at = ?")
		args = append(args, fields.NextAttemptAt.Unix())
	case fields.ClearNextAttempt:
		set = append(set, "next_attempt_at = NULL")
	}

	query := `UPDATE media_items SET ` + strings.Join(set, ", ") +
		` WHERE id = ? AND sync_status IN (` + placeholders(len(from)) + `)`
	args = append(args, id)
	for _, s := range from {
		args = append(args, string(s))
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update media item status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	// Nothing matched: the item is gone or sits in a status that is not a
	// legal predecessor of the target.
	if _, err := r.GetByID(ctx, id); errors.Is(err, common.ErrNotFound) {
		return common.ErrNotFound
	} else if err != nil {
		return err
	}
	return common.ErrInvalidTransition
}

// UpdateProgress writes upload_progress while the item is uploading. Stale
// writes that race a transition match zero rows, which is fine.
func (r *SQLiteRepository) UpdateProgress(ctx context.Context, id string, percent int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE media_items SET upload_progress = ? WHERE id = ? AND sync_status = ?`,
		percent, id, string(models.StatusUploading))
	if err != nil {
		return fmt.Errorf("failed to update upload progress: %w", err)
	}
	return nil
}

// Delete removes the row outright.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM media_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete media item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// SelectEligible returns pending_upload items, oldest capture first.
func (r *SQLiteRepository) SelectEligible(ctx context.Context, limit int) ([]*models.QueuedMediaItem, error) {
	query := `SELECT ` + itemColumns + ` FROM media_items
		WHERE sync_status = ? ORDER BY captured_at, id LIMIT ?`
	return r.selectItems(ctx, query, string(models.StatusPendingUpload), limit)
}

// SelectRetryDue returns error items whose retry instant has passed.
func (r *SQLiteRepository) SelectRetryDue(ctx context.Context, now time.Time) ([]*models.QueuedMediaItem, error) {
	query := `SELECT ` + itemColumns + ` FROM media_items
		WHERE sync_status = ? AND next_attempt_at IS NOT NULL AND next_attempt_at <= ?
		ORDER BY next_attempt_at, id`
	return r.selectItems(ctx, query, string(models.StatusError), now.Unix())
}

// NextRetryAt returns the earliest scheduled retry instant, or zero.
func (r *SQLiteRepository) NextRetryAt(ctx context.Context) (time.Time, error) {
	var next sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MIN(next_attempt_at) FROM media_items
		 WHERE sync_status = ? AND next_attempt_at IS NOT NULL`,
		string(models.StatusError)).Scan(&next)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to select next retry instant: %w", err)
	}
	if !next.Valid {
		return time.Time{}, nil
	}
	return time.Unix(next.Int64, 0).UTC(), nil
}

// ResetInFlight reverts items stranded mid-attempt by a crash, following
// the lifecycle graph: an interrupted transfer goes back to pending_upload
// (the abort edge), while bytes transferred but never confirmed go to error
// with an immediate retry schedule, so the confirm step is re-run.
func (r *SQLiteRepository) ResetInFlight(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE media_items SET sync_status = ?, upload_progress = 0
		 WHERE sync_status = ?`,
		string(models.StatusPendingUpload), string(models.StatusUploading))
	if err != nil {
		return 0, fmt.Errorf("failed to reset uploading media items: %w", err)
	}
	reverted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	res, err = r.db.ExecContext(ctx,
		`UPDATE media_items SET sync_status = ?, last_error = ?, next_attempt_at = ?
		 WHERE sync_status = ?`,
		string(models.StatusError), "interrupted before confirmation",
		now.Unix(), string(models.StatusUploaded))
	if err != nil {
		return 0, fmt.Errorf("failed to reset uploaded media items: %w", err)
	}
	failed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return reverted + failed, nil
}

func (r *SQLiteRepository) selectItems(ctx context.Context, query string, args ...any) ([]*models.QueuedMediaItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select media items: %w", err)
	}
	defer rows.Close()

	var result []*models.QueuedMediaItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
