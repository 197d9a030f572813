package mediaitems

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/models"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/common"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE media_items (
  id TEXT PRIMARY KEY,
  report_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  original_filename TEXT NOT NULL DEFAULT '',
  mime_type TEXT NOT NULL,
  byte_size INTEGER NOT NULL,
  content_digest TEXT NOT NULL,
  has_thumbnail INTEGER NOT NULL DEFAULT 0,
  captured_at INTEGER NOT NULL,
  sync_status TEXT NOT NULL DEFAULT 'pending_upload',
  upload_progress INTEGER NOT NULL DEFAULT 0,
  retry_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT NOT NULL DEFAULT '',
  next_attempt_at INTEGER,
  caption TEXT NOT NULL DEFAULT '',
  gps TEXT NOT NULL DEFAULT '',
  duration_seconds REAL NOT NULL DEFAULT 0,
  transcription TEXT NOT NULL DEFAULT ''
);
`)
	require.NoError(t, err)

	return db
}

func newItem(id string, status models.SyncStatus) *models.QueuedMediaItem {
	return &models.QueuedMediaItem{
		ID:               id,
		ReportID:         "report-1",
		Kind:             models.KindPhoto,
		OriginalFilename: "roof.jpg",
		MimeType:         "image/jpeg",
		ByteSize:         1024,
		ContentDigest:    "deadbeef",
		CapturedAt:       time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		SyncStatus:       status,
	}
}

func mustInsert(t *testing.T, r *SQLiteRepository, item *models.QueuedMediaItem) {
	t.Helper()
	status := item.SyncStatus
	item.SyncStatus = models.StatusPendingUpload
	require.NoError(t, r.Insert(context.Background(), item))
	if status != models.StatusPendingUpload {
		_, err := r.db.ExecContext(context.Background(),
			`UPDATE media_items SET sync_status = ? WHERE id = ?`, string(status), item.ID)
		require.NoError(t, err)
	}
	item.SyncStatus = status
}

func TestInsertAndGetByID(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	item := newItem("id1", models.StatusPendingUpload)
	item.Caption = "ridge flashing"
	item.GPS = "-36.8485,174.7633"
	require.NoError(t, r.Insert(ctx, item))

	got, err := r.GetByID(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, item.ReportID, got.ReportID)
	assert.Equal(t, item.ContentDigest, got.ContentDigest)
	assert.Equal(t, item.CapturedAt, got.CapturedAt)
	assert.Equal(t, "ridge flashing", got.Caption)
	assert.Equal(t, models.StatusPendingUpload, got.SyncStatus)
	assert.True(t, got.NextAttemptAt.IsZero())
}

func TestGetByID_NotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	_, err := r.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestQuery_ByStatusAndReport(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	a := newItem("a", models.StatusPendingUpload)
	b := newItem("b", models.StatusError)
	c := newItem("c", models.StatusPendingUpload)
	c.ReportID = "report-2"
	for _, it := range []*models.QueuedMediaItem{a, b, c} {
		mustInsert(t, r, it)
	}

	pending, err := r.Query(ctx, Filter{Statuses: []models.SyncStatus{models.StatusPendingUpload}})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	r1, err := r.Query(ctx, Filter{ReportID: "report-1"})
	require.NoError(t, err)
	assert.Len(t, r1, 2)

	both, err := r.Query(ctx, Filter{
		ReportID: "report-2",
		Statuses: []models.SyncStatus{models.StatusPendingUpload, models.StatusError},
	})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "c", both[0].ID)
}

func TestCountsByStatus_AndTotalBytes(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	a := newItem("a", models.StatusPendingUpload)
	a.ByteSize = 100
	b := newItem("b", models.StatusPendingUpload)
	b.ByteSize = 200
	c := newItem("c", models.StatusError)
	c.ByteSize = 50
	for _, it := range []*models.QueuedMediaItem{a, b, c} {
		mustInsert(t, r, it)
	}

	counts, err := r.CountsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCount{Items: 2, Bytes: 300}, counts[models.StatusPendingUpload])
	assert.Equal(t, StatusCount{Items: 1, Bytes: 50}, counts[models.StatusError])

	total, err := r.TotalBytes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(350), total)
}

func TestUpdateStatus_HappyPath(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	mustInsert(t, r, newItem("id1", models.StatusPendingUpload))

	require.NoError(t, r.UpdateStatus(ctx, "id1", models.StatusUploading, UpdateFields{}))
	require.NoError(t, r.UpdateStatus(ctx, "id1", models.StatusUploaded, UpdateFields{}))
	progress := 100
	require.NoError(t, r.UpdateStatus(ctx, "id1", models.StatusConfirmed, UpdateFields{Progress: &progress}))

	got, err := r.GetByID(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.SyncStatus)
	assert.Equal(t, 100, got.UploadProgressPercent)
}

func TestUpdateStatus_RejectsIllegalEdges(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	mustInsert(t, r, newItem("id1", models.StatusPendingUpload))

	// pending cannot jump straight to uploaded or confirmed
	assert.ErrorIs(t, r.UpdateStatus(ctx, "id1", models.StatusUploaded, UpdateFields{}), common.ErrInvalidTransition)
	assert.ErrorIs(t, r.UpdateStatus(ctx, "id1", models.StatusConfirmed, UpdateFields{}), common.ErrInvalidTransition)

	// confirmed is terminal
	require.NoError(t, r.UpdateStatus(ctx, "id1", models.StatusUploading, UpdateFields{}))
	require.NoError(t, r.UpdateStatus(ctx, "id1", models.StatusUploaded, UpdateFields{}))
	require.NoError(t, r.UpdateStatus(ctx, "id1", models.StatusConfirmed, UpdateFields{}))
	assert.ErrorIs(t, r.UpdateStatus(ctx, "id1", models.StatusError, UpdateFields{}), common.ErrInvalidTransition)
	assert.ErrorIs(t, r.UpdateStatus(ctx, "id1", models.StatusPendingUpload, UpdateFields{}), common.ErrInvalidTransition)
}

func TestUpdateStatus_MissingItem(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	err := r.UpdateStatus(context.Background(), "ghost", models.StatusUploading, UpdateFields{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateStatus_ErrorWithRetrySchedule(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	mustInsert(t, r, newItem("id1", models.StatusUploading))

	next := time.Now().Add(30 * time.Second).Truncate(time.Second).UTC()
	retries := 1
	reason := "TransportFailure: timeout"
	require.NoError(t, r.UpdateStatus(ctx, "id1", models.StatusError, UpdateFields{
		RetryCount:    &retries,
		LastError:     &reason,
		NextAttemptAt: &next,
	}))

	got, err := r.GetByID(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, got.SyncStatus)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, reason, got.LastError)
	assert.Equal(t, next, got.NextAttemptAt)
}

func TestUpdateProgress_OnlyWhileUploading(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	mustInsert(t, r, newItem("id1", models.StatusUploading))
	mustInsert(t, r, newItem("id2", models.StatusPendingUpload))

	require.NoError(t, r.UpdateProgress(ctx, "id1", 40))
	require.NoError(t, r.UpdateProgress(ctx, "id2", 40)) // silently dropped

	a, _ := r.GetByID(ctx, "id1")
	b, _ := r.GetByID(ctx, "id2")
	assert.Equal(t, 40, a.UploadProgressPercent)
	assert.Equal(t, 0, b.UploadProgressPercent)
}

func TestDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	mustInsert(t, r, newItem("id1", models.StatusError))

	require.NoError(t, r.Delete(ctx, "id1"))
	_, err := r.GetByID(ctx, "id1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, r.Delete(ctx, "id1"), common.ErrNotFound)
}

func TestSelectEligible_OldestFirst(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	newer := newItem("newer", models.StatusPendingUpload)
	newer.CapturedAt = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	older := newItem("older", models.StatusPendingUpload)
	older.CapturedAt = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	inErr := newItem("err", models.StatusError)
	for _, it := range []*models.QueuedMediaItem{newer, older, inErr} {
		mustInsert(t, r, it)
	}

	got, err := r.SelectEligible(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "older", got[0].ID)
	assert.Equal(t, "newer", got[1].ID)

	one, err := r.SelectEligible(ctx, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "older", one[0].ID)
}

func TestSelectRetryDue_AndNextRetryAt(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().Truncate(time.Second).UTC()

	due := newItem("due", models.StatusUploading)
	mustInsert(t, r, due)
	past := now.Add(-time.Minute)
	require.NoError(t, r.UpdateStatus(ctx, "due", models.StatusError, UpdateFields{NextAttemptAt: &past}))

	later := newItem("later", models.StatusUploading)
	mustInsert(t, r, later)
	future := now.Add(time.Hour)
	require.NoError(t, r.UpdateStatus(ctx, "later", models.StatusError, UpdateFields{NextAttemptAt: &future}))

	manual := newItem("manual", models.StatusUploading)
	mustInsert(t, r, manual)
	require.NoError(t, r.UpdateStatus(ctx, "manual", models.StatusError, UpdateFields{ClearNextAttempt: true}))

	gotDue, err := r.SelectRetryDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, gotDue, 1)
	assert.Equal(t, "due", gotDue[0].ID)

	next, err := r.NextRetryAt(ctx)
	require.NoError(t, err)
	assert.Equal(t, past, next)
}

func TestResetInFlight(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().Truncate(time.Second).UTC()

	up := newItem("up", models.StatusUploading)
	mustInsert(t, r, up)
	_, err := r.db.ExecContext(ctx, `UPDATE media_items SET upload_progress = 55 WHERE id = 'up'`)
	require.NoError(t, err)

	done := newItem("done", models.StatusUploaded)
	mustInsert(t, r, done)

	ok := newItem("ok", models.StatusConfirmed)
	mustInsert(t, r, ok)

	n, err := r.ResetInFlight(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	a, _ := r.GetByID(ctx, "up")
	assert.Equal(t, models.StatusPendingUpload, a.SyncStatus)
	assert.Equal(t, 0, a.UploadProgressPercent)

	b, _ := r.GetByID(ctx, "done")
	assert.Equal(t, models.StatusError, b.SyncStatus)
	assert.Equal(t, now, b.NextAttemptAt)

	c, _ := r.GetByID(ctx, "ok")
	assert.Equal(t, models.StatusConfirmed, c.SyncStatus)
}
