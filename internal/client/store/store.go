// Package store implements the local media store: durable metadata rows in
// SQLite plus raw blob files on disk, owned exclusively by this layer. All
// mutations commit before returning and the store performs no network I/O,
// so the queue survives process restarts intact.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/models"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/repositories/mediaitems"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/common"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/filex"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/hashx"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/logging"
)

// Store is the single writer of truth for queued media items. The scheduler
// never keeps item state in memory; it reads-modifies-writes through the
// store's atomic operations only.
type Store struct {
	db      *sql.DB
	repo    mediaitems.Repository
	blobDir string
	// quotaBytes caps total stored payload bytes; zero disables the quota.
	quotaBytes int64
	logger     logging.Logger

	mu   sync.Mutex
	subs []chan Event
}

// New builds a Store over an initialized database handle. blobDir is created
// if missing.
func New(db *sql.DB, blobDir string, quotaBytes int64, logger logging.Logger) (*Store, error) {
	dir, err := filex.EnsureDir(blobDir)
	if err != nil {
		return nil, fmt.Errorf("blob dir: %w", err)
	}
	return &Store{
		db:         db,
		repo:       mediaitems.NewSQLiteRepository(db),
		blobDir:    dir,
		quotaBytes: quotaBytes,
		logger:     logger.With("module", "store"),
	}, nil
}

// Subscribe returns a channel receiving store events. Events are wake
// hints, not a complete log: when a consumer's buffer is full the oldest
// buffered event is shed so the newest still lands and the consumer is
// still woken. Listeners should re-query after draining.
func (s *Store) Subscribe(buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) notify(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
			continue
		default:
		}
		// full buffer: shed the oldest event so the newest still lands
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- e:
		default:
		}
	}
}

func (s *Store) blobPath(id string) string {
	return filepath.Join(s.blobDir, id)
}

func (s *Store) thumbPath(id string) string {
	return filepath.Join(s.blobDir, id+".thumb")
}

// Enqueue persists a new capture in state pending_upload. The content digest
// is computed here, exactly once; it is never recomputed afterwards. Fails
// with common.ErrStorageFull when the quota would be exceeded; the caller
// must surface that to the user instead of dropping the capture.
func (s *Store) Enqueue(ctx context.Context, c models.Capture) (*models.QueuedMediaItem, error) {
	if !c.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown media kind %q", common.ErrValidation, c.Kind)
	}
	if c.ReportID == "" {
		return nil, fmt.Errorf("%w: missing report id", common.ErrValidation)
	}
	if len(c.Bytes) == 0 {
		return nil, fmt.Errorf("%w: empty payload", common.ErrValidation)
	}

	if s.quotaBytes > 0 {
		total, err := s.repo.TotalBytes(ctx)
		if err != nil {
			return nil, err
		}
		if total+int64(len(c.Bytes)) > s.quotaBytes {
			return nil, common.ErrStorageFull
		}
	}

	capturedAt := c.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}

	item := &models.QueuedMediaItem{
		ID:               uuid.NewString(),
		ReportID:         c.ReportID,
		Kind:             c.Kind,
		OriginalFilename: c.OriginalFilename,
		MimeType:         c.MimeType,
		ByteSize:         int64(len(c.Bytes)),
		ContentDigest:    hashx.Sum(c.Bytes),
		HasThumbnail:     len(c.Thumbnail) > 0,
		CapturedAt:       capturedAt.UTC().Truncate(time.Second),
		SyncStatus:       models.StatusPendingUpload,
		Caption:          c.Caption,
		GPS:              c.GPS,
		DurationSeconds:  c.DurationSeconds,
		Transcription:    c.Transcription,
	}

	if err := filex.WriteFileAtomic(s.blobPath(item.ID), c.Bytes); err != nil {
		return nil, fmt.Errorf("writing blob: %w", err)
	}
	if item.HasThumbnail {
		if err := filex.WriteFileAtomic(s.thumbPath(item.ID), c.Thumbnail); err != nil {
			os.Remove(s.blobPath(item.ID))
			return nil, fmt.Errorf("writing thumbnail: %w", err)
		}
	}

	if err := s.repo.Insert(ctx, item); err != nil {
		os.Remove(s.blobPath(item.ID))
		os.Remove(s.thumbPath(item.ID))
		return nil, err
	}

	s.logger.Info(ctx, "media item enqueued",
		"id", item.ID, "kind", item.Kind, "bytes", item.ByteSize)
	s.notify(Event{Type: EventEnqueued, ItemID: item.ID, Status: item.SyncStatus})
	return item, nil
}

// Get returns a single item's metadata.
func (s *Store) Get(ctx context.Context, id string) (*models.QueuedMediaItem, error) {
	return s.repo.GetByID(ctx, id)
}

// Query lists item metadata without touching blobs; safe for UI use while
// uploads are in flight.
func (s *Store) Query(ctx context.Context, f mediaitems.Filter) ([]*models.QueuedMediaItem, error) {
	return s.repo.Query(ctx, f)
}

// Counts aggregates item counts and byte volumes per status.
func (s *Store) Counts(ctx context.Context) (map[models.SyncStatus]mediaitems.StatusCount, error) {
	return s.repo.CountsByStatus(ctx)
}

// LoadBlob returns the raw payload bytes for an upload attempt. The caller
// borrows the bytes for one attempt and must not retain them beyond it.
func (s *Store) LoadBlob(ctx context.Context, id string) ([]byte, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.blobPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading blob: %w", err)
	}
	return b, nil
}

// LoadThumbnail returns the derived thumbnail, or common.ErrNotFound when
// the item has none.
func (s *Store) LoadThumbnail(ctx context.Context, id string) ([]byte, error) {
	b, err := os.ReadFile(s.thumbPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading thumbnail: %w", err)
	}
	return b, nil
}

// Eligible returns pending_upload items ready for dispatch, oldest first.
func (s *Store) Eligible(ctx context.Context, limit int) ([]*models.QueuedMediaItem, error) {
	return s.repo.SelectEligible(ctx, limit)
}

// RetryDue returns error items whose scheduled retry instant has passed.
func (s *Store) RetryDue(ctx context.Context, now time.Time) ([]*models.QueuedMediaItem, error) {
	return s.repo.SelectRetryDue(ctx, now)
}

// NextRetryAt returns the earliest scheduled retry instant, or zero.
func (s *Store) NextRetryAt(ctx context.Context) (time.Time, error) {
	return s.repo.NextRetryAt(ctx)
}

// UpdateStatus transitions an item along the lifecycle graph, atomically
// writing the accompanying fields. Invalid transitions are rejected with
// common.ErrInvalidTransition, never overwritten.
func (s *Store) UpdateStatus(ctx context.Context, id string, to models.SyncStatus, fields mediaitems.UpdateFields) error {
	if err := s.repo.UpdateStatus(ctx, id, to, fields); err != nil {
		return err
	}
	s.notify(Event{Type: EventStatusChanged, ItemID: id, Status: to})
	return nil
}

// SetProgress records transfer progress for an uploading item.
func (s *Store) SetProgress(ctx context.Context, id string, percent int) error {
	if err := s.repo.UpdateProgress(ctx, id, percent); err != nil {
		return err
	}
	s.notify(Event{Type: EventProgress, ItemID: id, Percent: percent})
	return nil
}

// RetryNow manually re-queues an error item, keeping its retry count (the
// count is monotonic for the item's lifetime; it resets only via delete and
// re-capture).
func (s *Store) RetryNow(ctx context.Context, id string) error {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item.SyncStatus != models.StatusError {
		return common.ErrInvalidTransition
	}
	progress := 0
	noErr := ""
	return s.UpdateStatus(ctx, id, models.StatusPendingUpload, mediaitems.UpdateFields{
		Progress:         &progress,
		LastError:        &noErr,
		ClearNextAttempt: true,
	})
}

// Delete removes the item and its blobs. Irreversible, permitted in any
// state; this is the user's escape hatch.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	os.Remove(s.blobPath(id))
	os.Remove(s.thumbPath(id))
	s.logger.Info(ctx, "media item deleted", "id", id)
	s.notify(Event{Type: EventDeleted, ItemID: id})
	return nil
}

// RecoverInFlight repairs items stranded mid-attempt by a previous process
// termination. Called once at startup, before the scheduler runs.
func (s *Store) RecoverInFlight(ctx context.Context) error {
	n, err := s.repo.ResetInFlight(ctx, time.Now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info(ctx, "recovered in-flight media items", "count", n)
	}
	return nil
}

// PurgeConfirmed evicts local blobs and rows of confirmed items. Optional
// retention sweep: after confirmation the server is the system of record,
// so this loses nothing.
func (s *Store) PurgeConfirmed(ctx context.Context) (int, error) {
	confirmed, err := s.repo.Query(ctx, mediaitems.Filter{
		Statuses: []models.SyncStatus{models.StatusConfirmed},
	})
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, item := range confirmed {
		if err := s.repo.Delete(ctx, item.ID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				continue
			}
			return purged, err
		}
		os.Remove(s.blobPath(item.ID))
		os.Remove(s.thumbPath(item.ID))
		s.notify(Event{Type: EventDeleted, ItemID: item.ID})
		purged++
	}
	return purged, nil
}
