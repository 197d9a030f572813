// Package scheduler drives the upload state machine: it selects queued
// items when the link is usable, obtains upload credentials, transfers
// bytes, and reconciles outcomes through the store's atomic transitions.
// A single event-driven loop dispatches attempts to a bounded worker pool;
// there is no busy polling.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/api"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/connectivity"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/models"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/repositories/mediaitems"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/store"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/common"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/logging"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/netx"
)

// errWentOffline marks attempt contexts cancelled because connectivity was
// lost. Going offline is expected, not exceptional: affected items revert to
// pending_upload with their retry count untouched.
var errWentOffline = errors.New("connectivity lost")

// ConnectivitySource is the monitor surface the scheduler consumes.
type ConnectivitySource interface {
	State() connectivity.State
	Subscribe() <-chan connectivity.State
}

// Config tunes the scheduler. Zero values fall back to defaults.
type Config struct {
	// Concurrency is the hard bound on simultaneous upload attempts.
	Concurrency int
	// SlowConcurrency applies instead of Concurrency while the link is
	// classified slow, to avoid saturating a constrained mobile link.
	SlowConcurrency int
	// MaxAutoRetries is the number of consecutive automatic retries before
	// an item stays in error awaiting explicit user retry.
	MaxAutoRetries int

	RequestTimeout time.Duration
	UploadTimeout  time.Duration
	ConfirmTimeout time.Duration

	Backoff Backoff
}

func (c *Config) applyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.SlowConcurrency <= 0 || c.SlowConcurrency > c.Concurrency {
		c.SlowConcurrency = 1
	}
	if c.MaxAutoRetries <= 0 {
		c.MaxAutoRetries = 5
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.UploadTimeout <= 0 {
		c.UploadTimeout = 10 * time.Minute
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 30 * time.Second
	}
	if c.Backoff.Base <= 0 {
		c.Backoff.Base = 5 * time.Second
	}
	if c.Backoff.Max <= 0 {
		c.Backoff.Max = 5 * time.Minute
	}
}

// Scheduler owns no item state of its own: every read-modify-write goes
// through the store, so a crash can never leave the engine's view and the
// durable queue divergent.
type Scheduler struct {
	store  *store.Store
	client api.Client
	cfg    Config
	logger logging.Logger

	sem  *semaphore.Weighted
	wake chan struct{}

	mu       sync.Mutex
	link     connectivity.State
	inFlight map[string]context.CancelCauseFunc

	wg sync.WaitGroup
}

// New builds a scheduler over the given store and API client.
func New(st *store.Store, client api.Client, cfg Config, logger logging.Logger) *Scheduler {
	cfg.applyDefaults()
	return &Scheduler{
		store:    st,
		client:   client,
		cfg:      cfg,
		logger:   logger.With("module", "scheduler"),
		sem:      semaphore.NewWeighted(int64(cfg.Concurrency)),
		wake:     make(chan struct{}, 1),
		inFlight: make(map[string]context.CancelCauseFunc),
	}
}

// InFlight reports the number of attempts currently running.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

// Run executes the scheduler loop until ctx is cancelled. Events that wake
// the loop: store changes (new enqueue, manual retry), connectivity
// transitions, attempt completions, and the retry-due timer.
func (s *Scheduler) Run(ctx context.Context, conn ConnectivitySource) error {
	events := s.store.Subscribe(64)
	connCh := conn.Subscribe()

	s.mu.Lock()
	s.link = conn.State()
	s.mu.Unlock()

	retryTimer := time.NewTimer(time.Hour)
	retryTimer.Stop()
	defer retryTimer.Stop()

	s.promoteDueRetries(ctx)
	s.dispatch(ctx)
	s.armRetryTimer(ctx, retryTimer)

	for {
		select {
		case <-ctx.Done():
			s.abortInFlight(context.Canceled)
			s.wg.Wait()
			return ctx.Err()

		case st := <-connCh:
			s.onConnectivity(ctx, st)

		case <-events:
			// events are wake hints; a full buffer sheds the oldest event,
			// so re-query instead of filtering on the event that survived
			s.dispatch(ctx)

		case <-retryTimer.C:
			s.promoteDueRetries(ctx)
			s.dispatch(ctx)

		case <-s.wake:
			s.dispatch(ctx)
		}

		s.armRetryTimer(ctx, retryTimer)
	}
}

func (s *Scheduler) onConnectivity(ctx context.Context, st connectivity.State) {
	s.mu.Lock()
	prev := s.link
	s.link = st
	s.mu.Unlock()

	if prev.Online && !st.Online {
		s.logger.Info(ctx, "link lost, aborting in-flight transfers")
		s.abortInFlight(errWentOffline)
		return
	}
	if st.Online {
		s.promoteDueRetries(ctx)
		s.dispatch(ctx)
	}
}

// effectiveLimit is the concurrency target for the current link quality.
func (s *Scheduler) effectiveLimit() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.link.Online {
		return 0, false
	}
	if s.link.Quality == connectivity.QualitySlow {
		return s.cfg.SlowConcurrency, true
	}
	return s.cfg.Concurrency, true
}

// dispatch starts attempts for eligible items up to the concurrency limit.
func (s *Scheduler) dispatch(ctx context.Context) {
	limit, online := s.effectiveLimit()
	if !online {
		return
	}

	items, err := s.store.Eligible(ctx, limit*2)
	if err != nil {
		s.logger.Error(ctx, "selecting eligible items", "error", err)
		return
	}

	for _, item := range items {
		s.mu.Lock()
		if len(s.inFlight) >= limit {
			s.mu.Unlock()
			return
		}
		if _, running := s.inFlight[item.ID]; running {
			s.mu.Unlock()
			continue
		}
		if !s.sem.TryAcquire(1) {
			s.mu.Unlock()
			return
		}
		attemptCtx, cancel := context.WithCancelCause(ctx)
		s.inFlight[item.ID] = cancel
		s.mu.Unlock()

		s.wg.Add(1)
		go s.attempt(attemptCtx, item)
	}
}

// promoteDueRetries moves error items whose schedule has passed back to
// pending_upload so dispatch picks them up.
func (s *Scheduler) promoteDueRetries(ctx context.Context) {
	due, err := s.store.RetryDue(ctx, time.Now())
	if err != nil {
		s.logger.Error(ctx, "selecting due retries", "error", err)
		return
	}
	for _, item := range due {
		progress := 0
		err := s.store.UpdateStatus(ctx, item.ID, models.StatusPendingUpload, mediaitems.UpdateFields{
			Progress:         &progress,
			ClearNextAttempt: true,
		})
		if err != nil && !errors.Is(err, common.ErrNotFound) && !errors.Is(err, common.ErrInvalidTransition) {
			s.logger.Error(ctx, "re-queueing item for retry", "id", item.ID, "error", err)
		}
	}
}

func (s *Scheduler) armRetryTimer(ctx context.Context, timer *time.Timer) {
	next, err := s.store.NextRetryAt(ctx)
	if err != nil || next.IsZero() {
		timer.Stop()
		return
	}
	wait := time.Until(next)
	if wait < 0 {
		wait = 0
	}
	timer.Stop()
	timer.Reset(wait)
}

func (s *Scheduler) abortInFlight(cause error) {
	s.mu.Lock()
	cancels := make([]context.CancelCauseFunc, 0, len(s.inFlight))
	for _, cancel := range s.inFlight {
		cancels = append(cancels, cancel)
	}
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel(cause)
	}
}

func (s *Scheduler) finish(id string) {
	s.mu.Lock()
	cancel := s.inFlight[id]
	delete(s.inFlight, id)
	s.mu.Unlock()
	if cancel != nil {
		cancel(nil)
	}
	s.sem.Release(1)
	s.wg.Done()

	// poke the loop so freed capacity is reused immediately
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// attempt runs one full upload attempt for a single item. At most one
// attempt per item is ever in flight; the inFlight map guarantees it.
func (s *Scheduler) attempt(ctx context.Context, item *models.QueuedMediaItem) {
	defer s.finish(item.ID)

	progress := 0
	err := s.store.UpdateStatus(ctx, item.ID, models.StatusUploading, mediaitems.UpdateFields{Progress: &progress})
	if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrInvalidTransition) {
		// deleted or already moved by someone else; nothing to do
		return
	}
	if err != nil {
		s.logger.Error(ctx, "entering uploading state", "id", item.ID, "error", err)
		return
	}

	err = s.runAttempt(ctx, item)
	if err == nil {
		hundred := 100
		cleared := ""
		// the server has accepted; the terminal write must survive a link
		// drop that cancels the attempt context mid-confirm
		recordCtx, recordCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		err = s.store.UpdateStatus(recordCtx, item.ID, models.StatusConfirmed, mediaitems.UpdateFields{
			Progress:         &hundred,
			LastError:        &cleared,
			ClearNextAttempt: true,
		})
		recordCancel()
		if err != nil {
			s.logger.Error(ctx, "recording confirmation", "id", item.ID, "error", err)
			s.revertAborted(item)
			return
		}
		s.logger.Info(ctx, "item confirmed", "id", item.ID)
		return
	}

	if errors.Is(err, common.ErrNotFound) {
		// vanished between scheduling and execution: a no-op, not an error
		return
	}

	if ctx.Err() != nil {
		s.revertAborted(item)
		return
	}

	s.fail(ctx, item, err)
}

// runAttempt performs credential request, byte transfer and confirmation.
func (s *Scheduler) runAttempt(ctx context.Context, item *models.QueuedMediaItem) error {
	blob, err := s.store.LoadBlob(ctx, item.ID)
	if err != nil {
		return err
	}

	credCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	cred, err := s.client.RequestUploadCredential(credCtx, api.CredentialRequest{
		ID:       item.ID,
		ReportID: item.ReportID,
		MimeType: item.MimeType,
		Kind:     item.Kind,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("requesting upload credential: %w", err)
	}

	uploadCtx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
	err = netx.UploadToPresignedURL(uploadCtx, cred.UploadTarget, item.MimeType, blob,
		s.progressFunc(ctx, item.ID))
	cancel()
	if err != nil {
		return fmt.Errorf("transferring bytes: %w", err)
	}

	if err := s.store.UpdateStatus(ctx, item.ID, models.StatusUploaded, mediaitems.UpdateFields{}); err != nil {
		return err
	}

	confirmCtx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmTimeout)
	result, err := s.client.Confirm(confirmCtx, api.ConfirmRequest{
		ID:              item.ID,
		ReportID:        item.ReportID,
		Kind:            item.Kind,
		MimeType:        item.MimeType,
		ContentDigest:   item.ContentDigest,
		ByteSize:        item.ByteSize,
		CapturedAt:      item.CapturedAt,
		Caption:         item.Caption,
		GPS:             item.GPS,
		DurationSeconds: item.DurationSeconds,
		Transcription:   item.Transcription,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("confirming upload: %w", err)
	}
	if !result.Accepted {
		return fmt.Errorf("confirming upload: %w", common.ErrIntegrityMismatch)
	}
	return nil
}

// progressFunc throttles progress writes to whole-percent changes.
func (s *Scheduler) progressFunc(ctx context.Context, id string) netx.ProgressFunc {
	last := -1
	return func(transferred, total int64) {
		if total <= 0 {
			return
		}
		percent := int(transferred * 100 / total)
		if percent == last {
			return
		}
		last = percent
		if err := s.store.SetProgress(ctx, id, percent); err != nil {
			s.logger.Debug(ctx, "recording progress", "id", id, "error", err)
		}
	}
}

// revertAborted handles an attempt cancelled by connectivity loss or
// shutdown: back to pending_upload, progress reset, retry count unchanged.
// If the bytes were already transferred (status uploaded), the item instead
// moves to error with an immediate schedule so only the confirm step is
// re-run once the link returns.
func (s *Scheduler) revertAborted(item *models.QueuedMediaItem) {
	// the attempt context is gone; mutations use a fresh background context
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	progress := 0
	err := s.store.UpdateStatus(ctx, item.ID, models.StatusPendingUpload, mediaitems.UpdateFields{
		Progress: &progress,
	})
	if err == nil {
		s.logger.Info(ctx, "transfer aborted, item re-queued", "id", item.ID)
		return
	}
	if errors.Is(err, common.ErrNotFound) {
		return
	}
	if errors.Is(err, common.ErrInvalidTransition) {
		now := time.Now()
		reason := "interrupted before confirmation"
		err = s.store.UpdateStatus(ctx, item.ID, models.StatusError, mediaitems.UpdateFields{
			LastError:     &reason,
			NextAttemptAt: &now,
		})
		if err == nil || errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrInvalidTransition) {
			return
		}
	}
	s.logger.Error(ctx, "reverting aborted item", "id", item.ID, "error", err)
}

// fail records a failed attempt: error state, bumped retry count, and an
// explicit backoff schedule until the automatic budget is spent.
func (s *Scheduler) fail(ctx context.Context, item *models.QueuedMediaItem, cause error) {
	reason := classify(cause)

	switch {
	case errors.Is(cause, common.ErrValidation), errors.Is(cause, common.ErrUnauthorized):
		// retrying will not help without an app or server change, but the
		// item stays retryable rather than permanently blocked
		s.logger.Warn(ctx, "attempt failed, unlikely to resolve on retry",
			"id", item.ID, "reason", reason, "error", cause)
	default:
		s.logger.Info(ctx, "attempt failed", "id", item.ID, "reason", reason, "error", cause)
	}

	retries := item.RetryCount + 1
	fields := mediaitems.UpdateFields{
		RetryCount: &retries,
		LastError:  &reason,
	}
	if retries < s.cfg.MaxAutoRetries {
		next := time.Now().Add(s.cfg.Backoff.Delay(retries))
		fields.NextAttemptAt = &next
	} else {
		// automatic budget exhausted: stays in error awaiting manual retry
		fields.ClearNextAttempt = true
		s.logger.Warn(ctx, "automatic retries exhausted, awaiting manual retry",
			"id", item.ID, "retries", retries)
	}

	err := s.store.UpdateStatus(ctx, item.ID, models.StatusError, fields)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		s.logger.Error(ctx, "recording attempt failure", "id", item.ID, "error", err)
	}
}

// classify maps a failure to the human-readable reason stored on the item.
func classify(err error) string {
	switch {
	case errors.Is(err, common.ErrIntegrityMismatch):
		return "IntegrityMismatch: " + err.Error()
	case errors.Is(err, common.ErrValidation):
		return "ValidationFailure: " + err.Error()
	case errors.Is(err, common.ErrUnauthorized):
		return "Unauthorized: " + err.Error()
	default:
		return "TransportFailure: " + err.Error()
	}
}
