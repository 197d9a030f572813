// Package services implements the ingest server's business operations:
// credential issuance and upload confirmation with digest verification.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/common"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/hashx"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/logging"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/server/models"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/server/objectstore"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/server/repositories/repomanager"
)

// StorageKey derives the object key for an item. The key is built from the
// server-validated report id and the client-assigned item id only; client
// filenames never participate.
func StorageKey(reportID, id string) string {
	return fmt.Sprintf("reports/%s/media/%s", reportID, id)
}

func validKind(kind string) bool {
	switch kind {
	case "photo", "video", "voice_note":
		return true
	}
	return false
}

// CredentialRequest asks for an upload target for one item.
type CredentialRequest struct {
	ID       string
	ReportID string
	Kind     string
	MimeType string
}

// Credential is the issued upload target.
type Credential struct {
	UploadTarget    string
	PublicReference string
	ExpiresAt       time.Time
}

// ConfirmRequest reports a completed transfer for verification.
type ConfirmRequest struct {
	ID            string
	ReportID      string
	Kind          string
	MimeType      string
	ByteSize      int64
	ContentDigest string
	CapturedAt    time.Time

	Caption         string
	GPS             string
	DurationSeconds float64
	Transcription   string
}

// ConfirmResult is the verdict after recomputing the digest.
type ConfirmResult struct {
	Accepted           bool
	CanonicalReference string
}

type MediaService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	store  objectstore.Store
	logger logging.Logger
}

func NewMediaService(db *sql.DB, repos repomanager.RepositoryManager, store objectstore.Store, logger logging.Logger) *MediaService {
	return &MediaService{
		db:     db,
		repos:  repos,
		store:  store,
		logger: logger.With("module", "media"),
	}
}

func (s *MediaService) validateCredentialRequest(req CredentialRequest) error {
	if _, err := uuid.Parse(req.ID); err != nil {
		return fmt.Errorf("%w: id must be a UUID", common.ErrValidation)
	}
	if req.ReportID == "" {
		return fmt.Errorf("%w: report id is required", common.ErrValidation)
	}
	if !validKind(req.Kind) {
		return fmt.Errorf("%w: unknown media kind %q", common.ErrValidation, req.Kind)
	}
	if req.MimeType == "" {
		return fmt.Errorf("%w: mime type is required", common.ErrValidation)
	}
	return nil
}

// IssueUploadCredential returns a presigned upload target for the item.
// Issuing is side-effect free: nothing is recorded until the upload is
// confirmed and verified.
func (s *MediaService) IssueUploadCredential(ctx context.Context, deviceID string, req CredentialRequest) (*Credential, error) {
	if err := s.validateCredentialRequest(req); err != nil {
		return nil, err
	}

	key := StorageKey(req.ReportID, req.ID)
	url, expires, err := s.store.PresignPut(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("presigning upload target: %w", err)
	}

	s.logger.Debug(ctx, "issued upload credential", "device", deviceID, "key", key)

	return &Credential{
		UploadTarget:    url,
		PublicReference: key,
		ExpiresAt:       expires,
	}, nil
}

// Confirm verifies an uploaded object and records the canonical entry.
//
// The claimed digest is never trusted: the server streams the stored object
// and recomputes it. On a mismatch the object is removed so no unverified
// bytes linger under a well-known key. Repeated confirmations of the same
// item id are idempotent, and a second item carrying bytes already recorded
// for the report is deduplicated onto the existing record.
func (s *MediaService) Confirm(ctx context.Context, deviceID string, req ConfirmRequest) (*ConfirmResult, error) {
	if req.ID == "" || req.ReportID == "" || req.ContentDigest == "" {
		return nil, fmt.Errorf("%w: id, report id and content digest are required", common.ErrValidation)
	}
	if !validKind(req.Kind) {
		return nil, fmt.Errorf("%w: unknown media kind %q", common.ErrValidation, req.Kind)
	}

	repo := s.repos.Media(s.db)
	key := StorageKey(req.ReportID, req.ID)

	// replayed confirmation for an item already verified
	existing, err := repo.GetByID(ctx, req.ID)
	if err == nil {
		if existing.ContentDigest != req.ContentDigest {
			return nil, fmt.Errorf("%w: item id reused with different content", common.ErrValidation)
		}
		return &ConfirmResult{Accepted: true, CanonicalReference: existing.StorageKey}, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	obj, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: no uploaded object for item", common.ErrValidation)
		}
		return nil, fmt.Errorf("reading uploaded object: %w", err)
	}
	digest, size, err := hashx.SumReader(obj)
	obj.Close()
	if err != nil {
		return nil, fmt.Errorf("hashing uploaded object: %w", err)
	}

	if digest != req.ContentDigest || size != req.ByteSize {
		s.logger.Warn(ctx, "digest mismatch, removing object",
			"device", deviceID, "key", key, "claimed", req.ContentDigest, "actual", digest)
		if derr := s.store.Delete(ctx, key); derr != nil {
			s.logger.Error(ctx, "removing mismatched object", "key", key, "error", derr)
		}
		return nil, common.ErrIntegrityMismatch
	}

	// same bytes already recorded for this report under another item id
	if dup, err := repo.GetByReportAndDigest(ctx, req.ReportID, req.ContentDigest); err == nil {
		if derr := s.store.Delete(ctx, key); derr != nil {
			s.logger.Error(ctx, "removing duplicate object", "key", key, "error", derr)
		}
		return &ConfirmResult{Accepted: true, CanonicalReference: dup.StorageKey}, nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	rec := &models.MediaRecord{
		ID:              req.ID,
		ReportID:        req.ReportID,
		DeviceID:        deviceID,
		Kind:            req.Kind,
		MimeType:        req.MimeType,
		ByteSize:        size,
		ContentDigest:   digest,
		StorageKey:      key,
		CapturedAt:      req.CapturedAt,
		Caption:         req.Caption,
		GPS:             req.GPS,
		DurationSeconds: req.DurationSeconds,
		Transcription:   req.Transcription,
	}

	err = repo.Create(ctx, rec)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrAlreadyExists), errors.Is(err, common.ErrDuplicateContent):
		// lost a race with a concurrent confirmation of the same bytes
		if winner, gerr := repo.GetByReportAndDigest(ctx, req.ReportID, req.ContentDigest); gerr == nil {
			if winner.StorageKey != key {
				_ = s.store.Delete(ctx, key)
			}
			return &ConfirmResult{Accepted: true, CanonicalReference: winner.StorageKey}, nil
		}
		return nil, err
	default:
		return nil, err
	}

	s.logger.Info(ctx, "media record confirmed",
		"device", deviceID, "report", req.ReportID, "id", req.ID, "bytes", size)

	return &ConfirmResult{Accepted: true, CanonicalReference: key}, nil
}

// ListReportMedia returns the verified records for a report, newest first.
func (s *MediaService) ListReportMedia(ctx context.Context, reportID string) ([]*models.MediaRecord, error) {
	if reportID == "" {
		return nil, fmt.Errorf("%w: report id is required", common.ErrValidation)
	}
	return s.repos.Media(s.db).ListByReport(ctx, reportID)
}
