// Package httpapi exposes the ingest server's JSON API over chi: upload
// credential issuance, upload confirmation and report media listing.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/common"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/logging"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/server/models"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/server/services"
)

// MediaProvider is the service surface the handlers need.
type MediaProvider interface {
	IssueUploadCredential(ctx context.Context, deviceID string, req services.CredentialRequest) (*services.Credential, error)
	Confirm(ctx context.Context, deviceID string, req services.ConfirmRequest) (*services.ConfirmResult, error)
	ListReportMedia(ctx context.Context, reportID string) ([]*models.MediaRecord, error)
}

type handler struct {
	media  MediaProvider
	logger logging.Logger
}

// Wire DTOs. Field names are the API contract shared with the client.

type credentialRequest struct {
	ID       string `json:"id"`
	ReportID string `json:"reportId"`
	MimeType string `json:"mimeType"`
	Kind     string `json:"kind"`
}

type credentialResponse struct {
	UploadTarget    string    `json:"uploadTarget"`
	PublicReference string    `json:"publicReference"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

type confirmRequest struct {
	ID              string    `json:"id"`
	ReportID        string    `json:"reportId"`
	Kind            string    `json:"kind"`
	MimeType        string    `json:"mimeType"`
	ContentDigest   string    `json:"contentDigest"`
	ByteSize        int64     `json:"byteSize"`
	CapturedAt      time.Time `json:"capturedAt"`
	Caption         string    `json:"caption,omitempty"`
	GPS             string    `json:"gps,omitempty"`
	DurationSeconds float64   `json:"durationSeconds,omitempty"`
	Transcription   string    `json:"transcription,omitempty"`
}

type confirmResponse struct {
	Accepted           bool   `json:"accepted"`
	CanonicalReference string `json:"canonicalReference"`
}

type mediaRecordResponse struct {
	ID              string    `json:"id"`
	ReportID        string    `json:"reportId"`
	Kind            string    `json:"kind"`
	MimeType        string    `json:"mimeType"`
	ByteSize        int64     `json:"byteSize"`
	ContentDigest   string    `json:"contentDigest"`
	StorageKey      string    `json:"storageKey"`
	CapturedAt      time.Time `json:"capturedAt"`
	Caption         string    `json:"caption,omitempty"`
	GPS             string    `json:"gps,omitempty"`
	DurationSeconds float64   `json:"durationSeconds,omitempty"`
	Transcription   string    `json:"transcription,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusForError maps service errors onto HTTP statuses. The client relies
// on this mapping to classify failures.
func statusForError(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrIntegrityMismatch):
		return http.StatusConflict
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func (h *handler) ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (h *handler) issueCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON")
		return
	}

	cred, err := h.media.IssueUploadCredential(r.Context(), DeviceIDFromContext(r.Context()), services.CredentialRequest{
		ID:       req.ID,
		ReportID: req.ReportID,
		Kind:     req.Kind,
		MimeType: req.MimeType,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, credentialResponse{
		UploadTarget:    cred.UploadTarget,
		PublicReference: cred.PublicReference,
		ExpiresAt:       cred.ExpiresAt,
	})
}

func (h *handler) confirmUpload(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON")
		return
	}

	result, err := h.media.Confirm(r.Context(), DeviceIDFromContext(r.Context()), services.ConfirmRequest{
		ID:              req.ID,
		ReportID:        req.ReportID,
		Kind:            req.Kind,
		MimeType:        req.MimeType,
		ByteSize:        req.ByteSize,
		ContentDigest:   req.ContentDigest,
		CapturedAt:      req.CapturedAt,
		Caption:         req.Caption,
		GPS:             req.GPS,
		DurationSeconds: req.DurationSeconds,
		Transcription:   req.Transcription,
	})
	if err != nil {
		if errors.Is(err, common.ErrIntegrityMismatch) {
			ConfirmationsTotal.WithLabelValues("mismatch").Inc()
		} else {
			ConfirmationsTotal.WithLabelValues("error").Inc()
		}
		h.serviceError(w, r, err)
		return
	}

	ConfirmationsTotal.WithLabelValues("accepted").Inc()
	writeJSON(w, http.StatusOK, confirmResponse{
		Accepted:           result.Accepted,
		CanonicalReference: result.CanonicalReference,
	})
}

func (h *handler) listReportMedia(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "reportID")

	records, err := h.media.ListReportMedia(r.Context(), reportID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	out := make([]mediaRecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, mediaRecordResponse{
			ID:              rec.ID,
			ReportID:        rec.ReportID,
			Kind:            rec.Kind,
			MimeType:        rec.MimeType,
			ByteSize:        rec.ByteSize,
			ContentDigest:   rec.ContentDigest,
			StorageKey:      rec.StorageKey,
			CapturedAt:      rec.CapturedAt,
			Caption:         rec.Caption,
			GPS:             rec.GPS,
			DurationSeconds: rec.DurationSeconds,
			Transcription:   rec.Transcription,
		})
	}

	writeJSON(w, http.StatusOK, out)
}
