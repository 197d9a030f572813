// Package api is the client-side boundary to the ingest server: credential
// requests, upload confirmation and the reachability probe. The engine
// depends on the Client contract only, never on the transport.
package api

import (
	"context"
	"time"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/models"
)

// CredentialRequest asks for a short-lived upload target for one item.
type CredentialRequest struct {
	ID       string           `json:"id"`
	ReportID string           `json:"reportId"`
	MimeType string           `json:"mimeType"`
	Kind     models.MediaKind `json:"kind"`
}

// UploadCredential is a scoped, expiring destination the client may PUT
// bytes to directly. The server derives the storage key itself; client
// filenames never reach path construction.
type UploadCredential struct {
	UploadTarget    string    `json:"uploadTarget"`
	PublicReference string    `json:"publicReference"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

// ConfirmRequest reports a completed transfer for server-side verification.
// Domain fields ride along verbatim; the engine does not interpret them.
type ConfirmRequest struct {
	ID              string           `json:"id"`
	ReportID        string           `json:"reportId"`
	Kind            models.MediaKind `json:"kind"`
	MimeType        string           `json:"mimeType"`
	ContentDigest   string           `json:"contentDigest"`
	ByteSize        int64            `json:"byteSize"`
	CapturedAt      time.Time        `json:"capturedAt"`
	Caption         string           `json:"caption,omitempty"`
	GPS             string           `json:"gps,omitempty"`
	DurationSeconds float64          `json:"durationSeconds,omitempty"`
	Transcription   string           `json:"transcription,omitempty"`
}

// ConfirmResult is the server's verdict after recomputing the digest.
type ConfirmResult struct {
	Accepted           bool   `json:"accepted"`
	CanonicalReference string `json:"canonicalReference"`
}

// Client is the ingest-server contract used by the sync engine.
type Client interface {
	Close() error

	// Ping probes reachability; used by the connectivity monitor.
	Ping(ctx context.Context) error

	// RequestUploadCredential obtains a presigned upload target.
	RequestUploadCredential(ctx context.Context, req CredentialRequest) (*UploadCredential, error)

	// Confirm asks the server to verify and record the uploaded object.
	// Repeated calls with the same id and matching digest are idempotent.
	Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error)
}
