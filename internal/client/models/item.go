// Package models defines the client-side capture-queue types.
package models

import "time"

// MediaKind classifies a captured artifact.
type MediaKind string

const (
	KindPhoto     MediaKind = "photo"
	KindVideo     MediaKind = "video"
	KindVoiceNote MediaKind = "voice_note"
)

// Valid reports whether k is a known media kind.
func (k MediaKind) Valid() bool {
	switch k {
	case KindPhoto, KindVideo, KindVoiceNote:
		return true
	}
	return false
}

// SyncStatus is the lifecycle state of a queued item. Statuses only advance
// along the transition graph below; the store rejects anything else.
type SyncStatus string

const (
	// StatusPendingUpload is the initial state after capture.
	StatusPendingUpload SyncStatus = "pending_upload"
	// StatusUploading means a transfer attempt is in flight.
	StatusUploading SyncStatus = "uploading"
	// StatusUploaded means the bytes reached the upload target without a
	// transport error. Not terminal: the server has not verified them yet.
	StatusUploaded SyncStatus = "uploaded"
	// StatusConfirmed means the server verified the digest and recorded the
	// canonical entry. Terminal; the local blob is safe to evict.
	StatusConfirmed SyncStatus = "confirmed"
	// StatusError means the last attempt failed; the item waits for an
	// automatic or manual retry.
	StatusError SyncStatus = "error"
)

// transitions maps a target status to the statuses an item may come from.
// Deletion is not a status: deleting removes the row outright and is
// permitted in any state.
var transitions = map[SyncStatus][]SyncStatus{
	StatusUploading: {StatusPendingUpload},
	StatusUploaded:  {StatusUploading},
	StatusConfirmed: {StatusUploaded},
	StatusError:     {StatusUploading, StatusUploaded},
	// Back to pending: retry after error, or an aborted in-flight transfer
	// (offline is expected, not exceptional).
	StatusPendingUpload: {StatusError, StatusUploading},
}

// AllowedFrom returns the set of statuses from which an item may enter "to".
func AllowedFrom(to SyncStatus) []SyncStatus {
	return transitions[to]
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to SyncStatus) bool {
	for _, s := range transitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

// Terminal reports whether no further automatic transition occurs from s.
func (s SyncStatus) Terminal() bool {
	return s == StatusConfirmed
}

// QueuedMediaItem is the unit of work of the capture queue. The id is
// assigned once at capture time and acts as the idempotency key for both the
// local store and the server-side upsert. ContentDigest is computed over the
// raw bytes exactly once, at enqueue, and never recomputed.
type QueuedMediaItem struct {
	ID               string
	ReportID         string
	Kind             MediaKind
	OriginalFilename string
	MimeType         string
	ByteSize         int64
	ContentDigest    string
	HasThumbnail     bool
	CapturedAt       time.Time

	SyncStatus            SyncStatus
	UploadProgressPercent int
	RetryCount            int
	LastError             string
	// NextAttemptAt is the explicit retry schedule: an item in error state
	// is auto-retried once this instant passes. Zero means no automatic
	// retry is scheduled (awaiting manual retry).
	NextAttemptAt time.Time

	// Domain fields, opaque to the engine; passed through verbatim to the
	// server on confirmation.
	Caption         string
	GPS             string
	DurationSeconds float64
	Transcription   string
}

// Capture is the input to Store.Enqueue: everything known at capture time.
type Capture struct {
	ReportID         string
	Kind             MediaKind
	OriginalFilename string
	MimeType         string
	Bytes            []byte
	Thumbnail        []byte
	CapturedAt       time.Time

	Caption         string
	GPS             string
	DurationSeconds float64
	Transcription   string
}
