// Package models defines the server-side persistence types.
package models

import "time"

// MediaRecord is the canonical, verified entry for one uploaded artifact.
// A record exists only after the server recomputed the content digest over
// the stored object and it matched the client's claim.
type MediaRecord struct {
	ID            string
	ReportID      string
	DeviceID      string
	Kind          string
	MimeType      string
	ByteSize      int64
	ContentDigest string
	StorageKey    string
	CapturedAt    time.Time

	Caption         string
	GPS             string
	DurationSeconds float64
	Transcription   string

	CreatedAt time.Time
}
