// Package objectstore abstracts the S3-compatible media backend: presigned
// PUT issuance for direct device uploads, plus streaming reads and deletes
// used during verification.
package objectstore

import (
	"context"
	"io"
	"time"
)

// Store is the object storage contract used by the media service.
type Store interface {
	// PresignPut returns a scoped URL the client may PUT bytes to, and the
	// instant it expires.
	PresignPut(ctx context.Context, key string) (string, time.Time, error)

	// Get opens the object for streaming. The caller must close the reader.
	// Returns common.ErrNotFound when no object exists under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}
