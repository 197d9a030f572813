// Package hashx computes content digests used for integrity verification
// and deduplication. A digest is the lowercase hex SHA-256 of the exact
// byte sequence; identical bytes always produce an identical digest.
package hashx

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Sum returns the lowercase hex SHA-256 digest of b.
func Sum(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// SumReader streams r through SHA-256 and returns the digest together with
// the number of bytes read. Large video blobs are hashed this way so the
// whole payload never has to sit in memory twice.
func SumReader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
