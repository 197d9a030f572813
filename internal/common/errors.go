// Package common defines shared constants and sentinel errors used across
// client and server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrDuplicateContent = errors.New("duplicate content for report")

	// Capture-queue errors.
	ErrStorageFull       = errors.New("local storage quota exceeded")
	ErrInvalidTransition = errors.New("invalid sync status transition")

	// Transfer and verification errors.
	ErrIntegrityMismatch = errors.New("content digest mismatch")
	ErrValidation        = errors.New("payload rejected by server")

	// Transport errors.
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")

	// Token errors (device tokens are issued by the external identity
	// service; the ingest server only validates them).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Generic internal flow control.
	ErrInternal = errors.New("internal error")
)
