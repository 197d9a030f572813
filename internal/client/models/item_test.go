package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_LifecyclePath(t *testing.T) {
	// the happy path
	assert.True(t, CanTransition(StatusPendingUpload, StatusUploading))
	assert.True(t, CanTransition(StatusUploading, StatusUploaded))
	assert.True(t, CanTransition(StatusUploaded, StatusConfirmed))

	// failure edges
	assert.True(t, CanTransition(StatusUploading, StatusError))
	assert.True(t, CanTransition(StatusUploaded, StatusError))
	assert.True(t, CanTransition(StatusError, StatusPendingUpload))

	// aborted transfer goes back to pending, not error
	assert.True(t, CanTransition(StatusUploading, StatusPendingUpload))
}

func TestCanTransition_NoSkips(t *testing.T) {
	assert.False(t, CanTransition(StatusPendingUpload, StatusConfirmed))
	assert.False(t, CanTransition(StatusPendingUpload, StatusUploaded))
	assert.False(t, CanTransition(StatusUploading, StatusConfirmed))
	assert.False(t, CanTransition(StatusConfirmed, StatusPendingUpload))
	assert.False(t, CanTransition(StatusConfirmed, StatusError))
	assert.False(t, CanTransition(StatusError, StatusUploading))
}

func TestTerminal(t *testing.T) {
	assert.True(t, StatusConfirmed.Terminal())
	assert.False(t, StatusUploaded.Terminal())
	assert.False(t, StatusError.Terminal())
}

func TestMediaKind_Valid(t *testing.T) {
	assert.True(t, KindPhoto.Valid())
	assert.True(t, KindVideo.Valid())
	assert.True(t, KindVoiceNote.Valid())
	assert.False(t, MediaKind("gif").Valid())
}
