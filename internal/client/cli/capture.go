package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/models"
)

// kindForMime maps a MIME type onto the supported media kinds.
func kindForMime(mimeType string) (models.MediaKind, bool) {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.KindPhoto, true
	case strings.HasPrefix(mimeType, "video/"):
		return models.KindVideo, true
	case strings.HasPrefix(mimeType, "audio/"):
		return models.KindVoiceNote, true
	}
	return "", false
}

// capture queues a media file for upload. Works fully offline: the item is
// durable as soon as the command returns.
func (a *App) capture(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: capture <report-id> <file> [caption...]")
		return
	}
	reportID, path := args[0], args[1]
	caption := strings.Join(args[2:], " ")

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("Cannot read file:", err)
		return
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	kind, ok := kindForMime(mimeType)
	if !ok {
		fmt.Printf("Unsupported media type %q for %s (expected image, video or audio)\n", mimeType, path)
		return
	}

	item, err := a.store.Enqueue(ctx, models.Capture{
		ReportID:         reportID,
		Kind:             kind,
		OriginalFilename: filepath.Base(path),
		MimeType:         mimeType,
		Bytes:            data,
		CapturedAt:       time.Now(),
		Caption:          caption,
	})
	if err != nil {
		fmt.Println("Capture failed:", err)
		return
	}

	fmt.Printf("Queued %s %s (%s, %d bytes)\n", kind, item.ID, item.OriginalFilename, item.ByteSize)
}
