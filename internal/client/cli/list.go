package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/models"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/repositories/mediaitems"
)

func formatItemRow(item *models.QueuedMediaItem) string {
	state := string(item.SyncStatus)
	switch item.SyncStatus {
	case models.StatusUploading:
		state = fmt.Sprintf("%s %d%%", state, item.UploadProgressPercent)
	case models.StatusError:
		if item.NextAttemptAt.IsZero() {
			state += " (manual retry)"
		} else {
			state += fmt.Sprintf(" (retry in %s)", time.Until(item.NextAttemptAt).Round(time.Second))
		}
	}
	return fmt.Sprintf("%s\t%s\t%s\t%s\t%d\t%s",
		item.ID, item.ReportID, item.Kind, item.OriginalFilename, item.ByteSize, state)
}

func (a *App) list(ctx context.Context, args []string) {
	filter := mediaitems.Filter{}
	if len(args) > 0 {
		filter.ReportID = args[0]
	}

	items, err := a.store.Query(ctx, filter)
	if err != nil {
		fmt.Println("List failed:", err)
		return
	}
	if len(items) == 0 {
		fmt.Println("Queue is empty.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tREPORT\tKIND\tFILE\tBYTES\tSTATE")
	for _, item := range items {
		fmt.Fprintln(w, formatItemRow(item))
	}
	w.Flush()
}

func (a *App) show(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: show <id>")
		return
	}

	item, err := a.store.Get(ctx, args[0])
	if err != nil {
		fmt.Println("Show failed:", err)
		return
	}

	fmt.Printf("ID:         %s\n", item.ID)
	fmt.Printf("Report:     %s\n", item.ReportID)
	fmt.Printf("Kind:       %s\n", item.Kind)
	fmt.Printf("File:       %s (%s, %d bytes)\n", item.OriginalFilename, item.MimeType, item.ByteSize)
	fmt.Printf("Digest:     %s\n", item.ContentDigest)
	fmt.Printf("Captured:   %s\n", item.CapturedAt.Format(time.RFC3339))
	fmt.Printf("State:      %s (%d%%)\n", item.SyncStatus, item.UploadProgressPercent)
	if item.RetryCount > 0 {
		fmt.Printf("Retries:    %d\n", item.RetryCount)
	}
	if item.LastError != "" {
		fmt.Printf("Last error: %s\n", item.LastError)
	}
	if !item.NextAttemptAt.IsZero() {
		fmt.Printf("Next try:   %s\n", item.NextAttemptAt.Format(time.RFC3339))
	}
	if item.Caption != "" {
		fmt.Printf("Caption:    %s\n", item.Caption)
	}
	if item.GPS != "" {
		fmt.Printf("GPS:        %s\n", item.GPS)
	}
	if item.DurationSeconds > 0 {
		fmt.Printf("Duration:   %.1fs\n", item.DurationSeconds)
	}
}

func (a *App) status(ctx context.Context) {
	state := a.monitor.State()
	if state.Online {
		fmt.Printf("Link: online (%s), %d transfers in flight\n", state.Quality, a.scheduler.InFlight())
	} else {
		fmt.Println("Link: offline, queue is held locally")
	}

	counts, err := a.store.Counts(ctx)
	if err != nil {
		fmt.Println("Status failed:", err)
		return
	}

	order := []models.SyncStatus{
		models.StatusPendingUpload,
		models.StatusUploading,
		models.StatusUploaded,
		models.StatusConfirmed,
		models.StatusError,
	}
	for _, st := range order {
		c := counts[st]
		if c.Items == 0 {
			continue
		}
		fmt.Printf("  %-15s %4d items  %10d bytes\n", st, c.Items, c.Bytes)
	}
}
