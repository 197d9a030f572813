package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/common"
)

func (a *App) retry(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: retry <id>")
		return
	}

	err := a.store.RetryNow(ctx, args[0])
	switch {
	case err == nil:
		fmt.Println("Item re-queued for upload.")
	case errors.Is(err, common.ErrNotFound):
		fmt.Println("No such item.")
	case errors.Is(err, common.ErrInvalidTransition):
		fmt.Println("Item is not in a failed state; nothing to retry.")
	default:
		fmt.Println("Retry failed:", err)
	}
}

func (a *App) delete(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: delete <id>")
		return
	}

	err := a.store.Delete(ctx, args[0])
	switch {
	case err == nil:
		fmt.Println("Item and its media removed.")
	case errors.Is(err, common.ErrNotFound):
		fmt.Println("No such item.")
	default:
		fmt.Println("Delete failed:", err)
	}
}

func (a *App) purge(ctx context.Context) {
	n, err := a.store.PurgeConfirmed(ctx)
	if err != nil {
		fmt.Println("Purge failed:", err)
		return
	}
	fmt.Printf("Removed %d confirmed items.\n", n)
}
