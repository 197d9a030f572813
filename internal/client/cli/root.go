package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) prompt() string {
	state := a.monitor.State()
	if !state.Online {
		return "fieldsync (offline)> "
	}
	return fmt.Sprintf("fieldsync (online/%s)> ", state.Quality)
}

// Root runs the interactive command loop until ctx is cancelled or the user
// exits. Captures queue locally regardless of connectivity; the background
// engine drains the queue on its own.
func (a *App) Root(ctx context.Context) {
	fmt.Println("Field capture client (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(a.prompt())
		if !scanner.Scan() {
			return
		}
		if ctx.Err() != nil {
			return
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			fmt.Println("Available commands: capture, list, show, status, retry, delete, purge, exit")
			fmt.Println("  capture <report-id> <file> [caption...]  queue a photo/video/voice note")
			fmt.Println("  list [report-id]                         list queued items")
			fmt.Println("  show <id>                                show one item in detail")
			fmt.Println("  status                                   queue totals and link state")
			fmt.Println("  retry <id>                               retry a failed item now")
			fmt.Println("  delete <id>                              remove an item and its media")
			fmt.Println("  purge                                    drop confirmed items to free space")
		case "capture":
			a.capture(ctx, args)
		case "list":
			a.list(ctx, args)
		case "show":
			a.show(ctx, args)
		case "status":
			a.status(ctx)
		case "retry":
			a.retry(ctx, args)
		case "delete":
			a.delete(ctx, args)
		case "purge":
			a.purge(ctx)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}
