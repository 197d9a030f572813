package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/buildinfo"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/cli"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/config"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	app, err := cli.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
