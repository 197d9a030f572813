// Package server initializes and runs the media ingest server: PostgreSQL
// for canonical records, an S3-compatible backend for bytes, and the HTTP
// API in front. Handles graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/logging"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/server/config"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/server/httpapi"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/server/objectstore"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/server/repositories/repomanager"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/server/services"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	mediaService *services.MediaService
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	store, err := objectstore.NewS3Store(ctx, objectstore.S3Config{
		RootUser:      c.S3RootUser,
		RootPassword:  c.S3RootPassword,
		Bucket:        c.S3Bucket,
		Region:        c.S3Region,
		BaseEndpoint:  c.S3BaseEndpoint,
		PresignExpiry: c.PresignExpiry,
	})
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	ms := services.NewMediaService(db, repos, store, logger)

	return &App{config: c, logger: logger, db: db, mediaService: ms}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting ingest server")

	app.initSignalHandler(cancelFunc)

	srv := httpapi.New(app.config.EndpointAddr, app.mediaService, []byte(app.config.SecretKey), app.logger)
	if err := srv.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server stopped", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}
}
