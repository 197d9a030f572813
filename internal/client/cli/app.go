package cli

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/api"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/config"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/connectivity"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/scheduler"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/client/store"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/filex"
	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/logging"

	_ "modernc.org/sqlite"
)

// App wires the capture queue, the sync engine and the interactive prompt.
type App struct {
	config    *config.Config
	store     *store.Store
	apiClient api.Client
	monitor   *connectivity.Monitor
	scheduler *scheduler.Scheduler
	logger    logging.Logger
	reader    *bufio.Reader
}

func NewApp(c *config.Config, logger logging.Logger) (*App, error) {
	ctx := context.Background()

	dataDir, err := filex.EnsureDir(c.DataDir)
	if err != nil {
		return nil, err
	}
	c.DataDir = dataDir

	db, err := store.InitDatabase(ctx, filepath.Join(dataDir, "queue.db"))
	if err != nil {
		logger.Error(ctx, "initializing queue database", "error", err)
		return nil, err
	}

	st, err := store.New(db, filepath.Join(dataDir, "blobs"), c.QuotaBytes, logger)
	if err != nil {
		return nil, err
	}

	apiClient := api.NewHTTPClient(c.ServerEndpointAddr, c.DeviceToken)

	monitor := connectivity.NewMonitor(apiClient, c.OnlineCheckInterval, 3*time.Second, time.Second, logger)

	sched := scheduler.New(st, apiClient, scheduler.Config{
		Concurrency:     c.UploadConcurrency,
		SlowConcurrency: c.SlowUploadConcurrency,
		MaxAutoRetries:  c.MaxAutoRetries,
		RequestTimeout:  c.RequestTimeout,
		UploadTimeout:   c.UploadTimeout,
		ConfirmTimeout:  c.ConfirmTimeout,
		Backoff:         scheduler.Backoff{Base: c.RetryBackoffBase, Max: c.RetryBackoffMax},
	}, logger)

	return &App{
		config:    c,
		store:     st,
		apiClient: apiClient,
		monitor:   monitor,
		scheduler: sched,
		logger:    logger,
		reader:    bufio.NewReader(os.Stdin),
	}, nil
}

// Run recovers any transfers interrupted by a crash, starts the background
// sync engine and enters the interactive prompt. It returns when the user
// exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.store.RecoverInFlight(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.apiClient.Close()

	go a.monitor.Run(ctx)
	go func() { _ = a.scheduler.Run(ctx, a.monitor) }()

	a.Root(ctx)
	return nil
}
