package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/logging"
)

// Server is the ingest HTTP server with graceful shutdown.
type Server struct {
	httpServer *http.Server
	logger     logging.Logger
}

// NewRouter builds the chi router with logging, metrics and device auth.
// Split out from New so tests can exercise the full middleware chain with
// httptest.
func NewRouter(media MediaProvider, secretKey []byte, logger logging.Logger) chi.Router {
	h := &handler{media: media, logger: logger}

	router := chi.NewRouter()
	router.Use(RequestLogger(logger))
	router.Use(MetricsMiddleware())

	router.Get("/ping", h.ping)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(DeviceAuth(secretKey))
		r.Post("/uploads", h.issueCredential)
		r.Post("/uploads/confirm", h.confirmUpload)
		r.Get("/reports/{reportID}/media", h.listReportMedia)
	})

	return router
}

// New builds the server bound to addr.
func New(addr string, media MediaProvider, secretKey []byte, logger logging.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(media, secretKey, logger),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
