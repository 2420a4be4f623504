// Package server exposes the upload service and the transaction listing over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ArionMiles/spendsort/pkg/api"
)

// Uploader ingests and commits one uploaded file.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (*api.BatchResult, error)
}

// Catalog lists the accepted upload extensions and the available export formats.
type Catalog interface {
	Extensions() []string
	GetExporter(name string) (api.Exporter, error)
}

// Config holds the HTTP server configuration.
type Config struct {
	Addr string
	// MaxUploadBytes caps a request body. Zero disables the limit.
	MaxUploadBytes int64
	// ShutdownTimeout bounds the wait for in-flight requests. Defaults to 30s.
	ShutdownTimeout time.Duration
}

// Server serves the spendsort HTTP API.
type Server struct {
	cfg     Config
	uploads Uploader
	lister  api.Lister
	catalog Catalog
	logger  *slog.Logger
	handler http.Handler
}

// New creates a server and builds its routes.
func New(cfg Config, uploads Uploader, lister api.Lister, catalog Catalog, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	s := &Server{
		cfg:     cfg,
		uploads: uploads,
		lister:  lister,
		catalog: catalog,
		logger:  logger.With("component", "http"),
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	router := mux.NewRouter()
	router.Handle("/upload", LimitBody(s.cfg.MaxUploadBytes)(http.HandlerFunc(s.handleUpload))).Methods(http.MethodPost)
	router.HandleFunc("/transactions", s.handleTransactions).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return Recovery(s.logger)(
		RequestID(
			Logger(s.logger)(
				CORS(router),
			),
		),
	)
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully, waiting for in-flight requests up to the shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	<-errCh
	s.logger.Info("http server stopped")
	return nil
}
