package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/custodia-labs/lookalike/internal/core/domain"
	"github.com/custodia-labs/lookalike/internal/logger"
)

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 2 * time.Minute
	writeTimeout      = 5 * time.Minute
	shutdownTimeout   = 10 * time.Second
	bytesPerMB        = 1 << 20
)

// Server serves the image similarity API over HTTP.
type Server struct {
	ports          *Ports
	maxUploadBytes int64
	handler        http.Handler
}

// NewServer creates an HTTP server for the given ports.
// A non-positive maxUploadMB falls back to domain.DefaultMaxUploadMB.
func NewServer(ports *Ports, maxUploadMB int) (*Server, error) {
	if ports == nil {
		return nil, ErrMissingSearchService
	}
	if err := ports.Validate(); err != nil {
		return nil, err
	}
	if maxUploadMB <= 0 {
		maxUploadMB = domain.DefaultMaxUploadMB
	}

	s := &Server{
		ports:          ports,
		maxUploadBytes: int64(maxUploadMB) * bytesPerMB,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /extract-features", s.handleExtract)
	mux.HandleFunc("POST /rebuild-index", s.handleRebuild)
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /index/status", s.handleIndexStatus)

	s.handler = withRequestID(withAccessLog(mux))
	return s, nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on addr and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", listener.Addr())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down HTTP API")
		return srv.Shutdown(shutdownCtx)
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}
