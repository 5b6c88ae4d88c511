package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/mcoot/skillmatch/internal/config"
)

// Server serves the matchmaking API until its context is cancelled
type Server struct {
	httpServer      *http.Server
	listener        net.Listener
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// NewServer wraps handler with the configured timeouts. Nothing is bound
// until Listen or Serve.
func NewServer(handler http.Handler, cfg config.HTTPConfig, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
	}
}

// Listen binds the configured address. Port 0 picks a free port.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln
	return nil
}

// Addr is the bound address once Listen has run, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Serve blocks until ctx is done or the listener fails. On cancellation it
// drains in-flight requests for up to the shutdown timeout.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.logger.Info("serving matchmaking API", slog.String("addr", s.Addr()))

	served := make(chan error, 1)
	go func() { served <- s.httpServer.Serve(s.listener) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", s.Addr(), err)
	case <-ctx.Done():
	}

	s.logger.Info("draining HTTP connections", slog.Duration("timeout", s.shutdownTimeout))

	drainCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("draining connections: %w", err)
	}
	<-served

	s.logger.Info("HTTP server stopped")
	return nil
}
