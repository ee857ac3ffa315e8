package rest

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/firmdesk/collections-backend/internal/infrastructure/config"
)

// Server wraps the HTTP server with its lifecycle.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	shutdown   chan struct{}
}

func NewServer(cfg *config.ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger:   logger,
		shutdown: make(chan struct{}),
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	<-s.shutdown
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	defer close(s.shutdown)
	return s.httpServer.Shutdown(ctx)
}
