// Package server provides the HTTP server for the reconciliation API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/reconify"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	client reconify.Client
	logger *zerolog.Logger
	config Config
	http   *http.Server
}

// New creates a new server instance with the given configuration.
func New(client reconify.Client, logger *zerolog.Logger, cfg Config) *Server {
	s := &Server{
		client: client,
		logger: logger,
		config: cfg,
	}
	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.setupRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe runs the server until it fails or is shut down.
func (s *Server) ListenAndServe() error {
	s.logger.Info().
		Str("addr", s.http.Addr).
		Str("prefix", s.config.PathPrefix).
		Msg("HTTP server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
