// Package serve provides the HTTP server command for the reconify CLI.
package serve

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/reconify/cmd/reconify/cmd/application"
	"github.com/agentstation/reconify/internal/server"
)

// NewCommand creates the serve command using app context.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		GroupID: "core",
		Short:   "Start the reconciliation REST API server",
		Long: `Start a REST API server exposing the full reconciliation surface.

Features:
  - Panel configuration and join-key mapping endpoints
  - SOT and panel document uploads (multipart or raw body)
  - Workflow endpoints: categorize, reconcile, recategorize, complete
  - Run summaries, per-user reports, and upload history
  - Request logging, panic recovery, and optional CORS
  - Graceful shutdown with connection draining
  - Health and readiness checks`,
		Example: `  # Start on default port 8080
  reconify serve

  # Start on a custom port with CORS enabled
  reconify serve --port 3000 --cors

  # Persist to SQLite
  reconify --database recon.db serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, args, app)
		},
	}

	// Server configuration flags
	cmd.Flags().IntP("port", "p", 8080, "Server port")
	cmd.Flags().String("host", "localhost", "Bind address")
	cmd.Flags().String("prefix", "/api/v1", "API path prefix")

	// CORS flags
	cmd.Flags().Bool("cors", false, "Enable CORS for all origins")

	// Timeout flags
	cmd.Flags().Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	cmd.Flags().Duration("idle-timeout", 120*time.Second, "HTTP idle timeout")

	return cmd
}

// runServer starts the API server and blocks until shutdown.
func runServer(cmd *cobra.Command, _ []string, app application.Application) error {
	cfg := parseConfig(cmd)
	logger := app.Logger()

	client, err := app.Client()
	if err != nil {
		return err
	}

	logger.Info().
		Int("port", cfg.Port).
		Str("host", cfg.Host).
		Str("prefix", cfg.PathPrefix).
		Bool("cors", cfg.CORSEnabled).
		Msg("Starting API server")

	srv := server.New(client, logger, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-cmd.Context().Done():
		// Signal received; drain connections before returning.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// parseConfig builds the server config from command flags.
func parseConfig(cmd *cobra.Command) server.Config {
	cfg := server.DefaultConfig()

	if port, err := cmd.Flags().GetInt("port"); err == nil {
		cfg.Port = port
	}
	if host, err := cmd.Flags().GetString("host"); err == nil {
		cfg.Host = host
	}
	if prefix, err := cmd.Flags().GetString("prefix"); err == nil {
		cfg.PathPrefix = prefix
	}
	if cors, err := cmd.Flags().GetBool("cors"); err == nil {
		cfg.CORSEnabled = cors
	}
	if d, err := cmd.Flags().GetDuration("read-timeout"); err == nil {
		cfg.ReadTimeout = d
	}
	if d, err := cmd.Flags().GetDuration("write-timeout"); err == nil {
		cfg.WriteTimeout = d
	}
	if d, err := cmd.Flags().GetDuration("idle-timeout"); err == nil {
		cfg.IdleTimeout = d
	}

	return cfg
}
