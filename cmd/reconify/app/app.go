// Package app provides the application context and dependency management
// for the reconify CLI. It centralizes configuration, dependency injection,
// and lifecycle management.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/reconify"
	"github.com/agentstation/reconify/pkg/errors"
)

// App represents the reconify application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Client instance (lazy-initialized, singleton)
	mu     sync.RWMutex
	client reconify.Client
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.NewConfigError("config", "failed to load configuration", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Output
}

// Client returns the reconciliation client, creating it lazily if needed.
// This is thread-safe and ensures only one instance is created.
func (a *App) Client() (reconify.Client, error) {
	a.mu.RLock()
	if a.client != nil {
		c := a.client
		a.mu.RUnlock()
		return c, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if a.client != nil {
		return a.client, nil
	}

	opts := a.buildClientOptions()
	c, err := reconify.New(opts...)
	if err != nil {
		return nil, errors.NewConfigError("client", "failed to create client", err)
	}

	a.client = c
	return c, nil
}

// Shutdown performs graceful shutdown of the application, releasing the
// client and its underlying database.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close client during shutdown")
			return err
		}
		a.client = nil
	}
	return nil
}

// buildClientOptions constructs client options from the app configuration.
func (a *App) buildClientOptions() []reconify.Option {
	var opts []reconify.Option

	if a.config.DatabasePath != "" {
		opts = append(opts, reconify.WithDatabase(a.config.DatabasePath))
	}
	if a.config.PriorityPolicyFile != "" {
		opts = append(opts, reconify.WithPriorityPolicyFile(a.config.PriorityPolicyFile))
	}

	return opts
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets a custom client instance (useful for testing).
func WithClient(c reconify.Client) Option {
	return func(a *App) error {
		a.client = c
		return nil
	}
}
