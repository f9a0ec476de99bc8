// Package application defines the shared application context interface
// used by all commands. Commands accept this interface rather than the
// concrete app type, allowing mock implementations in tests.
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/reconify"
)

// Application is the dependency surface commands draw on.
type Application interface {
	// Client returns the reconciliation client, creating it lazily if
	// needed. This is thread-safe and ensures only one instance exists.
	Client() (reconify.Client, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string
}
