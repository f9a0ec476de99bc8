package reconify

import (
	"github.com/agentstation/reconify/pkg/ingest"
	"github.com/agentstation/reconify/pkg/priority"
)

// Option is a function that configures a Client instance.
type Option func(*config) error

// config holds constructor-time settings.
type config struct {
	databasePath string
	order        priority.Order
	parser       ingest.Parser
}

func defaultConfig() *config {
	return &config{
		order:  priority.Default(),
		parser: ingest.NewCSVParser(),
	}
}

// WithDatabase persists all state in a SQLite database at path. Without
// this option the client runs on in-memory stores.
func WithDatabase(path string) Option {
	return func(c *config) error {
		c.databasePath = path
		return nil
	}
}

// WithPriorityOrder configures the SOT matching priority order.
func WithPriorityOrder(order priority.Order) Option {
	return func(c *config) error {
		c.order = order
		return nil
	}
}

// WithPriorityPolicyFile loads the SOT matching priority order from a YAML
// policy file.
func WithPriorityPolicyFile(path string) Option {
	return func(c *config) error {
		order, err := priority.Load(path)
		if err != nil {
			return err
		}
		c.order = order
		return nil
	}
}

// WithParser configures a custom document parser for uploads.
func WithParser(p ingest.Parser) Option {
	return func(c *config) error {
		c.parser = p
		return nil
	}
}
