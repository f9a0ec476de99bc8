package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineLogLevel(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{"default", Config{}, "info"},
		{"verbose", Config{Verbose: true}, "debug"},
		{"quiet", Config{Quiet: true}, "warn"},
		{"both prefers quiet", Config{Verbose: true, Quiet: true}, "warn"},
		{"explicit wins", Config{LogLevel: "trace", Quiet: true}, "trace"},
		{"invalid falls back", Config{LogLevel: "loud"}, "info"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determineLogLevel(&tt.config))
		})
	}
}

func TestUpdateFromFlags(t *testing.T) {
	cfg := Config{Output: "json"}
	cfg.UpdateFromFlags(true, false, true, "")
	assert.True(t, cfg.Verbose)
	assert.True(t, cfg.NoColor)
	assert.Equal(t, "json", cfg.Output, "empty flag keeps configured output")

	cfg.UpdateFromFlags(false, false, false, "yaml")
	assert.Equal(t, "yaml", cfg.Output)
}

func TestAppLazyClient(t *testing.T) {
	a, err := New("test", "abc", "today", "tests")
	require.NoError(t, err)
	assert.Equal(t, "test", a.Version())

	c1, err := a.Client()
	require.NoError(t, err)
	c2, err := a.Client()
	require.NoError(t, err)
	assert.Same(t, c1, c2, "client is a singleton")

	require.NoError(t, a.Shutdown(context.Background()))
}
