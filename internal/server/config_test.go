package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfigMissingFile(t *testing.T) {
	config, err := LoadServerConfig(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", config.GetServerAddress())
	assert.Equal(t, 3*time.Second, config.SpinDelay())
	assert.Equal(t, time.Second, config.RevealDelay())
	assert.Equal(t, 2*time.Second, config.AdvanceDelay())
	assert.Equal(t, BackendMemory, config.Store.Backend)
	require.NoError(t, config.Validate())
}

func TestLoadServerConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
server {
  port = 9000
}

match {
  spin_delay_ms = 500
}

bots {
  min_think_ms = 10
  max_think_ms = 20
}

store {
  backend      = "postgres"
  database_url = "postgres://localhost/toptrumps"
}

deck_files = ["extra.hcl"]
`), 0o644))

	config, err := LoadServerConfig(path)
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, "localhost:9000", config.GetServerAddress())
	assert.Equal(t, 500*time.Millisecond, config.SpinDelay())
	assert.Equal(t, 2*time.Second, config.AdvanceDelay())
	lo, hi := config.ThinkRange()
	assert.Equal(t, 10*time.Millisecond, lo)
	assert.Equal(t, 20*time.Millisecond, hi)
	assert.Equal(t, "default", config.Store.Namespace)
	assert.Equal(t, []string{"extra.hcl"}, config.DeckFiles)
}

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ServerConfig)
	}{
		{"bad port", func(c *ServerConfig) { c.Server.Port = 70000 }},
		{"negative delay", func(c *ServerConfig) { c.Match.SpinDelayMS = -1 }},
		{"inverted think range", func(c *ServerConfig) { c.Bots.MaxThinkMS = 1 }},
		{"postgres without url", func(c *ServerConfig) { c.Store.Backend = BackendPostgres }},
		{"unknown backend", func(c *ServerConfig) { c.Store.Backend = "redis" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultServerConfig()
			tt.modify(config)
			assert.Error(t, config.Validate())
		})
	}
}
