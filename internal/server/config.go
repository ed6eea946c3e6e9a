package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server    ServerSettings `hcl:"server,block"`
	Match     *MatchSettings `hcl:"match,block"`
	Bots      *BotSettings   `hcl:"bots,block"`
	Store     *StoreSettings `hcl:"store,block"`
	DeckFiles []string       `hcl:"deck_files,optional"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// MatchSettings holds the pacing of a match, in milliseconds
type MatchSettings struct {
	SpinDelayMS    int `hcl:"spin_delay_ms,optional"`
	RevealDelayMS  int `hcl:"reveal_delay_ms,optional"`
	AdvanceDelayMS int `hcl:"advance_delay_ms,optional"`
}

// BotSettings bounds the thinking delay of automated players
type BotSettings struct {
	MinThinkMS int `hcl:"min_think_ms,optional"`
	MaxThinkMS int `hcl:"max_think_ms,optional"`
}

// StoreSettings selects the shared document store backend
type StoreSettings struct {
	Backend     string `hcl:"backend,optional"`
	DatabaseURL string `hcl:"database_url,optional"`
	Namespace   string `hcl:"namespace,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	config := &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
	}
	config.applyDefaults()
	return config
}

// LoadServerConfig loads server configuration from HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

// applyDefaults fills in missing values
func (c *ServerConfig) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	if c.Match == nil {
		c.Match = &MatchSettings{}
	}
	if c.Match.SpinDelayMS == 0 {
		c.Match.SpinDelayMS = 3000
	}
	if c.Match.RevealDelayMS == 0 {
		c.Match.RevealDelayMS = 1000
	}
	if c.Match.AdvanceDelayMS == 0 {
		c.Match.AdvanceDelayMS = 2000
	}

	if c.Bots == nil {
		c.Bots = &BotSettings{}
	}
	if c.Bots.MinThinkMS == 0 {
		c.Bots.MinThinkMS = 1000
	}
	if c.Bots.MaxThinkMS == 0 {
		c.Bots.MaxThinkMS = 2500
	}

	if c.Store == nil {
		c.Store = &StoreSettings{}
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendMemory
	}
	if c.Store.Namespace == "" {
		c.Store.Namespace = "default"
	}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Match.SpinDelayMS < 0 || c.Match.RevealDelayMS < 0 || c.Match.AdvanceDelayMS < 0 {
		return fmt.Errorf("match delays must not be negative")
	}

	if c.Bots.MinThinkMS < 0 {
		return fmt.Errorf("bots: min_think_ms must not be negative")
	}
	if c.Bots.MaxThinkMS < c.Bots.MinThinkMS {
		return fmt.Errorf("bots: max_think_ms must be at least min_think_ms")
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("store: database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("store: unknown backend %q", c.Store.Backend)
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// SpinDelay returns the pause between the end of a round and the next
// draw.
func (c *ServerConfig) SpinDelay() time.Duration {
	return time.Duration(c.Match.SpinDelayMS) * time.Millisecond
}

// RevealDelay returns the pause before a complete round is resolved.
func (c *ServerConfig) RevealDelay() time.Duration {
	return time.Duration(c.Match.RevealDelayMS) * time.Millisecond
}

// AdvanceDelay returns how long round results stay up.
func (c *ServerConfig) AdvanceDelay() time.Duration {
	return time.Duration(c.Match.AdvanceDelayMS) * time.Millisecond
}

// ThinkRange returns the bounds of the bot thinking delay.
func (c *ServerConfig) ThinkRange() (time.Duration, time.Duration) {
	return time.Duration(c.Bots.MinThinkMS) * time.Millisecond, time.Duration(c.Bots.MaxThinkMS) * time.Millisecond
}
