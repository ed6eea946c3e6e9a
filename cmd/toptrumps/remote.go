package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/lox/toptrumps/cmd/toptrumps/shared"
	"github.com/lox/toptrumps/internal/client"
	"github.com/lox/toptrumps/internal/deck"
)

// RemoteFlags are shared by every command talking to a server
type RemoteFlags struct {
	Server       string   `help:"Server URL, overrides the client configuration"`
	ClientConfig string   `default:"toptrumps-client.hcl" help:"HCL client configuration file"`
	DeckFiles    []string `type:"existingfile" help:"Extra HCL deck files"`
	LogLevel     string   `help:"Log level (debug|info|warn|error), overrides the client configuration"`
	LogJSON      bool     `help:"Output JSON logs instead of console format"`
}

type remote struct {
	config  *client.ClientConfig
	client  *client.Client
	catalog *deck.Catalog
	logger  *log.Logger
	ctx     context.Context
}

func (f *RemoteFlags) connect() (*remote, error) {
	config, err := client.LoadClientConfig(f.ClientConfig)
	if err != nil {
		return nil, err
	}
	if f.Server != "" {
		config.Server.URL = f.Server
	}
	if f.LogLevel != "" {
		config.Player.LogLevel = f.LogLevel
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := shared.SetupLogger(config.Player.LogLevel, f.LogJSON)
	if err != nil {
		return nil, err
	}
	catalog, err := shared.LoadCatalog(f.DeckFiles...)
	if err != nil {
		return nil, err
	}

	ctx := shared.SetupSignalHandler(logger)
	cl, err := config.Dial(ctx, logger)
	if err != nil {
		return nil, err
	}
	return &remote{config: config, client: cl, catalog: catalog, logger: logger, ctx: ctx}, nil
}

// player returns the nickname given on the command line or the configured one.
func (r *remote) player(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if r.config.Player.Name != "" {
		return r.config.Player.Name, nil
	}
	return "", fmt.Errorf("no player name: pass --as or set player.name in the client configuration")
}

func (r *remote) close() {
	_ = r.client.Disconnect()
}
