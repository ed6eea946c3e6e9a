package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/toptrumps/cmd/toptrumps/shared"
	"github.com/lox/toptrumps/internal/server"
	"github.com/lox/toptrumps/internal/store"
	"github.com/lox/toptrumps/internal/store/pgstore"
)

// ServerCmd hosts the shared document store every client of a match uses
type ServerCmd struct {
	Config      string `default:"toptrumps-server.hcl" help:"HCL server configuration file"`
	Addr        string `help:"Listen address, overrides the configuration file"`
	DatabaseURL string `env:"DATABASE_URL" help:"PostgreSQL URL; selects the postgres backend"`
	LogLevel    string `help:"Log level (debug|info|warn|error), overrides the configuration file"`
	LogJSON     bool   `help:"Output JSON logs instead of console format"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.DatabaseURL != "" {
		cfg.Store.Backend = server.BackendPostgres
		cfg.Store.DatabaseURL = c.DatabaseURL
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := shared.SetupLogger(cfg.Server.LogLevel, c.LogJSON)
	if err != nil {
		return err
	}
	ctx := shared.SetupSignalHandler(logger)

	s, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}
	srv := server.NewServer(addr, s, logger)

	logger.Info("Starting toptrumps server",
		"address", addr,
		"backend", cfg.Store.Backend,
		"namespace", cfg.Store.Namespace)

	// Start server in background
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	// Wait for shutdown or error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

func openStore(ctx context.Context, cfg *server.ServerConfig, logger *log.Logger) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case server.BackendPostgres:
		pg, err := pgstore.Open(ctx, cfg.Store.DatabaseURL, cfg.Store.Namespace, logger)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		mem := store.NewMemoryStore(logger)
		return mem, mem.Close, nil
	}
}
