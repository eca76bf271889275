// Package app wires configuration, storage, the directory and the HTTP
// server into one runnable unit.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atlantishq/dispatchd/internal/config"
	"github.com/atlantishq/dispatchd/internal/directory"
	"github.com/atlantishq/dispatchd/internal/server"
	"github.com/atlantishq/dispatchd/internal/sqlite"
	"github.com/atlantishq/dispatchd/pkg/logger"
)

// App holds the relay's dependencies and configuration.
type App struct {
	Config    *config.Config
	SQLite    *sqlite.DB
	Resolver  directory.Resolver
	Logger    *slog.Logger
	server    *server.Server
	BuildInfo string
	Version   string
}

// Options contains configuration needed when creating a new App instance.
type Options struct {
	ConfigPath string
	BuildInfo  string
	Version    string
}

// New loads the configuration and prepares an App instance.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    logger.New(cfg.Logging.Level == "debug"),
		BuildInfo: opts.BuildInfo,
		Version:   opts.Version,
	}, nil
}

// Initialize opens the database, builds the directory resolver and prepares
// the HTTP server.
func (a *App) Initialize(ctx context.Context) error {
	var err error

	a.SQLite, err = sqlite.New(sqlite.Options{
		Config: a.Config.SQLite,
		Logger: a.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sqlite: %w", err)
	}

	switch a.Config.Directory.Mode {
	case "ldap":
		a.Resolver = directory.NewLDAPResolver(a.Config.Directory, a.Logger)
	default:
		a.Resolver = directory.NewStaticResolver(a.Config.Directory, a.Logger)
	}
	a.Logger.Info("directory resolver initialized", "mode", a.Config.Directory.Mode)

	a.server = server.New(server.Options{
		Config:   a.Config,
		SQLite:   a.SQLite,
		Resolver: a.Resolver,
		Logger:   a.Logger,
	})

	return nil
}

// Start begins serving HTTP. It blocks until Shutdown is called.
func (a *App) Start() error {
	if a.server == nil {
		return fmt.Errorf("server not initialized")
	}
	a.Logger.Info("starting server", "version", a.Version)
	return a.server.Start()
}

// Shutdown gracefully stops the server and closes the database.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	if a.server != nil {
		serverDone := make(chan error, 1)
		go func() {
			serverDone <- a.server.Shutdown()
		}()
		select {
		case err := <-serverDone:
			if err != nil {
				a.Logger.Error("error shutting down server", "error", err)
			}
		case <-ctx.Done():
			a.Logger.Warn("timeout shutting down HTTP server, continuing")
		}
	}

	if a.SQLite != nil {
		if err := a.SQLite.Close(); err != nil {
			a.Logger.Error("error closing sqlite", "error", err)
		}
	}

	a.Logger.Info("application shutdown complete")
	return nil
}
