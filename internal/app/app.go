// Package app wires configuration, storage and the workflow repository.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"inflow/internal/config"
	"inflow/internal/db"
	"inflow/internal/domain"
	"inflow/internal/engine"
	"inflow/internal/events"
	"inflow/internal/kv"
	"inflow/internal/migrate"
	"inflow/internal/repo"
	"inflow/internal/seed"
	"inflow/internal/session"
)

// App holds the opened resources for one workspace.
type App struct {
	Workspace string
	Config    *config.Config
	DB        *sql.DB
	Store     kv.Store
	Engine    *engine.Engine
	Logger    *log.Logger

	closers []func()
}

// Open builds the store named by cfg and an initialized repository over
// it. Backends with a workspace database also record every change in the
// events table.
func Open(ctx context.Context, workspace string, cfg *config.Config, logger *log.Logger, opts ...engine.Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	a := &App{Workspace: workspace, Config: cfg, Logger: logger}

	switch cfg.Storage.Backend {
	case config.BackendSQLite, config.BackendPostgres:
		conn, err := db.Open(db.Config{Workspace: workspace})
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		a.closers = append(a.closers, func() { conn.Close() })
		if _, err := migrate.Migrate(conn); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		a.DB = conn
	}
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		a.Store = kv.SQLite{DB: a.DB}
	case config.BackendPostgres:
		pg, err := kv.OpenPostgres(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		a.Store = pg
	case config.BackendMemory:
		a.Store = kv.NewMemory()
	default:
		a.Store = kv.Nop{}
	}

	provider := seed.Demo()
	if cfg.Storage.SeedFile != "" {
		p, err := seed.FromFile(cfg.Storage.SeedFile)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load seed: %w", err)
		}
		provider = p
	}
	base := []engine.Option{
		engine.WithKeys(repo.DemoKeys(cfg.Storage.Namespace)),
		engine.WithNamespace(cfg.Storage.Namespace),
		engine.WithSeed(provider),
		engine.WithProfile(domain.Profile(cfg.Model.Profile)),
		engine.WithDocumentLinks(engine.DocumentLinks(cfg.Model.DocumentLinks)),
		engine.WithLogger(logger),
	}
	a.Engine = engine.New(a.Store, append(base, opts...)...)
	if a.DB != nil {
		a.Engine.Subscribe(a.recorder())
	}
	a.Engine.Initialize()
	return a, nil
}

// recorder appends every change to the events table.
func (a *App) recorder() func(events.Event) {
	w := events.Writer{DB: a.DB, Now: time.Now}
	return func(evt events.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.Append(ctx, evt); err != nil {
			a.Logger.Printf("events: append %s: %v", evt.Type, err)
		}
	}
}

// Session binds personaID in the configured mode, or in mode when set.
func (a *App) Session(personaID string, mode session.Mode) (*session.Session, error) {
	if mode == "" {
		mode = session.Mode(a.Config.Session.Mode)
	}
	opts := session.Options{
		Namespace: a.Config.Storage.Namespace,
		Engine:    []engine.Option{engine.WithLogger(a.Logger)},
	}
	s, err := session.New(a.Engine, personaID, mode, opts)
	if err != nil {
		return nil, err
	}
	if a.DB != nil && mode == session.Isolated {
		s.Engine().Subscribe(a.recorder())
	}
	return s, nil
}

// Close releases resources in reverse order.
func (a *App) Close() {
	if a.Engine != nil {
		a.Engine.Dispose()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
