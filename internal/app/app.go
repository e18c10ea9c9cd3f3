package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adam-alska/specflow/internal/config"
	"github.com/adam-alska/specflow/internal/db"
	"github.com/adam-alska/specflow/internal/events"
	"github.com/adam-alska/specflow/internal/migrate"
	"github.com/adam-alska/specflow/internal/repo"
	"github.com/adam-alska/specflow/internal/store"
)

// App wires the workspace database, config, event log and ticket store.
// Both the CLI and the server boot through Open.
type App struct {
	Workspace string
	DB        *sql.DB
	Cfg       *config.Config
	Events    *events.Writer
	Store     *store.Store
}

// Open opens (creating if needed) the workspace database, runs migrations,
// loads the optional specflow.yml and hydrates the store from the last
// snapshot.
func Open(ctx context.Context, workspace string) (*App, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		conn.Close()
		return nil, err
	}
	ev := &events.Writer{DB: conn}
	st := store.New(repo.Repo{DB: conn}, ev)
	if err := st.Load(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return &App{
		Workspace: workspace,
		DB:        conn,
		Cfg:       cfg,
		Events:    ev,
		Store:     st,
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}
