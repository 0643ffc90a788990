// Package app wires configuration, storage and services into the objects
// shared by the API server and the operator CLI. No business logic belongs
// here.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pkordes/travel-journal/internal/config"
	"github.com/pkordes/travel-journal/internal/handler"
	"github.com/pkordes/travel-journal/internal/media"
	"github.com/pkordes/travel-journal/internal/metrics"
	"github.com/pkordes/travel-journal/internal/repo"
	"github.com/pkordes/travel-journal/internal/service"
	"github.com/pkordes/travel-journal/migrations"
)

// mediaExpansion bounds restored media at this multiple of MaxRestoreBytes.
const mediaExpansion = 4

// App holds the long-lived dependencies of one process.
type App struct {
	Config   config.Config
	Log      *slog.Logger
	Pool     *pgxpool.Pool
	Locator  *media.Locator
	Registry *prometheus.Registry
	Exports  *service.ExportService
	Restores *service.RestoreService
}

// New connects to Postgres and builds the services. When cfg.AutoMigrate is
// set pending migrations are applied before the services are returned.
// Call Close when done.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	loc, err := media.NewLocator(cfg.UploadRoot, cfg.UploadURLPrefix)
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}

	// pgxpool.New does not open connections immediately; the ping below does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("app.New: create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("app.New: connect to database: %w", err)
	}
	log.Info("database connection established")

	a := &App{Config: cfg, Log: log, Pool: pool, Locator: loc}
	if cfg.AutoMigrate {
		if _, err := a.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(a.Registry)

	tx := repo.NewTransactor(pool)
	a.Exports = service.NewExportService(tx, loc, m, log)
	a.Restores = service.NewRestoreService(tx, loc, m, log,
		service.WithMaxMediaBytes(cfg.MaxRestoreBytes*mediaExpansion))
	return a, nil
}

// Migrate applies pending migrations through a short-lived database/sql
// handle, which is what goose requires. It returns the versions applied.
func (a *App) Migrate(ctx context.Context) ([]int64, error) {
	db, err := sql.Open("pgx", a.Config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("app.Migrate: %w", err)
	}
	defer db.Close()

	applied, err := migrations.Up(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("app.Migrate: %w", err)
	}
	a.Log.Info("migrations applied", "versions", applied)
	return applied, nil
}

// Handler returns the full HTTP surface of the API.
func (a *App) Handler() http.Handler {
	srv := handler.NewServer(a.Exports, a.Restores, handler.Options{
		MaxRestoreBytes: a.Config.MaxRestoreBytes,
		Logger:          a.Log,
	})
	return handler.NewRouter(srv, handler.RouterConfig{
		Logger:      a.Log,
		CORSOrigins: a.Config.CORSOrigins,
		UserHeader:  a.Config.AuthUserHeader,
		RoleHeader:  a.Config.AuthRoleHeader,
		Metrics:     metrics.Handler(a.Registry),
	})
}

// Close releases the database pool.
func (a *App) Close() {
	a.Pool.Close()
}
