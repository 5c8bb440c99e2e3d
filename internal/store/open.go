package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/salon/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Open connects the backend selected by cfg.Store.Driver and makes sure the
// schema exists. The caller owns the returned Store and must Close it.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch strings.ToLower(cfg.Store.Driver) {
	case config.DriverSQLite:
		s, err := OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("opened sqlite store", "path", cfg.Store.SQLitePath)
		return s, nil

	case config.DriverPostgres:
		return openPostgres(ctx, cfg.Database)

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

func openPostgres(ctx context.Context, dbCfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(dbCfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(dbCfg.MaxConns)
	poolConfig.MinConns = int32(dbCfg.MinConns)
	poolConfig.MaxConnLifetime = dbCfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = dbCfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(dbCfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	p := NewPostgres(pool)
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}
