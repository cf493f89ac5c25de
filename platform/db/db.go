// Package db owns the Postgres pool, migrations and transaction helpers.
package db

import (
	"context"
	"fmt"
	"time"

	"fddhub/platform/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationName = "fddhub"

// NewPool connects and pings. MaxConns comes from DATABASE_MAX_CONNS; the API
// and the scheduler each hold their own pool.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if n := cfg.GetDatabaseMaxConns(); n > 0 {
		poolConfig.MaxConns = n
	}
	poolConfig.MinConns = min(2, poolConfig.MaxConns)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	if _, ok := poolConfig.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
