// Package db provides database connection helpers.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// healthCheckPeriod bounds how long a dead connection can sit in the pool
// after PostgreSQL restarts.
const healthCheckPeriod = 30 * time.Second

// NewPostgresPool creates a pgxpool connection pool. Pool settings come
// from the URL (pool_max_conns etc.); the health check period is capped at
// healthCheckPeriod. Connections are opened on demand, so an unreachable
// server is not an error here; callers ping when they need to know.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}
	if cfg.HealthCheckPeriod > healthCheckPeriod {
		cfg.HealthCheckPeriod = healthCheckPeriod
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	return pool, nil
}
