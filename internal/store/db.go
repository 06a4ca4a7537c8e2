package store

import (
	"context"
	"fmt"

	"aireyes/internal/store/chpoints"
)

// Config holds connection settings for both backing stores, grounded on
// storage.Config.
type Config struct {
	ClickHouse chpoints.Config
	Postgres   PostgresConfig
}

// DB wraps both the relational (Postgres) and time-series (ClickHouse)
// halves of C1's Entity Store behind a single handle, the way storage.DB
// pairs ClickHouse and Postgres.
type DB struct {
	Points *chpoints.DB
	PG     *PostgresDB
}

// Open opens both backing stores.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	pts, err := chpoints.Open(ctx, cfg.ClickHouse)
	if err != nil {
		return nil, fmt.Errorf("clickhouse: %w", err)
	}
	pg, err := OpenPostgres(ctx, cfg.Postgres)
	if err != nil {
		_ = pts.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return &DB{Points: pts, PG: pg}, nil
}

func (d *DB) Close() error {
	var errs []error
	if d.Points != nil {
		if err := d.Points.Close(); err != nil {
			errs = append(errs, fmt.Errorf("clickhouse: %w", err))
		}
	}
	if d.PG != nil {
		d.PG.Close()
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// CreateSchemas creates both backing stores' schemas.
func (d *DB) CreateSchemas(ctx context.Context) error {
	if err := d.Points.CreateSchema(ctx); err != nil {
		return fmt.Errorf("clickhouse schema: %w", err)
	}
	if err := d.PG.CreateSchema(ctx); err != nil {
		return fmt.Errorf("postgres schema: %w", err)
	}
	return nil
}
