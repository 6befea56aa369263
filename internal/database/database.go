package database

import (
	"context"
	"fmt"
	"time"

	"shopledger/internal/config"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// NewPool creates a new PostgreSQL connection pool.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure pool settings
	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Second
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	// NUMERIC columns scan directly into shopspring decimals.
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int("max_connections", cfg.MaxConnections).
		Int("min_connections", cfg.MinConnections).
		Msg("creating database connection pool")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().Msg("database connection pool created successfully")

	return pool, nil
}

// schema is the ledger's persistent shape. Orders are keyed JSONB
// documents so field merges happen inside the store; certificates are
// typed rows whose only mutable column is the remaining balance.
const schema = `
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		doc JSONB NOT NULL,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS gift_certificates (
		code TEXT PRIMARY KEY,
		initial_value NUMERIC(12,2) NOT NULL CHECK (initial_value >= 0),
		remaining_balance NUMERIC(12,2) NOT NULL CHECK (remaining_balance >= 0),
		recipient_name TEXT NOT NULL DEFAULT '',
		recipient_email TEXT NOT NULL DEFAULT '',
		sender_name TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL DEFAULT '',
		date_issued TIMESTAMPTZ NOT NULL DEFAULT now(),
		date_expires TIMESTAMPTZ NOT NULL,
		CHECK (remaining_balance <= initial_value)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS gift_certificates_code_lower_idx
		ON gift_certificates (lower(code));
`

// EnsureSchema creates the ledger tables if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
