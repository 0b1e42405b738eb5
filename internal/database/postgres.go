package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lumetric/attributor/internal/config"
)

// PostgresDB wraps a pgx connection pool with convenience methods.
type PostgresDB struct {
	Pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresDB creates a new PostgreSQL connection pool.
func NewPostgresDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*PostgresDB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.DBName),
		zap.Int("max_conns", cfg.MaxConns),
	)

	return &PostgresDB{
		Pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool.
func (db *PostgresDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info("PostgreSQL connection pool closed")
	}
}

// Health checks if the database is reachable.
func (db *PostgresDB) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Stats returns connection pool statistics.
func (db *PostgresDB) Stats() *pgxpool.Stat {
	return db.Pool.Stat()
}

// schemaStatements is the full schema, applied idempotently by
// Migrate. events.campaign_slug, events.geo_country and
// orders.promo_code must stay nullable: the stores bind absent values
// as SQL NULL (untagged events, geo disabled, promo-less orders) and a
// NOT NULL constraint would reject those rows.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id            TEXT PRIMARY KEY,
		campaign_slug TEXT,
		event_type    TEXT NOT NULL,
		session_id    TEXT NOT NULL DEFAULT '',
		revenue       DOUBLE PRECISION NOT NULL DEFAULT 0,
		geo_country   TEXT,
		occurred_at   TIMESTAMPTZ NOT NULL,
		raw_payload   JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_occurred_at ON events (occurred_at)`,
	`CREATE INDEX IF NOT EXISTS idx_events_campaign_slug ON events (campaign_slug)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id                TEXT PRIMARY KEY,
		external_order_id TEXT NOT NULL UNIQUE,
		total_price       DOUBLE PRECISION NOT NULL DEFAULT 0,
		currency          TEXT NOT NULL DEFAULT '',
		promo_code        TEXT,
		occurred_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_occurred_at ON orders (occurred_at)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_promo_code ON orders (promo_code)`,

	`CREATE TABLE IF NOT EXISTS influencers (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		handle     TEXT NOT NULL,
		platform   TEXT NOT NULL DEFAULT '',
		email      TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS campaigns (
		id                 TEXT PRIMARY KEY,
		influencer_id      TEXT,
		name               TEXT NOT NULL,
		slug               TEXT NOT NULL UNIQUE,
		promo_code         TEXT,
		target_type        TEXT NOT NULL,
		product_url        TEXT,
		fixed_cost         DOUBLE PRECISION NOT NULL DEFAULT 0,
		commission_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
		status             TEXT NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_campaigns_influencer_id ON campaigns (influencer_id)`,

	`CREATE TABLE IF NOT EXISTS rating_settings (
		id        INTEGER PRIMARY KEY,
		star1_min DOUBLE PRECISION NOT NULL,
		star1_max DOUBLE PRECISION NOT NULL,
		star2_min DOUBLE PRECISION NOT NULL,
		star2_max DOUBLE PRECISION NOT NULL,
		star3_min DOUBLE PRECISION NOT NULL,
		loss_text TEXT NOT NULL
	)`,
}

// Migrate creates the schema if it does not exist yet.
func (db *PostgresDB) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	db.logger.Info("database schema migrated")
	return nil
}
