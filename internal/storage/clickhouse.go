package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/lumetric/attributor/internal/models"
)

// ClickHouseArchive ships raw beacon events to ClickHouse for long-term
// analytics. Events are buffered and written in batches; the serving
// path never reads from the archive and a failed flush only costs
// analytics rows, not attribution data.
type ClickHouseArchive struct {
	conn      driver.Conn
	logger    *zap.Logger
	batchSize int

	mu     sync.Mutex
	buffer []*models.Event
}

// ClickHouseConfig configures the analytics archive connection.
type ClickHouseConfig struct {
	Addr      string
	Database  string
	User      string
	Password  string
	BatchSize int
}

// NewClickHouseArchive opens a ClickHouse connection and verifies it
// with a ping.
func NewClickHouseArchive(ctx context.Context, cfg ClickHouseConfig, logger *zap.Logger) (*ClickHouseArchive, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	logger.Info("connected to ClickHouse",
		zap.String("addr", cfg.Addr),
		zap.String("database", cfg.Database),
	)

	return &ClickHouseArchive{
		conn:      conn,
		logger:    logger,
		batchSize: batchSize,
	}, nil
}

// ArchiveEvent buffers the event and flushes when the batch is full.
func (a *ClickHouseArchive) ArchiveEvent(ctx context.Context, e *models.Event) error {
	if e == nil {
		return nil
	}

	a.mu.Lock()
	cp := *e
	a.buffer = append(a.buffer, &cp)
	shouldFlush := len(a.buffer) >= a.batchSize
	a.mu.Unlock()

	if shouldFlush {
		return a.Flush(ctx)
	}
	return nil
}

// Flush writes all buffered events in a single batch insert.
func (a *ClickHouseArchive) Flush(ctx context.Context) error {
	a.mu.Lock()
	pending := a.buffer
	a.buffer = nil
	a.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO events_archive (id, campaign_slug, event_type, session_id, revenue, geo_country, occurred_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare archive batch: %w", err)
	}

	for _, e := range pending {
		if err := batch.Append(
			e.ID, e.CampaignSlug, string(e.Type), e.SessionID,
			e.Revenue, e.GeoCountry, e.OccurredAt,
		); err != nil {
			return fmt.Errorf("failed to append archive row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send archive batch: %w", err)
	}

	a.logger.Debug("flushed event archive batch", zap.Int("rows", len(pending)))
	return nil
}

// Close flushes any pending rows and closes the connection.
func (a *ClickHouseArchive) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.Flush(ctx); err != nil {
		a.logger.Warn("failed to flush archive on close", zap.Error(err))
	}
	return a.conn.Close()
}
