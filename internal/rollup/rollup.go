package rollup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lumetric/attributor/internal/models"
)

const keyTTL = 90 * 24 * time.Hour

// Service maintains per-campaign daily counters in Redis so the
// dashboard sparkline can be served without replaying the event log.
// Counters are advisory: the attribution engine always recomputes from
// the stores and never reads these keys.
type Service struct {
	client *redis.Client
	logger *zap.Logger
}

// NewService creates a rollup service backed by the given Redis client.
func NewService(client *redis.Client, logger *zap.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// TimeSeriesPoint is one day of rollup counters for a campaign.
type TimeSeriesPoint struct {
	Date      string  `json:"date"`
	Clicks    int64   `json:"clicks"`
	AddToCart int64   `json:"add_to_carts"`
	Purchases int64   `json:"purchases"`
	Revenue   float64 `json:"revenue"`
}

// RecordEvent bumps the daily counters for the event's campaign. Events
// without a campaign slug have nothing to roll up.
func (s *Service) RecordEvent(ctx context.Context, e *models.Event) {
	if e == nil || e.CampaignSlug == "" {
		return
	}

	day := e.OccurredAt.UTC().Format("2006-01-02")
	pipe := s.client.Pipeline()

	switch e.Type {
	case models.EventPageView, models.EventProductView:
		key := counterKey("clicks", e.CampaignSlug, day)
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, keyTTL)
	case models.EventAddToCart:
		key := counterKey("carts", e.CampaignSlug, day)
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, keyTTL)
	case models.EventPurchase:
		countKey := counterKey("purchases", e.CampaignSlug, day)
		revKey := counterKey("revenue", e.CampaignSlug, day)
		pipe.Incr(ctx, countKey)
		pipe.IncrByFloat(ctx, revKey, e.Revenue)
		pipe.Expire(ctx, countKey, keyTTL)
		pipe.Expire(ctx, revKey, keyTTL)
	default:
		return
	}

	if _, err := pipe.Exec(ctx); err != nil {
		// Rollups are best effort; attribution is unaffected.
		s.logger.Warn("failed to record rollup",
			zap.String("slug", e.CampaignSlug),
			zap.Error(err),
		)
	}
}

// GetTimeSeries returns one point per day between from and to for the
// campaign slug. Days with no traffic produce zero points.
func (s *Service) GetTimeSeries(ctx context.Context, slug string, from, to time.Time) ([]TimeSeriesPoint, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("time series range is inverted")
	}

	var points []TimeSeriesPoint
	start := from.UTC().Truncate(24 * time.Hour)
	end := to.UTC()

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		day := d.Format("2006-01-02")

		clicks, err := s.client.Get(ctx, counterKey("clicks", slug, day)).Int64()
		if err := counterErr(err); err != nil {
			return nil, fmt.Errorf("failed to read rollup counters: %w", err)
		}
		carts, err := s.client.Get(ctx, counterKey("carts", slug, day)).Int64()
		if err := counterErr(err); err != nil {
			return nil, fmt.Errorf("failed to read rollup counters: %w", err)
		}
		purchases, err := s.client.Get(ctx, counterKey("purchases", slug, day)).Int64()
		if err := counterErr(err); err != nil {
			return nil, fmt.Errorf("failed to read rollup counters: %w", err)
		}
		revenue, err := s.client.Get(ctx, counterKey("revenue", slug, day)).Float64()
		if err := counterErr(err); err != nil {
			return nil, fmt.Errorf("failed to read rollup counters: %w", err)
		}

		points = append(points, TimeSeriesPoint{
			Date:      day,
			Clicks:    clicks,
			AddToCart: carts,
			Purchases: purchases,
			Revenue:   revenue,
		})
	}

	return points, nil
}

func counterKey(kind, slug, day string) string {
	return fmt.Sprintf("rollup:%s:%s:%s", kind, slug, day)
}

// counterErr filters out the missing-key sentinel. A missing key is an
// idle day; any other error is a backend failure and must surface.
func counterErr(err error) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
