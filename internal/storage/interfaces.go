package storage

import (
	"context"
	"time"

	"github.com/lumetric/attributor/internal/models"
)

// =============================================
// EVENT STORE
// =============================================

// EventStore is the append-only log of beacon events. Implementations
// must filter ListEventsInWindow by occurred_at with inclusive bounds so
// window pruning happens at the storage layer, not in memory over the
// full history.
type EventStore interface {
	SaveEvent(ctx context.Context, e *models.Event) error
	ListEventsInWindow(ctx context.Context, from, to time.Time) ([]*models.Event, error)
	CountEvents(ctx context.Context) (int64, error)
}

// =============================================
// ORDER STORE
// =============================================

// OrderStore holds webhook-delivered orders. UpsertOrder is keyed by
// ExternalOrderID and must be idempotent: a retried delivery overwrites
// TotalPrice and PromoCode (last write wins) instead of duplicating the
// order.
type OrderStore interface {
	UpsertOrder(ctx context.Context, o *models.Order) error
	ListOrdersInWindow(ctx context.Context, from, to time.Time) ([]*models.Order, error)
	GetOrderByExternalID(ctx context.Context, externalID string) (*models.Order, error)
}

// =============================================
// CAMPAIGN REGISTRY
// =============================================

// CampaignRepo is the campaign registry. Upsert enforces promo-code
// uniqueness across campaigns: two live campaigns sharing a code would
// double count the same orders and the engine cannot disambiguate them.
type CampaignRepo interface {
	ListCampaigns(ctx context.Context) ([]*models.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	GetCampaignBySlug(ctx context.Context, slug string) (*models.Campaign, error)
	GetActiveCampaigns(ctx context.Context) ([]*models.Campaign, error)
	UpsertCampaign(ctx context.Context, c *models.Campaign) error
	DeleteCampaign(ctx context.Context, id string) error
}

// =============================================
// INFLUENCER REPOSITORY
// =============================================

type InfluencerRepo interface {
	ListInfluencers(ctx context.Context) ([]*models.Influencer, error)
	GetInfluencer(ctx context.Context, id string) (*models.Influencer, error)
	UpsertInfluencer(ctx context.Context, i *models.Influencer) error
	DeleteInfluencer(ctx context.Context, id string) error
}

// =============================================
// SETTINGS
// =============================================

// SettingsRepo holds the single global rating-thresholds record.
// GetRatingThresholds returns defaults when nothing has been saved yet.
type SettingsRepo interface {
	GetRatingThresholds(ctx context.Context) (models.RatingThresholds, error)
	PutRatingThresholds(ctx context.Context, t models.RatingThresholds) error
}

// =============================================
// EVENT ARCHIVE
// =============================================

// EventArchive is an optional analytics sink for raw events, kept
// separate from the serving EventStore. Writes are best effort.
type EventArchive interface {
	ArchiveEvent(ctx context.Context, e *models.Event) error
	Close() error
}
