package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumetric/attributor/internal/models"
)

func TestInMemoryOrderStore_UpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryOrderStore()

	first := &models.Order{
		ID:              "internal-1",
		ExternalOrderID: "shop-1001",
		TotalPrice:      50,
		Currency:        "USD",
		PromoCode:       "SAVE10",
		OccurredAt:      time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.UpsertOrder(ctx, first))

	// Webhook retry with amended price and code.
	retry := &models.Order{
		ID:              "internal-2",
		ExternalOrderID: "shop-1001",
		TotalPrice:      45,
		Currency:        "USD",
		PromoCode:       "save15",
		OccurredAt:      time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.UpsertOrder(ctx, retry))

	got, err := s.GetOrderByExternalID(ctx, "shop-1001")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "internal-1", got.ID, "internal id stays stable across retries")
	assert.Equal(t, 45.0, got.TotalPrice, "last write wins on price")
	assert.Equal(t, "save15", got.PromoCode, "last write wins on promo code")

	orders, err := s.ListOrdersInWindow(ctx, time.Time{}, time.Now())
	require.NoError(t, err)
	assert.Len(t, orders, 1, "retry never duplicates the order")
}

func TestInMemoryOrderStore_RetryKeepsFirstSeenTimestamp(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryOrderStore()

	firstSeen := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertOrder(ctx, &models.Order{
		ID:              "internal-1",
		ExternalOrderID: "shop-1001",
		TotalPrice:      50,
		OccurredAt:      firstSeen,
	}))

	// A delayed retry carries the commerce platform's resend time, not
	// the order time. The stored timestamp must not move.
	require.NoError(t, s.UpsertOrder(ctx, &models.Order{
		ID:              "internal-2",
		ExternalOrderID: "shop-1001",
		TotalPrice:      50,
		OccurredAt:      firstSeen.Add(48 * time.Hour),
	}))

	got, err := s.GetOrderByExternalID(ctx, "shop-1001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, firstSeen, got.OccurredAt)
}

func TestInMemoryOrderStore_RequiresExternalID(t *testing.T) {
	s := NewInMemoryOrderStore()
	err := s.UpsertOrder(context.Background(), &models.Order{ID: "x"})
	assert.Error(t, err)
}

func TestInMemoryEventStore_WindowInclusive(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryEventStore()

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)

	stamps := []time.Time{
		from.Add(-time.Second), // before
		from,                   // lower bound
		from.AddDate(0, 0, 10), // inside
		to,                     // upper bound
		to.Add(time.Second),    // after
	}
	for i, ts := range stamps {
		require.NoError(t, s.SaveEvent(ctx, &models.Event{
			ID:         string(rune('a' + i)),
			Type:       models.EventPageView,
			OccurredAt: ts,
		}))
	}

	got, err := s.ListEventsInWindow(ctx, from, to)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	count, err := s.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestInMemoryEventStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryEventStore()

	e := &models.Event{ID: "e1", Type: models.EventPurchase, Revenue: 10, OccurredAt: time.Now().UTC()}
	require.NoError(t, s.SaveEvent(ctx, e))

	got, err := s.ListEventsInWindow(ctx, time.Time{}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)

	got[0].Revenue = 999
	again, err := s.ListEventsInWindow(ctx, time.Time{}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 10.0, again[0].Revenue, "caller mutation does not leak into the store")
}

func TestInMemoryCampaignRepo_PromoCodeUniqueness(t *testing.T) {
	ctx := context.Background()
	r := NewInMemoryCampaignRepo()

	a := &models.Campaign{ID: "c1", Slug: "summer", PromoCode: "SAVE10", Status: models.CampaignStatusActive}
	require.NoError(t, r.UpsertCampaign(ctx, a))

	// Normalized collision: " save10 " is the same code.
	b := &models.Campaign{ID: "c2", Slug: "autumn", PromoCode: " save10 ", Status: models.CampaignStatusActive}
	err := r.UpsertCampaign(ctx, b)
	require.Error(t, err)

	var taken *ErrPromoCodeTaken
	require.ErrorAs(t, err, &taken)
	assert.Equal(t, "c1", taken.CampaignID)

	// Re-upserting the owner itself is fine.
	a.Name = "renamed"
	assert.NoError(t, r.UpsertCampaign(ctx, a))

	// Campaigns without promo codes never collide.
	assert.NoError(t, r.UpsertCampaign(ctx, &models.Campaign{ID: "c3", Slug: "winter", Status: models.CampaignStatusActive}))
	assert.NoError(t, r.UpsertCampaign(ctx, &models.Campaign{ID: "c4", Slug: "spring", Status: models.CampaignStatusActive}))
}

func TestInMemoryCampaignRepo_GetBySlugAndActive(t *testing.T) {
	ctx := context.Background()
	r := NewInMemoryCampaignRepo()

	require.NoError(t, r.UpsertCampaign(ctx, &models.Campaign{ID: "c1", Slug: "summer", Status: models.CampaignStatusActive}))
	require.NoError(t, r.UpsertCampaign(ctx, &models.Campaign{ID: "c2", Slug: "autumn", Status: models.CampaignStatusPaused}))

	got, err := r.GetCampaignBySlug(ctx, "summer")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c1", got.ID)

	missing, err := r.GetCampaignBySlug(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	active, err := r.GetActiveCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "c1", active[0].ID)
}

func TestInMemorySettingsRepo_DefaultsUntilSaved(t *testing.T) {
	ctx := context.Background()
	r := NewInMemorySettingsRepo()

	got, err := r.GetRatingThresholds(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultRatingThresholds(), got)

	custom := models.RatingThresholds{Star1Min: 0, Star1Max: 1.5, Star2Min: 1.5, Star2Max: 3, Star3Min: 3, LossText: "in the red"}
	require.NoError(t, r.PutRatingThresholds(ctx, custom))

	got, err = r.GetRatingThresholds(ctx)
	require.NoError(t, err)
	assert.Equal(t, custom, got)
}
