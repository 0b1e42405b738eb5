package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumetric/attributor/internal/attribution"
	"github.com/lumetric/attributor/internal/models"
	"github.com/lumetric/attributor/internal/storage"
)

type fixture struct {
	campaigns   *storage.InMemoryCampaignRepo
	influencers *storage.InMemoryInfluencerRepo
	events      *storage.InMemoryEventStore
	orders      *storage.InMemoryOrderStore
	settings    *storage.InMemorySettingsRepo
	reports     *ReportService
}

func newFixture() *fixture {
	f := &fixture{
		campaigns:   storage.NewInMemoryCampaignRepo(),
		influencers: storage.NewInMemoryInfluencerRepo(),
		events:      storage.NewInMemoryEventStore(),
		orders:      storage.NewInMemoryOrderStore(),
		settings:    storage.NewInMemorySettingsRepo(),
	}
	f.reports = NewReportService(f.campaigns, f.influencers, f.events, f.orders, f.settings, zap.NewNop())
	return f
}

func (f *fixture) seedCampaign(t *testing.T, c *models.Campaign) {
	t.Helper()
	require.NoError(t, f.campaigns.UpsertCampaign(context.Background(), c))
}

var reportWindow = attribution.Window{
	From: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	To:   time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC),
}

func midJune(day int) time.Time {
	return time.Date(2024, 6, day, 12, 0, 0, 0, time.UTC)
}

func TestDashboardTotals(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.seedCampaign(t, &models.Campaign{
		ID: "c1", Slug: "launch-a", FixedCost: 100, CommissionPercent: 10,
		TargetType: models.TargetHomepage, Status: models.CampaignStatusActive,
	})
	f.seedCampaign(t, &models.Campaign{
		ID: "c2", Slug: "launch-b", FixedCost: 50,
		TargetType: models.TargetHomepage, Status: models.CampaignStatusActive,
	})

	for i, ev := range []*models.Event{
		{CampaignSlug: "launch-a", Type: models.EventPageView},
		{CampaignSlug: "launch-a", Type: models.EventPurchase, Revenue: 200},
		{CampaignSlug: "launch-b", Type: models.EventPageView},
	} {
		ev.ID = string(rune('a' + i))
		ev.OccurredAt = midJune(10)
		require.NoError(t, f.events.SaveEvent(ctx, ev))
	}

	d, err := f.reports.Dashboard(ctx, reportWindow, attribution.BasisUTM)
	require.NoError(t, err)

	assert.Len(t, d.Campaigns, 2)
	assert.Equal(t, int64(2), d.TotalClicks)
	assert.Equal(t, int64(1), d.TotalOrders)
	assert.Equal(t, 200.0, d.TotalRevenue)
	// 100 fixed + 10% of 200, plus 50 fixed for the idle campaign.
	assert.InDelta(t, 170.0, d.TotalCost, 1e-9)
	assert.InDelta(t, 200.0/170.0, d.TotalROAS, 1e-9)
}

func TestCampaignReportsDeriveBasisMetrics(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.seedCampaign(t, &models.Campaign{
		ID: "c1", Slug: "promo-push", PromoCode: "save15",
		FixedCost: 100, TargetType: models.TargetHomepage,
		Status: models.CampaignStatusActive,
	})
	require.NoError(t, f.orders.UpsertOrder(ctx, &models.Order{
		ID: "o1", ExternalOrderID: "x1", TotalPrice: 300,
		PromoCode: "save15", OccurredAt: midJune(5),
	}))

	promo, err := f.reports.CampaignReports(ctx, reportWindow, attribution.BasisPromo)
	require.NoError(t, err)
	require.Len(t, promo, 1)
	assert.Equal(t, 300.0, promo[0].Revenue)
	assert.InDelta(t, 3.0, promo[0].ROAS, 1e-9)

	// Same data under the UTM basis: no pixel purchases, so revenue is
	// zero and the fixed cost still counts.
	utm, err := f.reports.CampaignReports(ctx, reportWindow, attribution.BasisUTM)
	require.NoError(t, err)
	require.Len(t, utm, 1)
	assert.Zero(t, utm[0].Revenue)
	assert.Equal(t, 100.0, utm[0].TotalCost)
	assert.Zero(t, utm[0].ROAS)
}

func TestInfluencerScorecardsAggregateAcrossCampaigns(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.influencers.UpsertInfluencer(ctx, &models.Influencer{
		ID: "inf-1", Name: "Lena", Handle: "@lena",
	}))
	f.seedCampaign(t, &models.Campaign{
		ID: "c1", Slug: "lena-spring", InfluencerID: "inf-1", FixedCost: 100,
		TargetType: models.TargetHomepage, Status: models.CampaignStatusActive,
	})
	f.seedCampaign(t, &models.Campaign{
		ID: "c2", Slug: "lena-summer", InfluencerID: "inf-1", FixedCost: 100,
		TargetType: models.TargetHomepage, Status: models.CampaignStatusActive,
	})

	require.NoError(t, f.events.SaveEvent(ctx, &models.Event{
		ID: "e1", CampaignSlug: "lena-spring", Type: models.EventPurchase,
		Revenue: 500, OccurredAt: midJune(3),
	}))

	cards, err := f.reports.InfluencerScorecards(ctx, reportWindow, attribution.BasisUTM)
	require.NoError(t, err)
	require.Len(t, cards, 1)

	card := cards[0]
	assert.Equal(t, "inf-1", card.InfluencerID)
	require.NotNil(t, card.Influencer)
	assert.Equal(t, "Lena", card.Influencer.Name)
	assert.Equal(t, 2, card.CampaignCount)
	assert.Equal(t, 500.0, card.Revenue)
	// Both campaigns' fixed costs count against the combined ratio.
	assert.InDelta(t, 200.0, card.TotalCost, 1e-9)
	assert.InDelta(t, 2.5, card.ROAS, 1e-9)
	assert.Equal(t, 3, card.Rating.Stars)
}

func TestInfluencerWithoutCampaignsRatesNew(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.influencers.UpsertInfluencer(ctx, &models.Influencer{
		ID: "inf-9", Name: "Noah", Handle: "@noah",
	}))

	cards, err := f.reports.InfluencerScorecards(ctx, reportWindow, attribution.BasisUTM)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, 0, cards[0].Rating.Stars)
	assert.Equal(t, attribution.RatingLabelNew, cards[0].Rating.Label)
	assert.Zero(t, cards[0].CampaignCount)
}

func TestScorecardSurvivesDanglingInfluencer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.seedCampaign(t, &models.Campaign{
		ID: "c1", Slug: "ghost", InfluencerID: "gone", FixedCost: 40,
		TargetType: models.TargetHomepage, Status: models.CampaignStatusActive,
	})

	cards, err := f.reports.InfluencerScorecards(ctx, reportWindow, attribution.BasisUTM)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "gone", cards[0].InfluencerID)
	assert.Nil(t, cards[0].Influencer)
	assert.Equal(t, 40.0, cards[0].TotalCost)
}

func TestCampaignServiceSaveAssignsIDAndNormalizesPromo(t *testing.T) {
	f := newFixture()
	svc := NewCampaignService(f.campaigns, zap.NewNop())

	saved, err := svc.Save(context.Background(), &models.Campaign{
		Name: "Spring", Slug: " spring ", PromoCode: " SPRING20 ",
		TargetType: models.TargetHomepage,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "spring", saved.Slug)
	assert.Equal(t, "spring20", saved.PromoCode)
	assert.Equal(t, models.CampaignStatusActive, saved.Status)
	assert.False(t, saved.CreatedAt.IsZero())
}

func TestCampaignServiceRejectsInvalid(t *testing.T) {
	f := newFixture()
	svc := NewCampaignService(f.campaigns, zap.NewNop())

	_, err := svc.Save(context.Background(), &models.Campaign{
		Name: "No slug", TargetType: models.TargetHomepage,
	})
	assert.Error(t, err)

	_, err = svc.Save(context.Background(), &models.Campaign{
		Name: "Bad commission", Slug: "bad", TargetType: models.TargetHomepage,
		CommissionPercent: 150,
	})
	assert.Error(t, err)
}

func TestSettingsServiceValidatesThresholds(t *testing.T) {
	f := newFixture()
	svc := NewSettingsService(f.settings, zap.NewNop())
	ctx := context.Background()

	bad := models.DefaultRatingThresholds()
	bad.Star2Min = bad.Star2Max + 1
	assert.Error(t, svc.UpdateRatingThresholds(ctx, bad))

	good := models.DefaultRatingThresholds()
	good.LossText = "Unprofitable"
	require.NoError(t, svc.UpdateRatingThresholds(ctx, good))

	got, err := svc.GetRatingThresholds(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Unprofitable", got.LossText)
}
