package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/lumetric/attributor/internal/attribution"
	"github.com/lumetric/attributor/internal/models"
	"github.com/lumetric/attributor/internal/storage"
)

// ReportService loads a window snapshot from the stores, runs the
// attribution engine over it and shapes the result into the dashboard,
// campaign-list and influencer-scorecard views. All ratio metrics are
// derived per request for the caller's chosen revenue basis.
type ReportService struct {
	campaigns   storage.CampaignRepo
	influencers storage.InfluencerRepo
	events      storage.EventStore
	orders      storage.OrderStore
	settings    storage.SettingsRepo
	logger      *zap.Logger
}

func NewReportService(
	campaigns storage.CampaignRepo,
	influencers storage.InfluencerRepo,
	events storage.EventStore,
	orders storage.OrderStore,
	settings storage.SettingsRepo,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		campaigns:   campaigns,
		influencers: influencers,
		events:      events,
		orders:      orders,
		settings:    settings,
		logger:      logger,
	}
}

// CampaignReport is one dashboard row: the raw per-campaign aggregates
// plus the ratio metrics derived for the requested basis.
type CampaignReport struct {
	Campaign *models.Campaign             `json:"campaign"`
	Metrics  *attribution.CampaignMetrics `json:"metrics"`

	Basis          attribution.RevenueBasis `json:"basis"`
	Revenue        float64                  `json:"revenue"`
	TotalCost      float64                  `json:"total_cost"`
	ROAS           float64                  `json:"roas"`
	ROIPercent     float64                  `json:"roi_percent"`
	ConversionRate float64                  `json:"conversion_rate"`
}

// DashboardReport is the windowed overview: per-campaign rows plus the
// grand totals. TotalROAS is total revenue over total cost, not an
// average of per-campaign ratios.
type DashboardReport struct {
	From  time.Time                `json:"from"`
	To    time.Time                `json:"to"`
	Basis attribution.RevenueBasis `json:"basis"`

	Campaigns []*CampaignReport `json:"campaigns"`

	TotalClicks  int64   `json:"total_clicks"`
	TotalOrders  int64   `json:"total_orders"`
	TotalRevenue float64 `json:"total_revenue"`
	TotalCost    float64 `json:"total_cost"`
	TotalROAS    float64 `json:"total_roas"`
}

// InfluencerScorecard aggregates one influencer's campaigns over the
// window. ROAS is summed revenue over summed cost across the
// influencer's campaigns, and the star rating classifies that combined
// ratio. Influencer is nil when campaigns reference an ID that no
// longer exists; the row is still reported so its spend stays visible.
type InfluencerScorecard struct {
	InfluencerID string             `json:"influencer_id"`
	Influencer   *models.Influencer `json:"influencer,omitempty"`

	CampaignCount int     `json:"campaign_count"`
	Clicks        int64   `json:"clicks"`
	Orders        int64   `json:"orders"`
	Revenue       float64 `json:"revenue"`
	TotalCost     float64 `json:"total_cost"`
	ROAS          float64 `json:"roas"`

	Rating attribution.Rating `json:"rating"`
}

// snapshot loads campaigns plus the window's events and orders.
func (s *ReportService) snapshot(ctx context.Context, w attribution.Window) (
	[]*models.Campaign, []*models.Event, []*models.Order, error,
) {
	campaigns, err := s.campaigns.ListCampaigns(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	events, err := s.events.ListEventsInWindow(ctx, w.From, w.To)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list events: %w", err)
	}
	orders, err := s.orders.ListOrdersInWindow(ctx, w.From, w.To)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return campaigns, events, orders, nil
}

// CampaignReports computes the per-campaign rows for the window.
func (s *ReportService) CampaignReports(
	ctx context.Context,
	w attribution.Window,
	basis attribution.RevenueBasis,
) ([]*CampaignReport, error) {
	campaigns, events, orders, err := s.snapshot(ctx, w)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Campaign, len(campaigns))
	for _, c := range campaigns {
		byID[c.ID] = c
	}

	metrics := attribution.ComputeCampaignMetrics(campaigns, events, orders, w)
	reports := make([]*CampaignReport, 0, len(metrics))
	for _, m := range metrics {
		reports = append(reports, &CampaignReport{
			Campaign:       byID[m.CampaignID],
			Metrics:        m,
			Basis:          basis,
			Revenue:        m.Revenue(basis),
			TotalCost:      m.TotalCost(basis),
			ROAS:           m.ROAS(basis),
			ROIPercent:     m.ROIPercent(basis),
			ConversionRate: m.ConversionRate(basis),
		})
	}
	return reports, nil
}

// Dashboard computes the windowed overview.
func (s *ReportService) Dashboard(
	ctx context.Context,
	w attribution.Window,
	basis attribution.RevenueBasis,
) (*DashboardReport, error) {
	reports, err := s.CampaignReports(ctx, w, basis)
	if err != nil {
		return nil, err
	}

	d := &DashboardReport{
		From:      w.From,
		To:        w.To,
		Basis:     basis,
		Campaigns: reports,
	}
	for _, r := range reports {
		d.TotalClicks += r.Metrics.Clicks
		d.TotalOrders += r.Metrics.Orders(basis)
		d.TotalRevenue += r.Revenue
		d.TotalCost += r.TotalCost
	}
	if d.TotalCost > 0 {
		d.TotalROAS = d.TotalRevenue / d.TotalCost
	}

	s.logger.Debug("dashboard computed",
		zap.Int("campaigns", len(reports)),
		zap.String("basis", string(basis)),
	)
	return d, nil
}

// InfluencerScorecards groups the window's campaign metrics by
// influencer and rates each one. Every registered influencer gets a
// card: one with no campaigns rates "new". A campaign whose influencer
// record was deleted still produces a card so its spend stays visible.
func (s *ReportService) InfluencerScorecards(
	ctx context.Context,
	w attribution.Window,
	basis attribution.RevenueBasis,
) ([]*InfluencerScorecard, error) {
	campaigns, events, orders, err := s.snapshot(ctx, w)
	if err != nil {
		return nil, err
	}
	influencers, err := s.influencers.ListInfluencers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list influencers: %w", err)
	}
	thresholds, err := s.settings.GetRatingThresholds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rating thresholds: %w", err)
	}

	cards := make(map[string]*InfluencerScorecard, len(influencers))
	for _, inf := range influencers {
		cards[inf.ID] = &InfluencerScorecard{InfluencerID: inf.ID, Influencer: inf}
	}

	for _, m := range attribution.ComputeCampaignMetrics(campaigns, events, orders, w) {
		if m.InfluencerID == "" {
			continue
		}
		card, ok := cards[m.InfluencerID]
		if !ok {
			s.logger.Warn("campaign references missing influencer",
				zap.String("campaign_id", m.CampaignID),
				zap.String("influencer_id", m.InfluencerID),
			)
			card = &InfluencerScorecard{InfluencerID: m.InfluencerID}
			cards[m.InfluencerID] = card
		}
		card.CampaignCount++
		card.Clicks += m.Clicks
		card.Orders += m.Orders(basis)
		card.Revenue += m.Revenue(basis)
		card.TotalCost += m.TotalCost(basis)
	}

	result := make([]*InfluencerScorecard, 0, len(cards))
	for _, card := range cards {
		if card.TotalCost > 0 {
			card.ROAS = card.Revenue / card.TotalCost
		}
		card.Rating = attribution.ClassifyRating(card.ROAS, card.CampaignCount, thresholds)
		result = append(result, card)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].InfluencerID < result[j].InfluencerID
	})
	return result, nil
}
