package attribution

import (
	"sort"

	"github.com/lumetric/attributor/internal/models"
)

// RevenueBasis selects which of the two attribution signals feeds the
// cost and ROAS computation for a view. The two revenue totals are kept
// as parallel metrics and never summed: a purchase may fire both the
// pixel and the promo code, and merging would double count it.
type RevenueBasis string

const (
	BasisUTM   RevenueBasis = "utm"
	BasisPromo RevenueBasis = "promo"
)

// ValidBasis reports whether b is a known revenue basis.
func ValidBasis(b RevenueBasis) bool {
	return b == BasisUTM || b == BasisPromo
}

// CampaignMetrics is the per-campaign aggregation over a window. Counts
// and revenue are raw sums; cost and ratio metrics are derived on demand
// per revenue basis.
type CampaignMetrics struct {
	CampaignID   string `json:"campaign_id"`
	CampaignSlug string `json:"campaign_slug"`
	InfluencerID string `json:"influencer_id,omitempty"`

	Clicks     int64 `json:"clicks"`
	AddToCarts int64 `json:"add_to_carts"`

	// Pixel-attributed purchases.
	OrdersUTM  int64   `json:"orders_utm"`
	RevenueUTM float64 `json:"revenue_utm"`

	// Promo-code-attributed orders.
	OrdersPromo  int64   `json:"orders_promo"`
	RevenuePromo float64 `json:"revenue_promo"`

	FixedCost         float64 `json:"fixed_cost"`
	CommissionPercent float64 `json:"commission_percent"`
}

// Revenue returns the total for the selected basis.
func (m *CampaignMetrics) Revenue(basis RevenueBasis) float64 {
	if basis == BasisPromo {
		return m.RevenuePromo
	}
	return m.RevenueUTM
}

// Orders returns the order count for the selected basis.
func (m *CampaignMetrics) Orders(basis RevenueBasis) int64 {
	if basis == BasisPromo {
		return m.OrdersPromo
	}
	return m.OrdersUTM
}

// CommissionCost is the variable part of the campaign cost: the
// commission percentage applied to the selected revenue basis.
func (m *CampaignMetrics) CommissionCost(basis RevenueBasis) float64 {
	return m.Revenue(basis) * m.CommissionPercent / 100
}

// TotalCost is fixed cost plus commission on the selected basis. It is
// never below FixedCost since commission cost is non-negative.
func (m *CampaignMetrics) TotalCost(basis RevenueBasis) float64 {
	return m.FixedCost + m.CommissionCost(basis)
}

// ROAS is revenue divided by total cost, or 0 when total cost is 0.
// Zero cost means ROAS is undefined, not infinite.
func (m *CampaignMetrics) ROAS(basis RevenueBasis) float64 {
	cost := m.TotalCost(basis)
	if cost <= 0 {
		return 0
	}
	return m.Revenue(basis) / cost
}

// ROIPercent is the signed return on investment as a percentage:
// (revenue - cost) / cost * 100. It is a different metric from ROAS and
// the two are never interchangeable; views pick one explicitly.
func (m *CampaignMetrics) ROIPercent(basis RevenueBasis) float64 {
	cost := m.TotalCost(basis)
	if cost <= 0 {
		return 0
	}
	return (m.Revenue(basis) - cost) / cost * 100
}

// ConversionRate is pixel-attributed orders per click, as a percentage.
// It is only meaningful for the UTM basis; the promo path has no click
// denominator so the promo view reports 0.
func (m *CampaignMetrics) ConversionRate(basis RevenueBasis) float64 {
	if basis != BasisUTM || m.Clicks == 0 {
		return 0
	}
	return float64(m.OrdersUTM) / float64(m.Clicks) * 100
}

// ComputeCampaignMetrics joins campaigns, events and orders over the
// window and returns one metrics record per campaign, ordered by slug.
// It is a pure function: inputs are never mutated and identical inputs
// produce identical output.
//
// Events and orders are filtered against the window here even when the
// storage layer already pre-filtered; the bounds check is cheap and
// guards against call sites that skip the filter.
func ComputeCampaignMetrics(
	campaigns []*models.Campaign,
	events []*models.Event,
	orders []*models.Order,
	window Window,
) []*CampaignMetrics {
	bySlug := make(map[string]*CampaignMetrics, len(campaigns))
	byPromo := make(map[string][]*CampaignMetrics)

	result := make([]*CampaignMetrics, 0, len(campaigns))
	for _, c := range campaigns {
		if c == nil {
			continue
		}
		m := &CampaignMetrics{
			CampaignID:        c.ID,
			CampaignSlug:      c.Slug,
			InfluencerID:      c.InfluencerID,
			FixedCost:         c.FixedCost,
			CommissionPercent: c.CommissionPercent,
		}
		result = append(result, m)
		bySlug[c.Slug] = m
		if code := models.NormalizeCode(c.PromoCode); code != "" {
			// Multiple campaigns sharing a promo code each count the same
			// orders. The registry rejects duplicates on write; this keeps
			// the engine deterministic if legacy data still has them.
			byPromo[code] = append(byPromo[code], m)
		}
	}

	for _, e := range events {
		if e == nil || !window.Contains(e.OccurredAt) {
			continue
		}
		// Untagged or unrecognized slugs attribute to nothing.
		m, ok := bySlug[e.CampaignSlug]
		if !ok {
			continue
		}
		switch e.Type {
		case models.EventPageView, models.EventProductView:
			m.Clicks++
		case models.EventAddToCart:
			m.AddToCarts++
		case models.EventPurchase:
			m.OrdersUTM++
			m.RevenueUTM += e.Revenue
		}
	}

	for _, o := range orders {
		if o == nil || !window.Contains(o.OccurredAt) {
			continue
		}
		code := models.NormalizeCode(o.PromoCode)
		if code == "" {
			continue
		}
		for _, m := range byPromo[code] {
			m.OrdersPromo++
			m.RevenuePromo += o.TotalPrice
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CampaignSlug < result[j].CampaignSlug
	})
	return result
}
