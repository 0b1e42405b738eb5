package models

import (
	"errors"
	"time"
)

type CampaignStatus string

const (
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

type TargetType string

const (
	TargetHomepage TargetType = "homepage"
	TargetProduct  TargetType = "product"
)

// Campaign configures a single influencer engagement. Slug is the join
// key against Event.CampaignSlug (case-sensitive exact match); PromoCode,
// when set, is the join key against Order.PromoCode (normalized match).
type Campaign struct {
	ID           string     `json:"id"`
	InfluencerID string     `json:"influencer_id,omitempty"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	PromoCode    string     `json:"promo_code,omitempty"`
	TargetType   TargetType `json:"target_type"`
	ProductURL   string     `json:"product_url,omitempty"`

	// FixedCost is the flat fee paid to the influencer; CommissionPercent
	// (0-100) is applied to whichever revenue basis the caller selects.
	FixedCost         float64 `json:"fixed_cost"`
	CommissionPercent float64 `json:"commission_percent"`

	Status    CampaignStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (c *Campaign) Validate() error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	if c.Slug == "" {
		return errors.New("slug is required")
	}
	if c.FixedCost < 0 {
		return errors.New("fixed_cost must be >= 0")
	}
	if c.CommissionPercent < 0 || c.CommissionPercent > 100 {
		return errors.New("commission_percent must be between 0 and 100")
	}
	if c.TargetType == TargetProduct && c.ProductURL == "" {
		return errors.New("product_url is required for product campaigns")
	}
	switch c.Status {
	case CampaignStatusActive, CampaignStatusPaused, CampaignStatusCompleted:
	default:
		return errors.New("invalid status")
	}
	return nil
}
