package models

import (
	"strings"
	"time"
)

// Order is a completed commerce transaction delivered by the order
// webhook. Orders are upserted by ExternalOrderID so webhook retries
// are idempotent; the latest delivery wins on TotalPrice and PromoCode.
type Order struct {
	ID              string    `json:"id"`
	ExternalOrderID string    `json:"external_order_id"`
	TotalPrice      float64   `json:"total_price"`
	Currency        string    `json:"currency"`
	PromoCode       string    `json:"promo_code,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NormalizeCode canonicalizes a promo code for matching. Promo codes
// are compared trim- and case-insensitively throughout the system.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
