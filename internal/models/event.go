package models

import (
	"time"
)

// EventType identifies what the tracking beacon observed.
type EventType string

const (
	EventPageView    EventType = "page_view"
	EventProductView EventType = "product_view"
	EventAddToCart   EventType = "add_to_cart"
	EventPurchase    EventType = "purchase"
)

// ValidEventType reports whether t is one of the known beacon event types.
func ValidEventType(t EventType) bool {
	switch t {
	case EventPageView, EventProductView, EventAddToCart, EventPurchase:
		return true
	}
	return false
}

// Event is a single attribution-relevant occurrence recorded by the
// tracking beacon. Events are append-only: once written they are never
// mutated. CampaignSlug is empty when the visitor arrived without a
// tracked link; such events are kept but attributed to no campaign.
type Event struct {
	ID           string            `json:"id"`
	CampaignSlug string            `json:"campaign_slug,omitempty"`
	Type         EventType         `json:"event_type"`
	SessionID    string            `json:"session_id"`
	// Revenue is only meaningful for purchase events.
	Revenue    float64           `json:"revenue,omitempty"`
	GeoCountry string            `json:"geo_country,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	RawPayload map[string]string `json:"raw_payload,omitempty"`
}
