package orderhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumetric/attributor/internal/models"
	"github.com/lumetric/attributor/internal/storage"
)

// Service turns commerce-platform order webhooks into typed orders.
// Webhook deliveries are at-least-once, so the same external order may
// arrive repeatedly; the store upserts by external ID to keep ingestion
// idempotent.
type Service struct {
	store  storage.OrderStore
	logger *zap.Logger
}

func NewService(store storage.OrderStore, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// payload mirrors the loosely typed webhook body. Platforms disagree on
// field shapes: the external ID may be numeric or a string, the total
// may be a JSON number or a quoted decimal, and the promo code arrives
// either as a bare discount_code string or a discount_codes array of
// {code} objects.
type payload struct {
	ID            json.RawMessage `json:"id"`
	OrderNumber   json.RawMessage `json:"order_number"`
	TotalPrice    json.RawMessage `json:"total_price"`
	Currency      string          `json:"currency"`
	DiscountCode  string          `json:"discount_code"`
	DiscountCodes []discountCode  `json:"discount_codes"`
	CreatedAt     string          `json:"created_at"`
	ProcessedAt   string          `json:"processed_at"`
}

type discountCode struct {
	Code string `json:"code"`
}

// ParseOrder decodes a raw webhook body into a validated Order.
func ParseOrder(body []byte) (*models.Order, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("invalid webhook body: %w", err)
	}

	externalID := rawString(p.ID)
	if externalID == "" {
		externalID = rawString(p.OrderNumber)
	}
	if externalID == "" {
		return nil, fmt.Errorf("webhook order has no id or order_number")
	}

	total, err := rawFloat(p.TotalPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid total_price: %w", err)
	}
	if total < 0 {
		return nil, fmt.Errorf("total_price must be >= 0, got %v", total)
	}

	promo := p.DiscountCode
	if promo == "" && len(p.DiscountCodes) > 0 {
		promo = p.DiscountCodes[0].Code
	}

	occurredAt := time.Now().UTC()
	for _, stamp := range []string{p.ProcessedAt, p.CreatedAt} {
		if stamp == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, stamp)
		if err != nil {
			return nil, fmt.Errorf("invalid order timestamp %q: %w", stamp, err)
		}
		occurredAt = t.UTC()
		break
	}

	return &models.Order{
		ID:              uuid.New().String(),
		ExternalOrderID: externalID,
		TotalPrice:      total,
		Currency:        strings.ToUpper(strings.TrimSpace(p.Currency)),
		PromoCode:       models.NormalizeCode(promo),
		OccurredAt:      occurredAt,
	}, nil
}

// Ingest parses the webhook body and upserts the order.
func (s *Service) Ingest(ctx context.Context, body []byte) (*models.Order, error) {
	o, err := ParseOrder(body)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpsertOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to upsert order: %w", err)
	}

	// Re-read so repeated deliveries report the stored internal ID, not
	// the candidate one generated above.
	stored, err := s.store.GetOrderByExternalID(ctx, o.ExternalOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load upserted order: %w", err)
	}
	if stored == nil {
		stored = o
	}

	s.logger.Debug("order ingested",
		zap.String("external_order_id", stored.ExternalOrderID),
		zap.String("promo_code", stored.PromoCode),
		zap.Float64("total_price", stored.TotalPrice),
	)
	return stored, nil
}

// rawString accepts a JSON string or number and returns it as a string.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// rawFloat accepts a JSON number or a quoted decimal like "49.99".
func rawFloat(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("expected number or numeric string, got %s", raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
