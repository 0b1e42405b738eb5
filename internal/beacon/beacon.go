package beacon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumetric/attributor/internal/metrics"
	"github.com/lumetric/attributor/internal/models"
	"github.com/lumetric/attributor/internal/rollup"
	"github.com/lumetric/attributor/internal/storage"
)

// Service ingests tracking-beacon hits and turns them into typed
// events. Ingest is fire-and-forget from the storefront's perspective:
// a storage failure is logged and the pixel is still served, the beacon
// never blocks or breaks a shopper's page.
type Service struct {
	store   storage.EventStore
	archive storage.EventArchive
	rollups *rollup.Service
	geo     GeoResolver
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService creates a beacon ingest service. archive, rollups, geo and
// m are optional; pass nil to disable them.
func NewService(
	store storage.EventStore,
	archive storage.EventArchive,
	rollups *rollup.Service,
	geo GeoResolver,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:   store,
		archive: archive,
		rollups: rollups,
		geo:     geo,
		metrics: m,
		logger:  logger,
	}
}

// EventParams carries the raw, untrusted beacon fields before parsing.
// Revenue is kept raw so JSON bodies may send it as a number or as a
// quoted decimal string; both forms show up in the wild.
type EventParams struct {
	CampaignSlug string            `json:"campaign_slug"`
	EventType    string            `json:"event_type"`
	SessionID    string            `json:"session_id"`
	Revenue      json.RawMessage   `json:"revenue,omitempty"`
	OccurredAt   string            `json:"occurred_at"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// ParamsFromQuery extracts beacon params from a pixel GET request.
func ParamsFromQuery(q url.Values) EventParams {
	extra := make(map[string]string)
	for key, vals := range q {
		switch key {
		case "campaign", "event", "session", "revenue", "ts":
		default:
			if len(vals) > 0 {
				extra[key] = vals[0]
			}
		}
	}
	var revenue json.RawMessage
	if v := q.Get("revenue"); v != "" {
		revenue = json.RawMessage(strconv.Quote(v))
	}
	return EventParams{
		CampaignSlug: q.Get("campaign"),
		EventType:    q.Get("event"),
		SessionID:    q.Get("session"),
		Revenue:      revenue,
		OccurredAt:   q.Get("ts"),
		Extra:        extra,
	}
}

// ParseEvent validates raw beacon params into a typed Event. The
// campaign slug may be absent or "unknown" (the shopper arrived without
// a tracked link); that is stored as an untagged event, not rejected.
func ParseEvent(p EventParams) (*models.Event, error) {
	eventType := models.EventType(strings.TrimSpace(p.EventType))
	if !models.ValidEventType(eventType) {
		return nil, fmt.Errorf("unknown event type %q", p.EventType)
	}

	slug := strings.TrimSpace(p.CampaignSlug)
	if slug == "unknown" {
		slug = ""
	}

	revenue, err := parseRevenue(p.Revenue)
	if err != nil {
		return nil, err
	}
	// Revenue only means something on a purchase.
	if eventType != models.EventPurchase {
		revenue = 0
	}

	occurredAt := time.Now().UTC()
	if p.OccurredAt != "" {
		t, err := time.Parse(time.RFC3339, p.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", p.OccurredAt, err)
		}
		occurredAt = t.UTC()
	}

	return &models.Event{
		ID:           uuid.New().String(),
		CampaignSlug: slug,
		Type:         eventType,
		SessionID:    strings.TrimSpace(p.SessionID),
		Revenue:      revenue,
		OccurredAt:   occurredAt,
		RawPayload:   p.Extra,
	}, nil
}

// parseRevenue accepts a JSON number or a quoted decimal string.
func parseRevenue(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, nil
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("invalid revenue %s", raw)
		}
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid revenue %q: %w", s, err)
		}
		v = f
	}

	if v < 0 {
		return 0, fmt.Errorf("revenue must be >= 0, got %v", v)
	}
	return v, nil
}

// Ingest parses and records a beacon hit. clientIP feeds the optional
// geo enrichment.
func (s *Service) Ingest(ctx context.Context, p EventParams, clientIP string) (*models.Event, error) {
	e, err := ParseEvent(p)
	if err != nil {
		return nil, err
	}

	if s.geo != nil && clientIP != "" {
		e.GeoCountry = s.geo.Country(clientIP)
	}

	if err := s.store.SaveEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to save event: %w", err)
	}

	if s.rollups != nil {
		s.rollups.RecordEvent(ctx, e)
	}

	if s.archive != nil {
		err := s.archive.ArchiveEvent(ctx, e)
		if err != nil {
			s.logger.Warn("failed to archive event", zap.String("event_id", e.ID), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordArchive(err == nil)
		}
	}

	s.logger.Debug("event ingested",
		zap.String("event_id", e.ID),
		zap.String("campaign_slug", e.CampaignSlug),
		zap.String("type", string(e.Type)),
	)
	return e, nil
}

// ClientIP extracts the originating IP, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// TransparentPixel is a 1x1 transparent GIF served to pixel requests.
var TransparentPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0xFF, 0xFF, 0xFF,
	0x00, 0x00, 0x00, 0x21, 0xF9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44,
	0x01, 0x00, 0x3B,
}
