package beacon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumetric/attributor/internal/metrics"
	"github.com/lumetric/attributor/internal/models"
	"github.com/lumetric/attributor/internal/storage"
)

func TestParseEventPixelHit(t *testing.T) {
	q, err := url.ParseQuery("campaign=summer-launch&event=page_view&session=sess-1&utm_source=instagram")
	require.NoError(t, err)

	e, err := ParseEvent(ParamsFromQuery(q))
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "summer-launch", e.CampaignSlug)
	assert.Equal(t, models.EventPageView, e.Type)
	assert.Equal(t, "sess-1", e.SessionID)
	assert.Zero(t, e.Revenue)
	assert.Equal(t, "instagram", e.RawPayload["utm_source"])
	assert.WithinDuration(t, time.Now().UTC(), e.OccurredAt, 5*time.Second)
}

func TestParseEventPurchaseRevenue(t *testing.T) {
	e, err := ParseEvent(EventParams{
		CampaignSlug: "summer-launch",
		EventType:    "purchase",
		Revenue:      json.RawMessage(`"49.99"`),
		OccurredAt:   "2024-06-15T12:30:00Z",
	})
	require.NoError(t, err)

	assert.Equal(t, 49.99, e.Revenue)
	assert.Equal(t, time.Date(2024, 6, 15, 12, 30, 0, 0, time.UTC), e.OccurredAt)
}

func TestParseEventRevenueNumberOrString(t *testing.T) {
	// Webhook payloads send revenue as a JSON number, the pixel path
	// as a quoted decimal. Both must decode to the same value.
	for _, tc := range []struct {
		name string
		body string
	}{
		{"number", `{"campaign_slug":"summer-launch","event_type":"purchase","revenue":49.99}`},
		{"string", `{"campaign_slug":"summer-launch","event_type":"purchase","revenue":"49.99"}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var p EventParams
			require.NoError(t, json.Unmarshal([]byte(tc.body), &p))

			e, err := ParseEvent(p)
			require.NoError(t, err)
			assert.Equal(t, 49.99, e.Revenue)
		})
	}
}

func TestParseEventRevenueIgnoredOutsidePurchase(t *testing.T) {
	e, err := ParseEvent(EventParams{
		CampaignSlug: "summer-launch",
		EventType:    "add_to_cart",
		Revenue:      json.RawMessage(`49.99`),
	})
	require.NoError(t, err)
	assert.Zero(t, e.Revenue)
}

func TestParseEventMissingCampaignAccepted(t *testing.T) {
	// Shoppers arriving without a tracked link still count as traffic.
	for _, slug := range []string{"", "unknown"} {
		e, err := ParseEvent(EventParams{CampaignSlug: slug, EventType: "page_view"})
		require.NoError(t, err)
		assert.Empty(t, e.CampaignSlug)
	}
}

func TestParseEventRejectsBadInput(t *testing.T) {
	cases := []struct {
		name   string
		params EventParams
	}{
		{"unknown event type", EventParams{EventType: "hover"}},
		{"empty event type", EventParams{}},
		{"garbage revenue", EventParams{EventType: "purchase", Revenue: json.RawMessage(`"lots"`)}},
		{"negative string revenue", EventParams{EventType: "purchase", Revenue: json.RawMessage(`"-5"`)}},
		{"negative number revenue", EventParams{EventType: "purchase", Revenue: json.RawMessage(`-5`)}},
		{"revenue object", EventParams{EventType: "purchase", Revenue: json.RawMessage(`{"amount":5}`)}},
		{"garbage timestamp", EventParams{EventType: "page_view", OccurredAt: "yesterday"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseEvent(tc.params)
			assert.Error(t, err)
		})
	}
}

func TestIngestPersistsEvent(t *testing.T) {
	store := storage.NewInMemoryEventStore()
	svc := NewService(store, nil, nil, nil, nil, zap.NewNop())

	e, err := svc.Ingest(context.Background(), EventParams{
		CampaignSlug: "summer-launch",
		EventType:    "purchase",
		Revenue:      json.RawMessage(`20`),
	}, "203.0.113.7")
	require.NoError(t, err)

	count, err := store.CountEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 20.0, e.Revenue)
}

type stubArchive struct {
	err   error
	calls int
}

func (a *stubArchive) ArchiveEvent(ctx context.Context, e *models.Event) error {
	a.calls++
	return a.err
}

func (a *stubArchive) Close() error { return nil }

func TestIngestCountsArchiveOutcomes(t *testing.T) {
	// Prometheus collectors register globally, so build them once here.
	m := metrics.NewMetrics("beacon_test")

	archive := &stubArchive{}
	svc := NewService(storage.NewInMemoryEventStore(), archive, nil, nil, m, zap.NewNop())

	_, err := svc.Ingest(context.Background(), EventParams{EventType: "page_view"}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, archive.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsArchived))
	assert.Zero(t, testutil.ToFloat64(m.ArchiveFailures))

	archive.err = errors.New("cold storage down")
	_, err = svc.Ingest(context.Background(), EventParams{EventType: "page_view"}, "")
	require.NoError(t, err, "an archive failure must not fail the ingest")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsArchived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ArchiveFailures))
}

func TestClientIP(t *testing.T) {
	r := &http.Request{Header: http.Header{}, RemoteAddr: "192.0.2.1:5123"}
	assert.Equal(t, "192.0.2.1", ClientIP(r))

	r.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientIP(r))
}
