package orderhook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumetric/attributor/internal/storage"
)

func TestParseOrderDiscountCodesArray(t *testing.T) {
	body := []byte(`{
		"id": 820982911,
		"total_price": "149.90",
		"currency": "usd",
		"discount_codes": [{"code": " SAVE15 "}],
		"created_at": "2024-06-01T10:00:00Z"
	}`)

	o, err := ParseOrder(body)
	require.NoError(t, err)

	assert.Equal(t, "820982911", o.ExternalOrderID)
	assert.Equal(t, 149.90, o.TotalPrice)
	assert.Equal(t, "USD", o.Currency)
	assert.Equal(t, "save15", o.PromoCode)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), o.OccurredAt)
	assert.NotEmpty(t, o.ID)
}

func TestParseOrderBareDiscountCode(t *testing.T) {
	body := []byte(`{
		"order_number": "A-1003",
		"total_price": 59.5,
		"currency": "EUR",
		"discount_code": "Lena10"
	}`)

	o, err := ParseOrder(body)
	require.NoError(t, err)

	assert.Equal(t, "A-1003", o.ExternalOrderID)
	assert.Equal(t, 59.5, o.TotalPrice)
	assert.Equal(t, "lena10", o.PromoCode)
}

func TestParseOrderNoPromoCode(t *testing.T) {
	o, err := ParseOrder([]byte(`{"id": "77", "total_price": 10}`))
	require.NoError(t, err)
	assert.Empty(t, o.PromoCode)
}

func TestParseOrderPrefersProcessedAt(t *testing.T) {
	body := []byte(`{
		"id": 5,
		"total_price": 1,
		"created_at": "2024-06-01T00:00:00Z",
		"processed_at": "2024-06-02T00:00:00Z"
	}`)

	o, err := ParseOrder(body)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), o.OccurredAt)
}

func TestParseOrderRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", `{"id":`},
		{"missing identifiers", `{"total_price": 5}`},
		{"garbage total", `{"id": 1, "total_price": "a lot"}`},
		{"negative total", `{"id": 1, "total_price": -3}`},
		{"garbage timestamp", `{"id": 1, "total_price": 5, "created_at": "june"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseOrder([]byte(tc.body))
			assert.Error(t, err)
		})
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	store := storage.NewInMemoryOrderStore()
	svc := NewService(store, zap.NewNop())
	ctx := context.Background()

	body := []byte(`{"id": 101, "total_price": "35.00", "discount_code": "save15"}`)

	first, err := svc.Ingest(ctx, body)
	require.NoError(t, err)

	// Same delivery again with an updated price. One order, new price,
	// same internal ID.
	second, err := svc.Ingest(ctx, []byte(`{"id": 101, "total_price": "40.00", "discount_code": "save15"}`))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 40.0, second.TotalPrice)

	orders, err := store.ListOrdersInWindow(ctx, time.Time{}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
