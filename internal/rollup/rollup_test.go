package rollup

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCounterErr(t *testing.T) {
	// A missing key reads as an idle day.
	assert.NoError(t, counterErr(nil))
	assert.NoError(t, counterErr(redis.Nil))
	assert.NoError(t, counterErr(fmt.Errorf("wrapped: %w", redis.Nil)))

	// Anything else is a backend failure the caller must see.
	outage := errors.New("connection refused")
	assert.Equal(t, outage, counterErr(outage))
}

func TestGetTimeSeriesRejectsInvertedRange(t *testing.T) {
	s := NewService(nil, zap.NewNop())

	from := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	_, err := s.GetTimeSeries(context.Background(), "summer-launch", from, from.AddDate(0, 0, -1))
	require.Error(t, err)
}

func TestCounterKey(t *testing.T) {
	assert.Equal(t, "rollup:clicks:summer-launch:2024-06-15", counterKey("clicks", "summer-launch", "2024-06-15"))
}
