package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumetric/attributor/internal/models"
)

func testThresholds() models.RatingThresholds {
	return models.RatingThresholds{
		Star1Min: 0,
		Star1Max: 1.99,
		Star2Min: 2.0,
		Star2Max: 3.99,
		Star3Min: 4.0,
		LossText: "Losing money",
	}
}

func TestClassifyRating_NewBeforeEverything(t *testing.T) {
	th := testThresholds()

	r := ClassifyRating(0, 0, th)
	assert.Equal(t, RatingLabelNew, r.Label)
	assert.Equal(t, 0, r.Stars)

	// A stray positive roas with zero campaigns is still "new".
	r = ClassifyRating(5.5, 0, th)
	assert.Equal(t, RatingLabelNew, r.Label)

	// So is a negative one.
	r = ClassifyRating(-1, 0, th)
	assert.Equal(t, RatingLabelNew, r.Label)
}

func TestClassifyRating_Loss(t *testing.T) {
	r := ClassifyRating(-0.5, 3, testThresholds())
	assert.Equal(t, 0, r.Stars)
	assert.Equal(t, "Losing money", r.Label)

	th := testThresholds()
	th.LossText = ""
	r = ClassifyRating(-0.5, 3, th)
	assert.Equal(t, "loss", r.Label)
}

func TestClassifyRating_Tiers(t *testing.T) {
	th := testThresholds()

	tests := []struct {
		name  string
		roas  float64
		stars int
	}{
		{"bottom of 1-star", 0, 1},
		{"inside 1-star", 1.5, 1},
		{"top of 1-star stays 1-star", 1.99, 1},
		{"bottom of 2-star", 2.0, 2},
		{"inside 2-star", 3.0, 2},
		{"bottom of 3-star", 4.0, 3},
		{"far above 3-star", 100, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ClassifyRating(tt.roas, 1, th)
			assert.Equal(t, tt.stars, r.Stars)
		})
	}
}

func TestClassifyRating_SharedBoundaryLandsInLowerTier(t *testing.T) {
	th := models.RatingThresholds{
		Star1Min: 0, Star1Max: 2.0,
		Star2Min: 2.0, Star2Max: 4.0,
		Star3Min: 4.0,
	}

	// 2.0 satisfies both the 1-star and 2-star intervals; rule order
	// gives it to 1 star.
	r := ClassifyRating(2.0, 1, th)
	assert.Equal(t, 1, r.Stars)

	r = ClassifyRating(4.0, 1, th)
	assert.Equal(t, 2, r.Stars)
}

func TestClassifyRating_GapSnapsToNearestBoundary(t *testing.T) {
	// Gap between 1.99 and 2.5.
	th := models.RatingThresholds{
		Star1Min: 0, Star1Max: 1.99,
		Star2Min: 2.5, Star2Max: 3.99,
		Star3Min: 4.0,
	}

	r := ClassifyRating(2.0, 1, th)
	assert.Equal(t, 1, r.Stars, "closer to star1Max")

	r = ClassifyRating(2.45, 1, th)
	assert.Equal(t, 2, r.Stars, "closer to star2Min")
}

func TestClassifyRating_BelowConfiguredRange(t *testing.T) {
	th := models.RatingThresholds{
		Star1Min: 1.0, Star1Max: 1.99,
		Star2Min: 2.0, Star2Max: 3.99,
		Star3Min: 4.0,
	}

	// 0.2 is below every interval; nearest boundary is star1Min.
	r := ClassifyRating(0.2, 1, th)
	assert.Equal(t, 1, r.Stars)
}
