package attribution

import (
	"math"

	"github.com/lumetric/attributor/internal/models"
)

// Rating is the discrete classification of an influencer's aggregated
// ROAS. Stars is 0 for both "new" and "loss"; Label distinguishes them.
type Rating struct {
	Stars int    `json:"stars"`
	Label string `json:"label"`
}

const (
	RatingLabelNew   = "new"
	RatingLabel1Star = "1_star"
	RatingLabel2Star = "2_star"
	RatingLabel3Star = "3_star"
	// loss ratings carry the operator-configured loss text as Label.
)

// ClassifyRating maps a ROAS value to a rating using the configured
// thresholds. Rules are checked in order, first match wins:
//
//  1. no campaigns at all -> "new"
//  2. negative input -> loss (reachable when a caller feeds the signed
//     ROI% metric instead of ROAS)
//  3-5. the closed star intervals, ascending, so a value on a shared
//     boundary classifies into the lower tier
//  6. a value falling in a gap between configured intervals snaps to
//     the nearest interval boundary; ties go to the lower tier
func ClassifyRating(roas float64, campaignCount int, t models.RatingThresholds) Rating {
	if campaignCount == 0 {
		return Rating{Stars: 0, Label: RatingLabelNew}
	}
	if roas < 0 {
		label := t.LossText
		if label == "" {
			label = "loss"
		}
		return Rating{Stars: 0, Label: label}
	}
	if roas >= t.Star1Min && roas <= t.Star1Max {
		return Rating{Stars: 1, Label: RatingLabel1Star}
	}
	if roas >= t.Star2Min && roas <= t.Star2Max {
		return Rating{Stars: 2, Label: RatingLabel2Star}
	}
	if roas >= t.Star3Min {
		return Rating{Stars: 3, Label: RatingLabel3Star}
	}
	return nearestTier(roas, t)
}

// nearestTier resolves values the configured intervals do not cover
// (below star1Min, or inside a gap between intervals) by snapping to
// the closest boundary.
func nearestTier(roas float64, t models.RatingThresholds) Rating {
	type boundary struct {
		value  float64
		rating Rating
	}
	boundaries := []boundary{
		{t.Star1Min, Rating{Stars: 1, Label: RatingLabel1Star}},
		{t.Star1Max, Rating{Stars: 1, Label: RatingLabel1Star}},
		{t.Star2Min, Rating{Stars: 2, Label: RatingLabel2Star}},
		{t.Star2Max, Rating{Stars: 2, Label: RatingLabel2Star}},
		{t.Star3Min, Rating{Stars: 3, Label: RatingLabel3Star}},
	}

	best := boundaries[0]
	bestDist := math.Abs(roas - best.value)
	for _, b := range boundaries[1:] {
		d := math.Abs(roas - b.value)
		// Strict < keeps the lower tier on ties.
		if d < bestDist {
			best = b
			bestDist = d
		}
	}
	return best.rating
}
