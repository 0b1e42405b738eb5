package models

import "errors"

// RatingThresholds is the single global, operator-configurable mapping
// from ROAS to star ratings. Intervals are closed on both ends; the
// classifier checks tiers in ascending order so a value sitting on a
// shared boundary lands in the lower tier.
type RatingThresholds struct {
	Star1Min float64 `json:"star1_min"`
	Star1Max float64 `json:"star1_max"`
	Star2Min float64 `json:"star2_min"`
	Star2Max float64 `json:"star2_max"`
	Star3Min float64 `json:"star3_min"`
	LossText string  `json:"loss_text"`
}

// DefaultRatingThresholds returns the thresholds used until an operator
// saves their own.
func DefaultRatingThresholds() RatingThresholds {
	return RatingThresholds{
		Star1Min: 0,
		Star1Max: 1.0,
		Star2Min: 1.0,
		Star2Max: 2.0,
		Star3Min: 2.0,
		LossText: "Loss",
	}
}

func (t *RatingThresholds) Validate() error {
	if t.Star1Max < t.Star1Min {
		return errors.New("star1_max must be >= star1_min")
	}
	if t.Star2Max < t.Star2Min {
		return errors.New("star2_max must be >= star2_min")
	}
	if t.Star2Min < t.Star1Min {
		return errors.New("star2_min must be >= star1_min")
	}
	if t.Star3Min < t.Star2Min {
		return errors.New("star3_min must be >= star2_min")
	}
	return nil
}
