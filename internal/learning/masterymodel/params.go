package masterymodel

import (
	"fmt"
	"time"

	types "github.com/yungbote/neurobridge-mastery/internal/domain"
)

// Params tunes the mastery estimator. Every field is configurable; DefaultParams
// holds the shipped values.
type Params struct {
	BaseAlpha   float64 `koanf:"base_alpha" validate:"gt=0,lte=1"`
	FastAlpha   float64 `koanf:"fast_alpha" validate:"gt=0,lte=1"`
	StableAlpha float64 `koanf:"stable_alpha" validate:"gt=0,lte=1"`
	// FastAlphaStreak is the consecutive-incorrect count at which FastAlpha applies.
	FastAlphaStreak int `koanf:"fast_alpha_streak" validate:"gte=1"`
	// StableConfidence is the confidence at which StableAlpha applies.
	StableConfidence float64 `koanf:"stable_confidence" validate:"gt=0,lte=1"`

	HintPenalty      float64 `koanf:"hint_penalty" validate:"gte=0,lte=1"`
	TimePenaltySlope float64 `koanf:"time_penalty_slope" validate:"gte=0"`
	MaxTimePenalty   float64 `koanf:"max_time_penalty" validate:"gte=0,lte=1"`

	ExpectedSecondsEasy   float64 `koanf:"expected_seconds_easy" validate:"gt=0"`
	ExpectedSecondsMedium float64 `koanf:"expected_seconds_medium" validate:"gt=0"`
	ExpectedSecondsHard   float64 `koanf:"expected_seconds_hard" validate:"gt=0"`

	// ConfidenceK is the attempt count at which confidence reaches 1-1/e.
	ConfidenceK       float64 `koanf:"confidence_k" validate:"gt=0"`
	UnknownConfidence float64 `koanf:"unknown_confidence" validate:"gte=0,lte=1"`

	MinVelocityInterval time.Duration `koanf:"min_velocity_interval" validate:"gt=0"`
}

func DefaultParams() Params {
	return Params{
		BaseAlpha:             0.3,
		FastAlpha:             0.5,
		StableAlpha:           0.15,
		FastAlphaStreak:       3,
		StableConfidence:      0.8,
		HintPenalty:           0.1,
		TimePenaltySlope:      0.1,
		MaxTimePenalty:        0.3,
		ExpectedSecondsEasy:   30,
		ExpectedSecondsMedium: 60,
		ExpectedSecondsHard:   120,
		ConfidenceK:           5,
		UnknownConfidence:     0.4,
		MinVelocityInterval:   time.Hour,
	}
}

// Validate is a dependency-free check used where struct validation is not wired.
func (p Params) Validate() error {
	for name, a := range map[string]float64{"base_alpha": p.BaseAlpha, "fast_alpha": p.FastAlpha, "stable_alpha": p.StableAlpha} {
		if !(a > 0 && a <= 1) {
			return fmt.Errorf("%s must be in (0,1], got %v", name, a)
		}
	}
	if p.ConfidenceK <= 0 {
		return fmt.Errorf("confidence_k must be > 0")
	}
	if p.ExpectedSecondsEasy <= 0 || p.ExpectedSecondsMedium <= 0 || p.ExpectedSecondsHard <= 0 {
		return fmt.Errorf("expected seconds must be > 0")
	}
	if p.HintPenalty < 0 || p.MaxTimePenalty < 0 || p.MaxTimePenalty > 1 {
		return fmt.Errorf("penalties must be within [0,1]")
	}
	return nil
}

// ExpectedSeconds returns the time baseline for a difficulty.
func (p Params) ExpectedSeconds(d types.Difficulty) float64 {
	switch d {
	case types.DifficultyEasy:
		return p.ExpectedSecondsEasy
	case types.DifficultyHard:
		return p.ExpectedSecondsHard
	default:
		return p.ExpectedSecondsMedium
	}
}
