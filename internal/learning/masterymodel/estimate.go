package masterymodel

import (
	"math"
	"time"

	types "github.com/yungbote/neurobridge-mastery/internal/domain"
)

const (
	MinLevel = 0.0
	MaxLevel = 100.0
)

// State is the slice of a mastery row the estimator reads.
type State struct {
	Level                float64
	ConsecutiveCorrect   int
	ConsecutiveIncorrect int
	Count                int
	LastPracticedAt      *time.Time
}

type Observation struct {
	Outcome          types.Outcome
	Score            float64
	TimeTakenSeconds float64
	HintsUsed        int
	ExpectedSeconds  float64
	At               time.Time
}

type Update struct {
	EffectiveScore       float64
	Alpha                float64
	PriorConfidence      float64
	Level                float64
	Delta                float64
	Velocity             float64
	ConsecutiveCorrect   int
	ConsecutiveIncorrect int
	Count                int
	Slow                 bool
	Quality              int
}

// Apply folds one observation into the state.
func Apply(p Params, s State, o Observation) Update {
	old := Clamp(s.Level)
	expected := o.ExpectedSeconds
	if expected <= 0 {
		expected = p.ExpectedSecondsMedium
	}
	eff := EffectiveScore(p, o.Score, o.HintsUsed, o.TimeTakenSeconds, expected)
	conf := Confidence(p, s.Count)
	alpha := Alpha(p, s.ConsecutiveIncorrect, conf)

	next := Clamp(old + alpha*(eff-old))

	u := Update{
		EffectiveScore:  eff,
		Alpha:           alpha,
		PriorConfidence: conf,
		Level:           next,
		Delta:           next - old,
		Count:           s.Count + 1,
		Slow:            o.TimeTakenSeconds > expected,
	}
	switch o.Outcome {
	case types.OutcomeCorrect:
		u.ConsecutiveCorrect = s.ConsecutiveCorrect + 1
	case types.OutcomeIncorrect:
		u.ConsecutiveIncorrect = s.ConsecutiveIncorrect + 1
	}
	if s.LastPracticedAt != nil && !s.LastPracticedAt.IsZero() {
		u.Velocity = Velocity(p, u.Delta, o.At.Sub(*s.LastPracticedAt))
	}
	u.Quality = Quality(o.Outcome, eff, o.HintsUsed, u.Slow)
	return u
}

// EffectiveScore penalizes the raw score for hints (multiplicatively, floored at
// zero) and for time beyond the expected baseline (capped at MaxTimePenalty).
func EffectiveScore(p Params, score float64, hints int, timeTaken, expected float64) float64 {
	s := Clamp(score)
	if hints > 0 {
		s *= math.Max(0, 1-p.HintPenalty*float64(hints))
	}
	if expected > 0 && timeTaken > expected {
		penalty := math.Min(p.MaxTimePenalty, p.TimePenaltySlope*(timeTaken/expected-1))
		s *= 1 - math.Max(0, penalty)
	}
	return Clamp(s)
}

func Alpha(p Params, consecutiveIncorrect int, confidence float64) float64 {
	switch {
	case consecutiveIncorrect >= p.FastAlphaStreak:
		return p.FastAlpha
	case confidence >= p.StableConfidence:
		return p.StableAlpha
	default:
		return p.BaseAlpha
	}
}

// Confidence grows monotonically with attempts and approaches 1.
func Confidence(p Params, attempts int) float64 {
	if attempts <= 0 || p.ConfidenceK <= 0 {
		return 0
	}
	return 1 - math.Exp(-float64(attempts)/p.ConfidenceK)
}

func IsUnknown(p Params, attempts int) bool {
	return Confidence(p, attempts) < p.UnknownConfidence
}

// Velocity is mastery points per day. Elapsed time is floored at
// MinVelocityInterval so bursts of attempts do not explode the rate.
func Velocity(p Params, delta float64, elapsed time.Duration) float64 {
	floor := p.MinVelocityInterval
	if floor <= 0 {
		floor = time.Hour
	}
	if elapsed < floor {
		elapsed = floor
	}
	days := elapsed.Hours() / 24
	v := delta / days
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Quality maps an attempt onto the 0-5 review grade.
func Quality(outcome types.Outcome, effective float64, hints int, slow bool) int {
	switch outcome {
	case types.OutcomeCorrect:
		q := 5
		if hints > 0 {
			q--
		}
		if hints > 1 {
			q--
		}
		if slow {
			q--
		}
		if q < 3 {
			q = 3
		}
		return q
	case types.OutcomePartial:
		if effective >= 60 && hints == 0 {
			return 3
		}
		return 2
	default:
		switch {
		case effective >= 40:
			return 2
		case effective > 0:
			return 1
		default:
			return 0
		}
	}
}

// Clamp bounds v to [0,100]; NaN maps to 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return MinLevel
	}
	return math.Max(MinLevel, math.Min(MaxLevel, v))
}

// Valid reports whether a stored level is usable as-is.
func Valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= MinLevel && v <= MaxLevel
}
