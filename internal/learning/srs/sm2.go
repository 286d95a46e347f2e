package srs

import (
	"math"
	"time"
)

const (
	MinQuality = 0
	MaxQuality = 5
	// PassQuality is the lowest grade that counts as a successful recall.
	PassQuality = 3
)

type Params struct {
	InitialEase     float64 `koanf:"initial_ease" validate:"gte=1.3"`
	MinEase         float64 `koanf:"min_ease" validate:"gt=0"`
	FailEasePenalty float64 `koanf:"fail_ease_penalty" validate:"gte=0"`
	FirstInterval   int     `koanf:"first_interval_days" validate:"gte=1"`
	SecondInterval  int     `koanf:"second_interval_days" validate:"gte=1"`
	MaxInterval     int     `koanf:"max_interval_days" validate:"gte=1"`
}

func DefaultParams() Params {
	return Params{
		InitialEase:     2.5,
		MinEase:         1.3,
		FailEasePenalty: 0.2,
		FirstInterval:   1,
		SecondInterval:  6,
		MaxInterval:     365,
	}
}

type State struct {
	EaseFactor   float64
	IntervalDays int
	Repetitions  int
}

type Result struct {
	State
	Quality      int
	NextReviewAt time.Time
}

// Schedule applies one SM-2 step. A failed recall restarts the repetition
// sequence at a one day interval; a pass grows the interval (1, 6, then
// compounding by the current ease) and nudges the ease by the grade.
//
// Passing intervals grow strictly until they reach p.MaxInterval (365 days by
// default). Once capped, further passes keep the interval at the cap.
func Schedule(p Params, s State, quality int, now time.Time) Result {
	q := clampQuality(quality)
	ease := s.EaseFactor
	if ease <= 0 || math.IsNaN(ease) {
		ease = p.InitialEase
	}
	out := State{EaseFactor: ease}

	if q < PassQuality {
		out.Repetitions = 0
		out.IntervalDays = 1
		out.EaseFactor = math.Max(p.MinEase, ease-p.FailEasePenalty)
	} else {
		out.Repetitions = s.Repetitions + 1
		switch out.Repetitions {
		case 1:
			out.IntervalDays = p.FirstInterval
		case 2:
			out.IntervalDays = p.SecondInterval
		default:
			prev := s.IntervalDays
			if prev < 1 {
				prev = 1
			}
			grown := int(math.Ceil(float64(prev) * ease))
			if grown <= prev {
				grown = prev + 1
			}
			out.IntervalDays = grown
		}
		d := float64(MaxQuality - q)
		out.EaseFactor = math.Max(p.MinEase, ease+(0.1-d*(0.08+d*0.02)))
	}
	if p.MaxInterval > 0 && out.IntervalDays > p.MaxInterval {
		out.IntervalDays = p.MaxInterval
	}
	return Result{
		State:        out,
		Quality:      q,
		NextReviewAt: now.Add(time.Duration(out.IntervalDays) * 24 * time.Hour),
	}
}

func clampQuality(q int) int {
	if q < MinQuality {
		return MinQuality
	}
	if q > MaxQuality {
		return MaxQuality
	}
	return q
}
