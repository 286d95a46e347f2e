package masterymodel

import (
	"math"
	"time"
)

const day = 24 * time.Hour

type DecayParams struct {
	Grace  time.Duration `koanf:"grace" validate:"gte=0"`
	Factor float64       `koanf:"factor" validate:"gt=0,lt=1"`
}

func DefaultDecayParams() DecayParams {
	return DecayParams{Grace: 3 * day, Factor: 0.98}
}

type DecayResult struct {
	Applied bool
	Days    int
	Level   float64
	Through time.Time
}

// Decay attenuates level by Factor for every whole day past the anchor, where
// the anchor is the later of lastPracticed+Grace and decayedThrough. Through
// advances by exactly the days applied, so repeated runs never double-count.
func Decay(p DecayParams, level float64, lastPracticed time.Time, decayedThrough *time.Time, now time.Time) DecayResult {
	anchor := lastPracticed.Add(p.Grace)
	if decayedThrough != nil && decayedThrough.After(anchor) {
		anchor = *decayedThrough
	}
	res := DecayResult{Level: level, Through: anchor}
	if !now.After(anchor) {
		return res
	}
	days := int(now.Sub(anchor) / day)
	if days < 1 {
		return res
	}
	next := Clamp(level * math.Pow(p.Factor, float64(days)))
	if next > level {
		next = level
	}
	res.Applied = true
	res.Days = days
	res.Level = next
	res.Through = anchor.Add(time.Duration(days) * day)
	return res
}
