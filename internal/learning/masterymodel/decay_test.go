package masterymodel

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecayTenDaysIdle(t *testing.T) {
	p := DecayParams{Grace: 3 * day, Factor: 0.98}
	now := time.Date(2026, 5, 20, 2, 0, 0, 0, time.UTC)
	last := now.Add(-10 * day)

	res := Decay(p, 80, last, nil, now)
	require.True(t, res.Applied)
	assert.Equal(t, 7, res.Days)
	assert.InDelta(t, 80*math.Pow(0.98, 7), res.Level, 1e-9)
	assert.True(t, res.Through.Equal(now))
}

func TestDecayWithinGraceIsNoop(t *testing.T) {
	p := DefaultDecayParams()
	now := time.Date(2026, 5, 20, 2, 0, 0, 0, time.UTC)
	res := Decay(p, 80, now.Add(-2*day), nil, now)
	assert.False(t, res.Applied)
	assert.Equal(t, 80.0, res.Level)
}

func TestDecayIsIdempotentForSamePeriod(t *testing.T) {
	p := DefaultDecayParams()
	now := time.Date(2026, 5, 20, 2, 0, 0, 0, time.UTC)
	last := now.Add(-10 * day)

	first := Decay(p, 80, last, nil, now)
	require.True(t, first.Applied)
	through := first.Through
	second := Decay(p, first.Level, last, &through, now)
	assert.False(t, second.Applied)
	assert.Equal(t, first.Level, second.Level)
}

func TestDecaySplitRunsMatchSingleRun(t *testing.T) {
	p := DefaultDecayParams()
	start := time.Date(2026, 5, 1, 2, 0, 0, 0, time.UTC)
	last := start.Add(-5 * day)

	level := 90.0
	var through *time.Time
	for d := 0; d <= 6; d++ {
		res := Decay(p, level, last, through, start.Add(time.Duration(d)*day+time.Hour))
		level = res.Level
		tt := res.Through
		through = &tt
	}
	single := Decay(p, 90, last, nil, start.Add(6*day+time.Hour))
	assert.InDelta(t, single.Level, level, 1e-9)
}

func TestDecayNeverRaisesMastery(t *testing.T) {
	p := DefaultDecayParams()
	now := time.Date(2026, 5, 20, 2, 0, 0, 0, time.UTC)
	for _, lvl := range []float64{0, 0.5, 33, 99.9, 100} {
		for idle := 0; idle < 40; idle++ {
			res := Decay(p, lvl, now.Add(-time.Duration(idle)*day), nil, now)
			require.LessOrEqual(t, res.Level, lvl)
		}
	}
}
