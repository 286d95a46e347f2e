package srs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

func TestScheduleFirstTwoReviewsUseFixedIntervals(t *testing.T) {
	p := DefaultParams()
	r1 := Schedule(p, State{EaseFactor: p.InitialEase}, 5, now)
	assert.Equal(t, 1, r1.IntervalDays)
	assert.Equal(t, 1, r1.Repetitions)

	r2 := Schedule(p, r1.State, 5, now)
	assert.Equal(t, 6, r2.IntervalDays)
	assert.Equal(t, 2, r2.Repetitions)
}

func TestSchedulePassStrictlyGrowsAfterTwoReviews(t *testing.T) {
	p := DefaultParams()
	p.MaxInterval = 100000
	for q := PassQuality; q <= MaxQuality; q++ {
		s := Schedule(p, Schedule(p, State{EaseFactor: p.InitialEase}, 5, now).State, 5, now).State
		for i := 0; i < 15; i++ {
			next := Schedule(p, s, q, now)
			require.Greater(t, next.IntervalDays, s.IntervalDays, "quality %d step %d", q, i)
			s = next.State
		}
	}
}

func TestScheduleFailResetsInterval(t *testing.T) {
	p := DefaultParams()
	s := State{EaseFactor: 2.5, IntervalDays: 40, Repetitions: 6}
	for q := MinQuality; q < PassQuality; q++ {
		r := Schedule(p, s, q, now)
		assert.Equal(t, 1, r.IntervalDays)
		assert.Equal(t, 0, r.Repetitions)
		assert.InDelta(t, 2.3, r.EaseFactor, 1e-9)
	}
}

func TestScheduleEaseFloor(t *testing.T) {
	p := DefaultParams()
	s := State{EaseFactor: 1.35}
	for i := 0; i < 10; i++ {
		s = Schedule(p, s, 0, now).State
		require.GreaterOrEqual(t, s.EaseFactor, p.MinEase)
	}
	assert.Equal(t, p.MinEase, s.EaseFactor)

	s = Schedule(p, State{EaseFactor: 1.3, IntervalDays: 6, Repetitions: 2}, 3, now).State
	assert.Equal(t, p.MinEase, s.EaseFactor)
}

func TestScheduleEaseAdjustsByQuality(t *testing.T) {
	p := DefaultParams()
	assert.InDelta(t, 2.6, Schedule(p, State{EaseFactor: 2.5}, 5, now).EaseFactor, 1e-9)
	assert.InDelta(t, 2.5, Schedule(p, State{EaseFactor: 2.5}, 4, now).EaseFactor, 1e-9)
	assert.InDelta(t, 2.36, Schedule(p, State{EaseFactor: 2.5}, 3, now).EaseFactor, 1e-9)
}

func TestScheduleNextReviewMovesForward(t *testing.T) {
	p := DefaultParams()
	s := State{}
	for i, q := range []int{5, 4, 1, 3, 5, 5, 2, 4} {
		r := Schedule(p, s, q, now)
		require.True(t, r.NextReviewAt.After(now), "step %d", i)
		assert.Equal(t, now.Add(time.Duration(r.IntervalDays)*24*time.Hour), r.NextReviewAt)
		s = r.State
	}
}

func TestScheduleCapsAndClamps(t *testing.T) {
	p := DefaultParams()
	r := Schedule(p, State{EaseFactor: 2.5, IntervalDays: 300, Repetitions: 9}, 5, now)
	assert.Equal(t, p.MaxInterval, r.IntervalDays)

	r = Schedule(p, State{}, 9, now)
	assert.Equal(t, MaxQuality, r.Quality)
	assert.InDelta(t, p.InitialEase+0.1, r.EaseFactor, 1e-9)
	r = Schedule(p, State{}, -4, now)
	assert.Equal(t, MinQuality, r.Quality)
}

func TestScheduleHoldsAtCapOnPass(t *testing.T) {
	p := DefaultParams()
	s := State{EaseFactor: 2.5, IntervalDays: p.MaxInterval, Repetitions: 12}
	for i := 0; i < 3; i++ {
		r := Schedule(p, s, 5, now)
		assert.Equal(t, p.MaxInterval, r.IntervalDays, "pass %d", i)
		assert.Equal(t, s.Repetitions+1, r.Repetitions)
		s = r.State
	}
}
