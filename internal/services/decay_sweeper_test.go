package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repotest "github.com/yungbote/neurobridge-mastery/internal/data/repos/testutil"
	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/learning/masterymodel"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
)

func (f *fixture) sweeper(agg domainagg.SkillMasteryAggregate, pageSize int) DecaySweeper {
	return NewDecaySweeper(DecaySweeperDeps{
		Log:       f.log,
		States:    f.states,
		Aggregate: agg,
		Events:    f.events,
		Decay:     masterymodel.DefaultDecayParams(),
		Sweep:     SweepParams{PageSize: pageSize, Concurrency: 2},
		Now:       func() time.Time { return f.now },
	})
}

func (f *fixture) idleMastery(t *testing.T, key string, level float64, idle time.Duration) uuid.UUID {
	t.Helper()
	last := f.now.Add(-idle)
	return repotest.SeedMastery(t, f.db, f.tenant, f.student.ID, f.subject.ID, key, level, 5, &last, nil).ID
}

func TestDecaySweepAppliesOncePerPeriod(t *testing.T) {
	f := newFixture(t)
	idle := f.idleMastery(t, "idle", 50, 10*day)
	f.idleMastery(t, "fresh", 50, day)
	done := f.idleMastery(t, "done", 50, 10*day)
	require.NoError(t, f.db.Table("skill_mastery").Where("id = ?", done).Update("decayed_through", f.now).Error)

	sw := f.sweeper(f.agg, 1)
	ctx := context.Background()

	report, err := sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Decayed)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Failed)

	row, err := f.states.GetByID(dbctx.Context{Ctx: ctx}, idle)
	require.NoError(t, err)
	want := 50 * math.Pow(0.98, 7)
	assert.InDelta(t, want, row.MasteryLevel, 1e-9)

	again, err := sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Decayed)
	assert.Equal(t, 2, again.Skipped)

	row, err = f.states.GetByID(dbctx.Context{Ctx: ctx}, idle)
	require.NoError(t, err)
	assert.InDelta(t, want, row.MasteryLevel, 1e-9)
	assert.Len(t, f.events.sweeps, 2)
}

func TestDecaySweepCountsConflictsAndFailures(t *testing.T) {
	f := newFixture(t)
	conflicted := f.idleMastery(t, "conflicted", 50, 10*day)
	broken := f.idleMastery(t, "broken", 50, 10*day)
	f.idleMastery(t, "fine", 50, 10*day)

	agg := &scriptedDecayAggregate{results: map[uuid.UUID]error{
		conflicted: domainagg.NewError(domainagg.CodeConflict, "decay", "stale version", nil),
		broken:     errors.New("disk on fire"),
	}}
	report, err := f.sweeper(agg, 2).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 1, report.Decayed)
	assert.Equal(t, 1, report.Conflicts)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 3, agg.calls())
}

func TestDecaySweepStopsOnCancelledContext(t *testing.T) {
	f := newFixture(t)
	f.idleMastery(t, "idle", 50, 10*day)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.sweeper(f.agg, 10).Sweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.events.sweeps)
}

// scriptedDecayAggregate answers ApplyDecay from a per-row script; rows not in
// the script decay successfully.
type scriptedDecayAggregate struct {
	domainagg.SkillMasteryAggregate

	mu      sync.Mutex
	results map[uuid.UUID]error
	n       int
}

func (a *scriptedDecayAggregate) ApplyDecay(_ context.Context, in domainagg.ApplyDecayInput) (domainagg.ApplyDecayResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.n++
	if err := a.results[in.SkillMasteryID]; err != nil {
		return domainagg.ApplyDecayResult{}, err
	}
	return domainagg.ApplyDecayResult{Applied: true, Days: 7}, nil
}

func (a *scriptedDecayAggregate) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.n
}
