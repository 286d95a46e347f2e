package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-mastery/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/services"
)

type countingSweeper struct {
	calls int
	err   error
	panic bool
	corr  ctxutil.Correlation
}

func (c *countingSweeper) Sweep(ctx context.Context) (services.SweepReport, error) {
	c.calls++
	c.corr, _ = ctxutil.CorrelationFrom(ctx)
	if c.panic {
		panic("boom")
	}
	if _, ok := ctx.Deadline(); !ok {
		return services.SweepReport{}, errors.New("sweep ran without a deadline")
	}
	return services.SweepReport{Scanned: 2, Decayed: 1}, c.err
}

func TestRunOnceWithoutRedisAlwaysRuns(t *testing.T) {
	sw := &countingSweeper{}
	s := New(logger.Nop(), Config{}, sw, nil)

	report, ran, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, report.Decayed)
	assert.Equal(t, 1, sw.calls)
}

func TestRunOnceTagsSweepRun(t *testing.T) {
	sw := &countingSweeper{}
	s := New(logger.Nop(), Config{}, sw, nil)

	_, _, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	first := sw.corr
	assert.Equal(t, ctxutil.SourceDecaySweep, first.Source)
	assert.NotEmpty(t, first.RequestID)

	_, _, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.RequestID, sw.corr.RequestID, "each run gets its own id")
}

func TestRunOnceRecoversPanics(t *testing.T) {
	s := New(logger.Nop(), Config{}, &countingSweeper{panic: true}, nil)

	_, ran, err := s.RunOnce(context.Background())
	assert.True(t, ran)
	assert.ErrorContains(t, err, "panic")
}

func TestStartRejectsBadCron(t *testing.T) {
	s := New(logger.Nop(), Config{SweepCron: "not a cron"}, &countingSweeper{}, nil)
	assert.Error(t, s.Start(context.Background()))
}

func TestStartAndStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New(logger.Nop(), Config{SweepCron: "0 0 1 1 *"}, &countingSweeper{}, nil)
	require.NoError(t, s.Start(ctx))
	s.Stop()
}

func TestLeaseOwnerIsUnique(t *testing.T) {
	assert.NotEqual(t, LeaseOwner(), LeaseOwner())
}
