package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/neurobridge-mastery/internal/data/repos"
	types "github.com/yungbote/neurobridge-mastery/internal/domain"
	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/learning/masterymodel"
	"github.com/yungbote/neurobridge-mastery/internal/observability"
	"github.com/yungbote/neurobridge-mastery/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type SweepReport struct {
	StartedAt time.Time     `json:"started_at"`
	Scanned   int           `json:"scanned"`
	Decayed   int           `json:"decayed"`
	Skipped   int           `json:"skipped"`
	Conflicts int           `json:"conflicts"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// DecaySweeper applies time decay to every idle mastery row. Runs are
// idempotent; a row already decayed through the current day is skipped.
type DecaySweeper interface {
	Sweep(ctx context.Context) (SweepReport, error)
}

type DecaySweeperDeps struct {
	Log       *logger.Logger
	States    repos.SkillMasteryRepo
	Aggregate domainagg.SkillMasteryAggregate
	Events    EventPublisher
	Metrics   *observability.Metrics
	Decay     masterymodel.DecayParams
	Sweep     SweepParams
	Now       func() time.Time
}

type decaySweeper struct {
	log     *logger.Logger
	states  repos.SkillMasteryRepo
	agg     domainagg.SkillMasteryAggregate
	events  EventPublisher
	metrics *observability.Metrics
	decay   masterymodel.DecayParams
	params  SweepParams
	now     func() time.Time
}

func NewDecaySweeper(deps DecaySweeperDeps) DecaySweeper {
	decay := deps.Decay
	if decay.Factor <= 0 || decay.Factor >= 1 {
		decay = masterymodel.DefaultDecayParams()
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	events := deps.Events
	if events == nil {
		events = noopPublisher{}
	}
	return &decaySweeper{
		log:     deps.Log.With("service", "DecaySweeper"),
		states:  deps.States,
		agg:     deps.Aggregate,
		events:  events,
		metrics: deps.Metrics,
		decay:   decay,
		params:  deps.Sweep.withDefaults(),
		now:     now,
	}
}

type sweepCounters struct {
	scanned, decayed, skipped, conflicts, failed atomic.Int64
}

func (c *sweepCounters) report(started time.Time, dur time.Duration) SweepReport {
	return SweepReport{
		StartedAt: started,
		Scanned:   int(c.scanned.Load()),
		Decayed:   int(c.decayed.Load()),
		Skipped:   int(c.skipped.Load()),
		Conflicts: int(c.conflicts.Load()),
		Failed:    int(c.failed.Load()),
		Duration:  dur,
	}
}

func (s *decaySweeper) Sweep(ctx context.Context) (report SweepReport, err error) {
	ctx, span := tracer.Start(ctx, "DecaySweeper.Sweep")
	defer func() {
		span.SetAttributes(
			attribute.Int("sweep.scanned", report.Scanned),
			attribute.Int("sweep.decayed", report.Decayed),
			attribute.Int("sweep.failed", report.Failed),
		)
		endSpan(span, err)
	}()

	log := s.log
	if corr, ok := ctxutil.CorrelationFrom(ctx); ok {
		log = log.With("run_id", corr.RequestID)
	}
	started := time.Now()
	now := s.now()
	cutoff := now.Add(-s.decay.Grace)
	counters := &sweepCounters{}
	status := "ok"

	cursor := uuid.Nil
	for {
		if ctx.Err() != nil {
			status = "cancelled"
			err = ctx.Err()
			break
		}
		page, lerr := s.states.ListDecayCandidates(dbctx.Context{Ctx: ctx}, cutoff, cursor, s.params.PageSize)
		if lerr != nil {
			status = "failed"
			err = domainagg.Wrap(domainagg.CodeRetryable, "DecaySweeper.Sweep", lerr)
			break
		}
		if len(page) == 0 {
			break
		}
		cursor = page[len(page)-1].ID

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.params.Concurrency)
		for _, row := range page {
			g.Go(func() error {
				s.sweepRow(gctx, row, now, counters)
				return nil
			})
		}
		_ = g.Wait()

		if len(page) < s.params.PageSize {
			break
		}
	}

	report = counters.report(started, time.Since(started))
	if status == "ok" && report.Failed > 0 {
		status = "partial"
	}
	s.metrics.ObserveSweep(status, observability.SweepCounts{
		Scanned:   report.Scanned,
		Decayed:   report.Decayed,
		Skipped:   report.Skipped,
		Conflicts: report.Conflicts,
		Failed:    report.Failed,
	}, report.Duration)
	log.Info("decay sweep finished",
		"status", status,
		"scanned", report.Scanned,
		"decayed", report.Decayed,
		"skipped", report.Skipped,
		"conflicts", report.Conflicts,
		"failed", report.Failed,
		"duration_ms", report.Duration.Milliseconds(),
	)
	if err == nil {
		s.events.SweepCompleted(ctx, report)
	}
	return report, err
}

func (s *decaySweeper) sweepRow(ctx context.Context, row *types.SkillMastery, now time.Time, c *sweepCounters) {
	c.scanned.Add(1)
	if s.params.RowTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.params.RowTimeout)
		defer cancel()
	}
	res, err := s.agg.ApplyDecay(ctx, domainagg.ApplyDecayInput{
		SkillMasteryID:  row.ID,
		ExpectedVersion: row.Version,
		Now:             now,
	})
	switch {
	case domainagg.IsCode(err, domainagg.CodeConflict):
		// A live write landed after the page was read; the next run sees the new row.
		c.conflicts.Add(1)
		s.log.Debug("decay skipped on concurrent write", "skill_mastery_id", row.ID)
	case domainagg.IsCode(err, domainagg.CodeNotFound):
		c.skipped.Add(1)
	case err != nil:
		c.failed.Add(1)
		s.log.Warn("decay failed for row", "skill_mastery_id", row.ID, "skill_key", row.SkillKey, "error", err)
	case res.Applied:
		c.decayed.Add(1)
	default:
		c.skipped.Add(1)
	}
}
