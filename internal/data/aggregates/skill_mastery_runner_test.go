package aggregates_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-mastery/internal/data/aggregates"
	aggtest "github.com/yungbote/neurobridge-mastery/internal/data/aggregates/testutil"
	"github.com/yungbote/neurobridge-mastery/internal/data/repos"
	repotest "github.com/yungbote/neurobridge-mastery/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-mastery/internal/domain"
	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
)

func newFlakyAggregate(t *testing.T, runner *aggtest.FlakyTxRunner, hooks *aggtest.HooksRecorder) (domainagg.SkillMasteryAggregate, *gorm.DB) {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	runner.DB = db
	return aggregates.NewSkillMasteryAggregate(aggregates.SkillMasteryAggregateDeps{
		Base:         aggregates.BaseDeps{DB: db, Log: log, Runner: runner, Hooks: hooks},
		States:       repos.NewSkillMasteryRepo(db, log),
		Interactions: repos.NewLearningInteractionRepo(db, log),
		Adjustments:  repos.NewMasteryAdjustmentRepo(db, log),
		Retry:        aggregates.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}), db
}

func correctAttempt(score float64) domainagg.RecordInteractionInput {
	return domainagg.RecordInteractionInput{
		TenantID:  uuid.New(),
		StudentID: uuid.New(),
		SubjectID: uuid.New(),
		SkillKey:  "fractions-add",
		Outcome:   "CORRECT",
		Score:     score,
	}
}

func TestRecordInteractionGivesUpWhileLocked(t *testing.T) {
	runner := &aggtest.FlakyTxRunner{Locked: 10}
	hooks := &aggtest.HooksRecorder{}
	agg, _ := newFlakyAggregate(t, runner, hooks)

	_, err := agg.RecordInteraction(context.Background(), correctAttempt(90))
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if runner.Begins != 3 {
		t.Fatalf("begin calls: want=3 got=%d", runner.Begins)
	}
	if len(hooks.Operations) != 3 {
		t.Fatalf("operation events: want=3 got=%d", len(hooks.Operations))
	}
	if len(hooks.Retries) != 2 {
		t.Fatalf("three attempts are two retries, got %d", len(hooks.Retries))
	}
}

func TestRecordInteractionSucceedsAfterLockClears(t *testing.T) {
	runner := &aggtest.FlakyTxRunner{Locked: 2}
	hooks := &aggtest.HooksRecorder{}
	agg, db := newFlakyAggregate(t, runner, hooks)
	in := correctAttempt(90)

	res, err := agg.RecordInteraction(context.Background(), in)
	if err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}
	if res.Attempts != 3 || !res.Created {
		t.Fatalf("unexpected result: %+v", res)
	}
	want := []string{"retryable", "retryable", "success"}
	if got := hooks.Statuses(domainagg.OpRecordInteraction); !slices.Equal(got, want) {
		t.Fatalf("statuses: want=%v got=%v", want, got)
	}
	if len(hooks.Retries) != 2 || runner.Commits != 1 {
		t.Fatalf("retries=%d commits=%d", len(hooks.Retries), runner.Commits)
	}
	var count int64
	db.Model(&types.SkillMastery{}).Where("tenant_id = ?", in.TenantID).Count(&count)
	if count != 1 {
		t.Fatalf("mastery rows: want=1 got=%d", count)
	}
}

func TestRecordInteractionRollsBackOnCommitFailure(t *testing.T) {
	runner := &aggtest.FlakyTxRunner{CommitErr: errors.New("disk I/O error")}
	agg, db := newFlakyAggregate(t, runner, &aggtest.HooksRecorder{})
	in := correctAttempt(70)

	_, err := agg.RecordInteraction(context.Background(), in)
	if !domainagg.IsCode(err, domainagg.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if runner.Begins != 1 {
		t.Fatalf("internal failures are not retried, begins=%d", runner.Begins)
	}
	var rows, interactions int64
	db.Model(&types.SkillMastery{}).Where("tenant_id = ?", in.TenantID).Count(&rows)
	db.Model(&types.LearningInteraction{}).Where("tenant_id = ?", in.TenantID).Count(&interactions)
	if rows != 0 || interactions != 0 {
		t.Fatalf("rolled back attempt left rows=%d interactions=%d", rows, interactions)
	}
}

func TestRecordInteractionValidationSkipsTransaction(t *testing.T) {
	runner := &aggtest.FlakyTxRunner{}
	agg, _ := newFlakyAggregate(t, runner, &aggtest.HooksRecorder{})

	_, err := agg.RecordInteraction(context.Background(), correctAttempt(-5))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if runner.Begins != 0 {
		t.Fatalf("validation failures must not open a transaction, begin=%d", runner.Begins)
	}
}
