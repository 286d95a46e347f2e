package aggregates

import (
	"context"
	"errors"
	"testing"
	"time"

	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetryWriteStopsOnSuccess(t *testing.T) {
	hooks := &spyHooks{}
	calls := 0
	attempts, err := retryWrite(context.Background(), fastPolicy(5), hooks, domainagg.OpRecordInteraction, func(int) error {
		calls++
		if calls < 3 {
			return domainagg.NewError(domainagg.CodeConflict, "record_interaction", "stale", nil)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if attempts != 3 || calls != 3 {
		t.Fatalf("attempts: want=3 got=%d calls=%d", attempts, calls)
	}
	if len(hooks.Retries) != 2 {
		t.Fatalf("retry notifications: want=2 got=%d", len(hooks.Retries))
	}
}

func TestRetryWriteCountsEachRepeatOnce(t *testing.T) {
	hooks := &spyHooks{}
	base := BaseDeps{Runner: spyTxRunner{}, Hooks: hooks}
	attempts, err := retryWrite(context.Background(), fastPolicy(4), hooks, domainagg.OpResetMastery, func(int) error {
		return executeWrite(context.Background(), base, domainagg.OpResetMastery, func(_ dbctx.Context) error {
			return errors.New("database is locked")
		})
	})
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("expected retryable after exhaustion, got %v", err)
	}
	if attempts != 4 || len(hooks.Operations) != 4 {
		t.Fatalf("attempts=%d operations=%d, want 4 each", attempts, len(hooks.Operations))
	}
	if len(hooks.Retries) != attempts-1 {
		t.Fatalf("retries: want=%d got=%d", attempts-1, len(hooks.Retries))
	}
	for _, op := range hooks.Retries {
		if op != domainagg.OpResetMastery {
			t.Fatalf("retry labelled %s", op)
		}
	}
}

func TestRetryWriteExhaustsBudgetAsConflict(t *testing.T) {
	attempts, err := retryWrite(context.Background(), fastPolicy(4), nil, domainagg.OpRecordInteraction, func(int) error {
		return domainagg.NewError(domainagg.CodeConflict, "record_interaction", "stale", nil)
	})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict after exhaustion, got %v", err)
	}
	if attempts != 4 {
		t.Fatalf("attempts: want=4 got=%d", attempts)
	}
}

func TestRetryWriteDoesNotRetryValidation(t *testing.T) {
	attempts, err := retryWrite(context.Background(), fastPolicy(5), nil, domainagg.OpRecordInteraction, func(int) error {
		return domainagg.NewError(domainagg.CodeValidation, "record_interaction", "bad", nil)
	})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts: want=1 got=%d", attempts)
	}
}

func TestRetryWriteHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := retryWrite(ctx, fastPolicy(5), nil, domainagg.OpRecordInteraction, func(int) error {
		return errors.New("never succeeds")
	})
	if err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}
