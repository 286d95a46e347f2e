package aggregates

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
)

func TestExecuteWriteObservesSuccessStatus(t *testing.T) {
	hooks := &spyHooks{}

	err := executeWrite(context.Background(), BaseDeps{
		Runner: spyTxRunner{},
		Hooks:  hooks,
	}, domainagg.OpAdjustMastery, func(_ dbctx.Context) error { return nil })
	if err != nil {
		t.Fatalf("executeWrite success: %v", err)
	}
	if len(hooks.Operations) != 1 {
		t.Fatalf("operations count: want=1 got=%d", len(hooks.Operations))
	}
	if got := hooks.Operations[0]; got.Op != domainagg.OpAdjustMastery || got.Status != "success" {
		t.Fatalf("unexpected operation: %+v", got)
	}
}

func TestExecuteWriteObservesInvariantViolationStatus(t *testing.T) {
	hooks := &spyHooks{}

	err := executeWrite(context.Background(), BaseDeps{
		Runner: spyTxRunner{},
		Hooks:  hooks,
	}, domainagg.OpApplyDecay, func(_ dbctx.Context) error {
		return checkLevel(domainagg.OpApplyDecay, 140)
	})
	if !domainagg.IsCode(err, domainagg.CodeInvariantViolation) {
		t.Fatalf("expected invariant violation code, got=%v", err)
	}
	if len(hooks.Operations) != 1 || hooks.Operations[0].Status != string(domainagg.CodeInvariantViolation) {
		t.Fatalf("unexpected op status: %+v", hooks.Operations)
	}
}

func TestExecuteWriteCountsConflictsButNotRetries(t *testing.T) {
	t.Run("stale version", func(t *testing.T) {
		hooks := &spyHooks{}
		err := executeWrite(context.Background(), BaseDeps{
			Runner: spyTxRunner{},
			Hooks:  hooks,
		}, domainagg.OpRecordInteraction, func(_ dbctx.Context) error {
			return requireVersion(3, 2)
		})
		if !domainagg.IsCode(err, domainagg.CodeConflict) {
			t.Fatalf("expected conflict code, got=%v", err)
		}
		if len(hooks.Conflicts) != 1 || hooks.Conflicts[0] != domainagg.OpRecordInteraction {
			t.Fatalf("conflict hooks: %+v", hooks.Conflicts)
		}
		if len(hooks.Operations) != 1 || hooks.Operations[0].Status != string(domainagg.CodeConflict) {
			t.Fatalf("unexpected op status: %+v", hooks.Operations)
		}
	})

	t.Run("locked database", func(t *testing.T) {
		hooks := &spyHooks{}
		err := executeWrite(context.Background(), BaseDeps{
			Runner: spyTxRunner{},
			Hooks:  hooks,
		}, domainagg.OpRecordInteraction, func(_ dbctx.Context) error {
			return errors.New("database is locked")
		})
		if !domainagg.IsCode(err, domainagg.CodeRetryable) {
			t.Fatalf("expected retryable code, got=%v", err)
		}
		if len(hooks.Retries) != 0 {
			t.Fatalf("a single attempt is not a retry, got=%+v", hooks.Retries)
		}
		if len(hooks.Conflicts) != 0 {
			t.Fatalf("conflict hooks should be empty, got=%+v", hooks.Conflicts)
		}
		if len(hooks.Operations) != 1 || hooks.Operations[0].Status != string(domainagg.CodeRetryable) {
			t.Fatalf("unexpected op status: %+v", hooks.Operations)
		}
	})
}

func TestWriteStatus(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{checkLevel(domainagg.OpRecordInteraction, -1), string(domainagg.CodeInvariantViolation)},
		{staleVersion("x"), string(domainagg.CodeConflict)},
		{errors.New("SQLITE_BUSY"), string(domainagg.CodeRetryable)},
		{context.DeadlineExceeded, string(domainagg.CodeRetryable)},
		{errors.New("disk full"), string(domainagg.CodeInternal)},
	}
	for _, tc := range cases {
		if got := writeStatus(tc.err); got != tc.want {
			t.Fatalf("writeStatus(%v): want=%s got=%s", tc.err, tc.want, got)
		}
	}
}

type spyTxRunner struct{}

func (spyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return fn(dbctx.Context{Ctx: ctx})
}

type spyHooks struct {
	mu sync.Mutex

	Operations []spyOperation
	Conflicts  []domainagg.Op
	Retries    []domainagg.Op
}

type spyOperation struct {
	Op     domainagg.Op
	Status string
}

func (h *spyHooks) Observe(op domainagg.Op, status string, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, spyOperation{Op: op, Status: status})
}

func (h *spyHooks) Conflict(op domainagg.Op) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Conflicts = append(h.Conflicts, op)
}

func (h *spyHooks) Retry(op domainagg.Op) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retries = append(h.Retries, op)
}
