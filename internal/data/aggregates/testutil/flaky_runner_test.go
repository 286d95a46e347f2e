package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
)

func TestFlakyTxRunnerLocksLeadingAttempts(t *testing.T) {
	r := &FlakyTxRunner{Locked: 2}
	calls := 0
	body := func(_ dbctx.Context) error {
		calls++
		return nil
	}
	for i := 0; i < 2; i++ {
		if err := r.InTx(context.Background(), body); !errors.Is(err, ErrLocked) {
			t.Fatalf("attempt %d: expected ErrLocked, got %v", i+1, err)
		}
	}
	if err := r.InTx(context.Background(), body); err != nil {
		t.Fatalf("third attempt: %v", err)
	}
	if calls != 1 {
		t.Fatalf("locked attempts must not run the body, calls=%d", calls)
	}
	if r.Begins != 3 || r.Commits != 1 || r.Rollbacks != 2 {
		t.Fatalf("unexpected counters begin=%d commit=%d rollback=%d", r.Begins, r.Commits, r.Rollbacks)
	}
}

func TestFlakyTxRunnerCommitErrRollsBack(t *testing.T) {
	commitErr := errors.New("commit failed")
	r := &FlakyTxRunner{CommitErr: commitErr}
	ran := false
	err := r.InTx(context.Background(), func(_ dbctx.Context) error {
		ran = true
		return nil
	})
	if !errors.Is(err, commitErr) || !ran {
		t.Fatalf("expected body to run then commit to fail, ran=%v err=%v", ran, err)
	}
	if r.Commits != 0 || r.Rollbacks != 1 {
		t.Fatalf("unexpected counters commit=%d rollback=%d", r.Commits, r.Rollbacks)
	}
}
