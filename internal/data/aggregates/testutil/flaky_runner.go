package testutil

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-mastery/internal/data/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
)

// ErrLocked is the error a FlakyTxRunner returns for a locked attempt. Its text
// matches SQLite's, so the aggregates classify it as retryable.
var ErrLocked = errors.New("database is locked")

// FlakyTxRunner runs mastery writes in real transactions on DB and injects
// failures in front of them. With a nil DB the body runs without a
// transaction and CommitErr is returned after it.
type FlakyTxRunner struct {
	mu sync.Mutex

	DB *gorm.DB
	// Locked is the number of leading attempts that fail with ErrLocked
	// before their body runs.
	Locked int
	// CommitErr fails every attempt after its body succeeds. The body's
	// writes are rolled back.
	CommitErr error

	Begins    int
	Commits   int
	Rollbacks int
}

var _ aggregates.TxRunner = (*FlakyTxRunner)(nil)

func (r *FlakyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.Begins++
	locked := r.Begins <= r.Locked
	r.mu.Unlock()
	if locked {
		r.count(&r.Rollbacks)
		return ErrLocked
	}

	body := func(tx *gorm.DB) error {
		if err := fn(dbctx.Context{Ctx: ctx, Tx: tx}); err != nil {
			return err
		}
		return r.CommitErr
	}
	var err error
	if r.DB == nil {
		err = body(nil)
	} else {
		err = r.DB.WithContext(ctx).Transaction(body)
	}
	if err != nil {
		r.count(&r.Rollbacks)
		return err
	}
	r.count(&r.Commits)
	return nil
}

func (r *FlakyTxRunner) count(n *int) {
	r.mu.Lock()
	*n++
	r.mu.Unlock()
}
