package aggregates

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
)

// RetryPolicy bounds how often an aggregate write is re-attempted after a
// version conflict or transient failure.
type RetryPolicy struct {
	MaxAttempts int           `koanf:"max_attempts" validate:"gte=1"`
	BaseDelay   time.Duration `koanf:"base_delay" validate:"gt=0"`
	MaxDelay    time.Duration `koanf:"max_delay" validate:"gtefield=BaseDelay"`
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    250 * time.Millisecond,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// retryWrite runs fn until it succeeds, fails with a non-retryable code, or the
// attempt budget is spent. The last error is returned unchanged so a spent
// budget still surfaces as CodeConflict. It reports the number of attempts made.
// Each attempt after the first counts once as a retry of op.
func retryWrite(ctx context.Context, policy RetryPolicy, hooks Hooks, op domainagg.Op, fn func(attempt int) error) (int, error) {
	policy = policy.withDefaults()
	if hooks == nil {
		hooks = noopHooks{}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.BaseDelay
	bo.MaxInterval = policy.MaxDelay
	bo.RandomizationFactor = 0.5
	bo.Multiplier = 2

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := fn(attempts)
		if err == nil {
			return struct{}{}, nil
		}
		if !domainagg.Retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
		backoff.WithNotify(func(error, time.Duration) { hooks.Retry(op) }),
	)
	if err != nil && ctx.Err() != nil && domainagg.CodeOf(err) == "" {
		return attempts, domainagg.Wrap(domainagg.CodeRetryable, string(op), err)
	}
	return attempts, err
}
