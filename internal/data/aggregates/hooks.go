package aggregates

import (
	"time"

	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/observability"
)

// Hooks receives per-attempt signals for mastery writes, keyed by op.
type Hooks interface {
	Observe(op domainagg.Op, status string, dur time.Duration)
	Conflict(op domainagg.Op)
	Retry(op domainagg.Op)
}

type noopHooks struct{}

func (noopHooks) Observe(domainagg.Op, string, time.Duration) {}
func (noopHooks) Conflict(domainagg.Op)                       {}
func (noopHooks) Retry(domainagg.Op)                          {}

type metricsHooks struct {
	m *observability.Metrics
}

// NewMetricsHooks reports mastery writes to the aggregate_* series. A nil
// registry disables reporting.
func NewMetricsHooks(m *observability.Metrics) Hooks {
	if m == nil {
		return noopHooks{}
	}
	return metricsHooks{m: m}
}

func (h metricsHooks) Observe(op domainagg.Op, status string, dur time.Duration) {
	h.m.ObserveAggregateOperation(string(op), status, dur)
}

func (h metricsHooks) Conflict(op domainagg.Op) { h.m.IncAggregateConflict(string(op)) }
func (h metricsHooks) Retry(op domainagg.Op)    { h.m.IncAggregateRetry(string(op)) }
