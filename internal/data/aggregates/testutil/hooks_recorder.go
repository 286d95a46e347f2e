package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/neurobridge-mastery/internal/data/aggregates"
	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
)

// HooksRecorder captures aggregate hook signals in tests.
type HooksRecorder struct {
	mu sync.Mutex

	Operations []OperationEvent
	Conflicts  []domainagg.Op
	Retries    []domainagg.Op
}

type OperationEvent struct {
	Op       domainagg.Op
	Status   string
	Duration time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) Observe(op domainagg.Op, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, OperationEvent{Op: op, Status: status, Duration: dur})
}

func (h *HooksRecorder) Conflict(op domainagg.Op) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Conflicts = append(h.Conflicts, op)
}

func (h *HooksRecorder) Retry(op domainagg.Op) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retries = append(h.Retries, op)
}

// Statuses lists the recorded statuses of op in order.
func (h *HooksRecorder) Statuses(op domainagg.Op) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, ev := range h.Operations {
		if ev.Op == op {
			out = append(out, ev.Status)
		}
	}
	return out
}
