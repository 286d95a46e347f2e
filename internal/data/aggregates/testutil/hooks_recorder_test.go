package testutil

import (
	"slices"
	"testing"
	"time"

	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
)

func TestHooksRecorderGroupsByOp(t *testing.T) {
	h := &HooksRecorder{}
	h.Observe(domainagg.OpRecordInteraction, "retryable", time.Millisecond)
	h.Observe(domainagg.OpApplyDecay, "conflict", time.Millisecond)
	h.Observe(domainagg.OpRecordInteraction, "success", time.Millisecond)
	h.Conflict(domainagg.OpApplyDecay)
	h.Retry(domainagg.OpRecordInteraction)

	if got := h.Statuses(domainagg.OpRecordInteraction); !slices.Equal(got, []string{"retryable", "success"}) {
		t.Fatalf("unexpected statuses: %v", got)
	}
	if len(h.Conflicts) != 1 || h.Conflicts[0] != domainagg.OpApplyDecay {
		t.Fatalf("unexpected conflicts: %+v", h.Conflicts)
	}
	if len(h.Retries) != 1 || h.Retries[0] != domainagg.OpRecordInteraction {
		t.Fatalf("unexpected retries: %+v", h.Retries)
	}
}
