package realtime

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventMasteryUpdated  = "mastery.updated"
	EventMasteryAdjusted = "mastery.adjusted"
	EventMasteryReset    = "mastery.reset"
	EventSweepCompleted  = "sweep.completed"
)

// Event is a post-commit notification about mastery state. Events are
// published after the owning transaction commits and may be dropped.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       string         `json:"type"`
	TenantID   uuid.UUID      `json:"tenant_id,omitempty"`
	StudentID  uuid.UUID      `json:"student_id,omitempty"`
	SkillKey   string         `json:"skill_key,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`

	// Source, RequestID and TraceID identify the request or sweep run that
	// caused the event.
	Source    string `json:"source,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

func NewEvent(eventType string, tenantID, studentID uuid.UUID, skillKey string, data map[string]any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		TenantID:   tenantID,
		StudentID:  studentID,
		SkillKey:   skillKey,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}
