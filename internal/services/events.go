package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-mastery/internal/observability"
	"github.com/yungbote/neurobridge-mastery/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/realtime"
	"github.com/yungbote/neurobridge-mastery/internal/realtime/bus"
)

// EventPublisher emits post-commit notifications. Publishing never fails the
// caller; delivery errors are logged and counted.
type EventPublisher interface {
	MasteryUpdated(ctx context.Context, tenantID, studentID uuid.UUID, skillKey string, data map[string]any)
	MasteryAdjusted(ctx context.Context, tenantID, studentID uuid.UUID, skillKey string, data map[string]any)
	MasteryReset(ctx context.Context, tenantID, studentID uuid.UUID, skillKey string, data map[string]any)
	SweepCompleted(ctx context.Context, report SweepReport)
}

type eventPublisher struct {
	log     *logger.Logger
	bus     bus.Bus
	metrics *observability.Metrics
}

func NewEventPublisher(baseLog *logger.Logger, b bus.Bus, metrics *observability.Metrics) EventPublisher {
	return &eventPublisher{
		log:     baseLog.With("service", "EventPublisher"),
		bus:     b,
		metrics: metrics,
	}
}

func (p *eventPublisher) MasteryUpdated(ctx context.Context, tenantID, studentID uuid.UUID, skillKey string, data map[string]any) {
	p.publish(ctx, realtime.NewEvent(realtime.EventMasteryUpdated, tenantID, studentID, skillKey, data))
}

func (p *eventPublisher) MasteryAdjusted(ctx context.Context, tenantID, studentID uuid.UUID, skillKey string, data map[string]any) {
	p.publish(ctx, realtime.NewEvent(realtime.EventMasteryAdjusted, tenantID, studentID, skillKey, data))
}

func (p *eventPublisher) MasteryReset(ctx context.Context, tenantID, studentID uuid.UUID, skillKey string, data map[string]any) {
	p.publish(ctx, realtime.NewEvent(realtime.EventMasteryReset, tenantID, studentID, skillKey, data))
}

func (p *eventPublisher) SweepCompleted(ctx context.Context, report SweepReport) {
	p.publish(ctx, realtime.NewEvent(realtime.EventSweepCompleted, uuid.Nil, uuid.Nil, "", map[string]any{
		"scanned":     report.Scanned,
		"decayed":     report.Decayed,
		"skipped":     report.Skipped,
		"conflicts":   report.Conflicts,
		"failed":      report.Failed,
		"duration_ms": report.Duration.Milliseconds(),
	}))
}

func (p *eventPublisher) publish(ctx context.Context, ev realtime.Event) {
	if p == nil || p.bus == nil {
		return
	}
	if corr, ok := ctxutil.CorrelationFrom(ctx); ok {
		ev.Source = corr.Source
		ev.RequestID = corr.RequestID
		ev.TraceID = corr.TraceID
	}
	err := p.bus.Publish(context.WithoutCancel(ctx), ev)
	p.metrics.IncEventPublished(ev.Type, err == nil)
	if err != nil {
		p.log.Warn("event publish failed", "type", ev.Type, "event_id", ev.ID, "request_id", ev.RequestID, "error", err)
	}
}

type noopPublisher struct{}

func (noopPublisher) MasteryUpdated(context.Context, uuid.UUID, uuid.UUID, string, map[string]any)  {}
func (noopPublisher) MasteryAdjusted(context.Context, uuid.UUID, uuid.UUID, string, map[string]any) {}
func (noopPublisher) MasteryReset(context.Context, uuid.UUID, uuid.UUID, string, map[string]any)    {}
func (noopPublisher) SweepCompleted(context.Context, SweepReport)                                  {}
