package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/neurobridge-mastery/internal/data/graph"
	"github.com/yungbote/neurobridge-mastery/internal/data/repos"
	types "github.com/yungbote/neurobridge-mastery/internal/domain"
	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/learning/masterymodel"
	"github.com/yungbote/neurobridge-mastery/internal/observability"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

// MasteryView is a mastery row plus the confidence derived from its attempt count.
type MasteryView struct {
	*types.SkillMastery
	Confidence float64 `json:"confidence"`
	Unknown    bool    `json:"unknown"`
}

func newMasteryView(p masterymodel.Params, row *types.SkillMastery) MasteryView {
	return MasteryView{
		SkillMastery: row,
		Confidence:   masterymodel.Confidence(p, row.InteractionCount),
		Unknown:      masterymodel.IsUnknown(p, row.InteractionCount),
	}
}

type RecordInteractionRequest struct {
	TenantID  uuid.UUID
	StudentID uuid.UUID
	// SubjectID may be nil; the skill's own subject is used then.
	SubjectID uuid.UUID
	ModuleID  *uuid.UUID
	SkillKey  string

	Outcome          string
	Score            float64
	TimeTakenSeconds float64
	HintsUsed        int
	// Difficulty defaults to the skill's authored difficulty.
	Difficulty  string
	AttemptedAt time.Time
	Metadata    map[string]any
}

type InteractionResult struct {
	Mastery        MasteryView `json:"mastery"`
	InteractionID  uuid.UUID   `json:"interaction_id"`
	MasteryBefore  float64     `json:"mastery_before"`
	EffectiveScore float64     `json:"effective_score"`
	Alpha          float64     `json:"alpha"`
	Quality        int         `json:"quality"`
}

type AdjustMasteryRequest struct {
	TenantID  uuid.UUID
	StudentID uuid.UUID
	SkillKey  string
	NewLevel  float64
	Reason    string
	ActorID   *uuid.UUID
}

type ResetMasteryRequest struct {
	TenantID  uuid.UUID
	StudentID uuid.UUID
	SkillKey  string
	Reason    string
	ActorID   *uuid.UUID
}

type MasteryService interface {
	RecordInteraction(ctx context.Context, req RecordInteractionRequest) (*InteractionResult, error)
	GetStudentMastery(ctx context.Context, tenantID, studentID, subjectID uuid.UUID) ([]MasteryView, error)
	AdjustMastery(ctx context.Context, req AdjustMasteryRequest) (*MasteryView, error)
	ResetSkillMastery(ctx context.Context, req ResetMasteryRequest) error
}

type MasteryServiceDeps struct {
	Log       *logger.Logger
	Aggregate domainagg.SkillMasteryAggregate
	Students  repos.StudentRepo
	Subjects  repos.SubjectRepo
	Skills    repos.SkillRepo
	States    repos.SkillMasteryRepo
	Events    EventPublisher
	Mirror    graph.Mirror
	Metrics   *observability.Metrics
	Model     masterymodel.Params
}

type masteryService struct {
	log      *logger.Logger
	agg      domainagg.SkillMasteryAggregate
	students repos.StudentRepo
	subjects repos.SubjectRepo
	skills   repos.SkillRepo
	states   repos.SkillMasteryRepo
	events   EventPublisher
	mirror   graph.Mirror
	metrics  *observability.Metrics
	model    masterymodel.Params
}

func NewMasteryService(deps MasteryServiceDeps) MasteryService {
	model := deps.Model
	if model.Validate() != nil {
		model = masterymodel.DefaultParams()
	}
	events := deps.Events
	if events == nil {
		events = noopPublisher{}
	}
	return &masteryService{
		log:      deps.Log.With("service", "MasteryService"),
		agg:      deps.Aggregate,
		students: deps.Students,
		subjects: deps.Subjects,
		skills:   deps.Skills,
		states:   deps.States,
		events:   events,
		mirror:   deps.Mirror,
		metrics:  deps.Metrics,
		model:    model,
	}
}

func (s *masteryService) RecordInteraction(ctx context.Context, req RecordInteractionRequest) (res *InteractionResult, err error) {
	const op = "MasteryService.RecordInteraction"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	req.SkillKey = strings.TrimSpace(req.SkillKey)
	if err := requireStudent(ctx, s.students, op, req.TenantID, req.StudentID); err != nil {
		return nil, err
	}
	skill, err := requireSkill(ctx, s.skills, op, req.TenantID, req.SkillKey)
	if err != nil {
		return nil, err
	}
	subjectID := req.SubjectID
	if subjectID == uuid.Nil {
		subjectID = skill.SubjectID
	} else {
		if err := requireSubject(ctx, s.subjects, op, req.TenantID, subjectID); err != nil {
			return nil, err
		}
		if skill.SubjectID != subjectID {
			return nil, domainagg.NewError(domainagg.CodeNotFound, op, "skill not found in subject", nil)
		}
	}
	difficulty := req.Difficulty
	if strings.TrimSpace(difficulty) == "" {
		difficulty = string(skill.Difficulty)
	}
	var expected float64
	if skill.ExpectedSeconds != nil && *skill.ExpectedSeconds > 0 {
		expected = *skill.ExpectedSeconds
	}
	span.SetAttributes(
		attribute.String("skill_key", req.SkillKey),
		attribute.String("outcome", req.Outcome),
	)

	out, err := s.agg.RecordInteraction(ctx, domainagg.RecordInteractionInput{
		TenantID:         req.TenantID,
		StudentID:        req.StudentID,
		SubjectID:        subjectID,
		ModuleID:         req.ModuleID,
		SkillKey:         req.SkillKey,
		Outcome:          req.Outcome,
		Score:            req.Score,
		TimeTakenSeconds: req.TimeTakenSeconds,
		HintsUsed:        req.HintsUsed,
		Difficulty:       difficulty,
		ExpectedSeconds:  expected,
		AttemptedAt:      req.AttemptedAt,
		Metadata:         req.Metadata,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveInteraction(strings.ToUpper(strings.TrimSpace(req.Outcome)), out.MasteryAfter)

	row, err := s.states.GetByKey(dbctx.Context{Ctx: ctx}, req.TenantID, req.StudentID, req.SkillKey)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if row == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "mastery row missing after write", nil)
	}

	s.events.MasteryUpdated(ctx, req.TenantID, req.StudentID, req.SkillKey, map[string]any{
		"mastery_before":  out.MasteryBefore,
		"mastery_after":   out.MasteryAfter,
		"quality":         out.Quality,
		"interval_days":   row.IntervalDays,
		"next_review_at":  row.NextReviewAt,
		"interaction_id":  out.InteractionID,
		"created":         out.Created,
		"attempts":        out.Attempts,
		"effective_score": out.EffectiveScore,
	})
	s.syncMirror(ctx, row)

	return &InteractionResult{
		Mastery:        newMasteryView(s.model, row),
		InteractionID:  out.InteractionID,
		MasteryBefore:  out.MasteryBefore,
		EffectiveScore: out.EffectiveScore,
		Alpha:          out.Alpha,
		Quality:        out.Quality,
	}, nil
}

func (s *masteryService) GetStudentMastery(ctx context.Context, tenantID, studentID, subjectID uuid.UUID) (out []MasteryView, err error) {
	const op = "MasteryService.GetStudentMastery"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	if err := requireStudent(ctx, s.students, op, tenantID, studentID); err != nil {
		return nil, err
	}
	if err := requireSubject(ctx, s.subjects, op, tenantID, subjectID); err != nil {
		return nil, err
	}
	rows, err := s.states.ListByStudentSubject(dbctx.Context{Ctx: ctx}, tenantID, studentID, subjectID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	out = make([]MasteryView, 0, len(rows))
	for _, r := range rows {
		out = append(out, newMasteryView(s.model, r))
	}
	return out, nil
}

func (s *masteryService) AdjustMastery(ctx context.Context, req AdjustMasteryRequest) (view *MasteryView, err error) {
	const op = "MasteryService.AdjustMastery"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	req.SkillKey = strings.TrimSpace(req.SkillKey)
	if err := requireStudent(ctx, s.students, op, req.TenantID, req.StudentID); err != nil {
		return nil, err
	}
	out, err := s.agg.AdjustMastery(ctx, domainagg.AdjustMasteryInput{
		TenantID:  req.TenantID,
		StudentID: req.StudentID,
		SkillKey:  req.SkillKey,
		NewLevel:  req.NewLevel,
		Reason:    req.Reason,
		ActorID:   req.ActorID,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("mastery adjusted",
		"tenant_id", req.TenantID,
		"student_id", req.StudentID,
		"skill_key", req.SkillKey,
		"previous_level", out.PreviousLevel,
		"new_level", out.NewLevel,
		"reason", strings.TrimSpace(req.Reason),
		"actor_id", req.ActorID,
		"adjustment_id", out.AdjustmentID,
	)

	row, err := s.states.GetByKey(dbctx.Context{Ctx: ctx}, req.TenantID, req.StudentID, req.SkillKey)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if row == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "mastery row missing after write", nil)
	}
	s.events.MasteryAdjusted(ctx, req.TenantID, req.StudentID, req.SkillKey, map[string]any{
		"previous_level": out.PreviousLevel,
		"new_level":      out.NewLevel,
		"reason":         strings.TrimSpace(req.Reason),
		"adjustment_id":  out.AdjustmentID,
	})
	s.syncMirror(ctx, row)

	v := newMasteryView(s.model, row)
	return &v, nil
}

func (s *masteryService) ResetSkillMastery(ctx context.Context, req ResetMasteryRequest) (err error) {
	const op = "MasteryService.ResetSkillMastery"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	req.SkillKey = strings.TrimSpace(req.SkillKey)
	if err := requireStudent(ctx, s.students, op, req.TenantID, req.StudentID); err != nil {
		return err
	}
	out, err := s.agg.Reset(ctx, domainagg.ResetMasteryInput{
		TenantID:  req.TenantID,
		StudentID: req.StudentID,
		SkillKey:  req.SkillKey,
		Reason:    req.Reason,
		ActorID:   req.ActorID,
	})
	if err != nil {
		return err
	}
	s.log.Info("mastery reset",
		"tenant_id", req.TenantID,
		"student_id", req.StudentID,
		"skill_key", req.SkillKey,
		"previous_level", out.PreviousLevel,
		"actor_id", req.ActorID,
	)
	s.events.MasteryReset(ctx, req.TenantID, req.StudentID, req.SkillKey, map[string]any{
		"previous_level": out.PreviousLevel,
		"adjustment_id":  out.AdjustmentID,
	})
	if row, gerr := s.states.GetByKeyUnscoped(dbctx.Context{Ctx: ctx}, req.TenantID, req.StudentID, req.SkillKey); gerr == nil && row != nil {
		s.syncMirror(ctx, row)
	}
	return nil
}

func (s *masteryService) syncMirror(ctx context.Context, row *types.SkillMastery) {
	if s.mirror == nil || row == nil {
		return
	}
	if err := s.mirror.SyncMastery(context.WithoutCancel(ctx), row); err != nil {
		s.log.Warn("mastery mirror sync failed", "skill_key", row.SkillKey, "student_id", row.StudentID, "error", err)
	}
}
