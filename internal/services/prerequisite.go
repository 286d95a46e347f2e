package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-mastery/internal/data/graph"
	"github.com/yungbote/neurobridge-mastery/internal/data/repos"
	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/learning/skillgraph"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

// PrerequisiteStatus is the gate decision for one skill.
type PrerequisiteStatus struct {
	SkillKey  string          `json:"skill_key"`
	Unlocked  bool            `json:"unlocked"`
	Readiness float64         `json:"readiness"`
	Threshold float64         `json:"threshold"`
	Blocking  []BlockingSkill `json:"blocking"`
}

type PrerequisiteService interface {
	CheckPrerequisites(ctx context.Context, tenantID, studentID uuid.UUID, skillKey string) (bool, error)
	GetPrerequisiteStatus(ctx context.Context, tenantID, studentID uuid.UUID, skillKey string) (*PrerequisiteStatus, error)
	GetBlockingSkills(ctx context.Context, tenantID, studentID uuid.UUID, skillKey string) ([]BlockingSkill, error)
	GetPrerequisiteChain(ctx context.Context, tenantID, subjectID uuid.UUID, skillKey string) (*skillgraph.ChainResult, error)
	FindPrerequisiteBottlenecks(ctx context.Context, tenantID, subjectID uuid.UUID) ([]skillgraph.Bottleneck, error)
	GetRecommendedLearningOrder(ctx context.Context, tenantID, subjectID uuid.UUID) (*skillgraph.OrderResult, error)
	// ValidateGraph fails with CodeConfiguration when strict edges form a cycle.
	ValidateGraph(ctx context.Context, tenantID, subjectID uuid.UUID) error
	// SyncGraph mirrors the subject's active edges to the graph store.
	SyncGraph(ctx context.Context, tenantID, subjectID uuid.UUID) (int, error)
}

type prerequisiteService struct {
	log      *logger.Logger
	students repos.StudentRepo
	subjects repos.SubjectRepo
	skills   repos.SkillRepo
	prereqs  repos.SkillPrerequisiteRepo
	states   repos.SkillMasteryRepo
	mirror   graph.Mirror
	params   GraphParams
}

func NewPrerequisiteService(
	baseLog *logger.Logger,
	students repos.StudentRepo,
	subjects repos.SubjectRepo,
	skills repos.SkillRepo,
	prereqs repos.SkillPrerequisiteRepo,
	states repos.SkillMasteryRepo,
	mirror graph.Mirror,
	params GraphParams,
) PrerequisiteService {
	return &prerequisiteService{
		log:      baseLog.With("service", "PrerequisiteService"),
		students: students,
		subjects: subjects,
		skills:   skills,
		prereqs:  prereqs,
		states:   states,
		mirror:   mirror,
		params:   params.withDefaults(),
	}
}

func (s *prerequisiteService) CheckPrerequisites(ctx context.Context, tenantID, studentID uuid.UUID, skillKey string) (bool, error) {
	st, err := s.GetPrerequisiteStatus(ctx, tenantID, studentID, skillKey)
	if err != nil {
		return false, err
	}
	return st.Unlocked, nil
}

func (s *prerequisiteService) GetBlockingSkills(ctx context.Context, tenantID, studentID uuid.UUID, skillKey string) ([]BlockingSkill, error) {
	st, err := s.GetPrerequisiteStatus(ctx, tenantID, studentID, skillKey)
	if err != nil {
		return nil, err
	}
	return st.Blocking, nil
}

func (s *prerequisiteService) GetPrerequisiteStatus(ctx context.Context, tenantID, studentID uuid.UUID, skillKey string) (st *PrerequisiteStatus, err error) {
	const op = "PrerequisiteService.GetPrerequisiteStatus"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	skillKey = strings.TrimSpace(skillKey)
	if err := requireStudent(ctx, s.students, op, tenantID, studentID); err != nil {
		return nil, err
	}
	if _, err := requireSkill(ctx, s.skills, op, tenantID, skillKey); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	rows, err := s.prereqs.ListActiveForSkill(dbc, tenantID, skillKey)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	g := skillgraph.New(toEdges(rows))
	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r.PrerequisiteSkillKey)
	}
	levels := map[string]float64{}
	if len(keys) > 0 {
		states, err := s.states.ListByStudentSkills(dbc, tenantID, studentID, keys)
		if err != nil {
			return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
		levels = masteryLevels(states)
	}

	blocking := unmetStrict(g, skillKey, levels, s.params.UnlockThreshold)
	if blocking == nil {
		blocking = []BlockingSkill{}
	}
	return &PrerequisiteStatus{
		SkillKey:  skillKey,
		Unlocked:  len(blocking) == 0,
		Readiness: g.Readiness(skillKey, levels, s.params.UnlockThreshold),
		Threshold: s.params.UnlockThreshold,
		Blocking:  blocking,
	}, nil
}

func (s *prerequisiteService) GetPrerequisiteChain(ctx context.Context, tenantID, subjectID uuid.UUID, skillKey string) (res *skillgraph.ChainResult, err error) {
	const op = "PrerequisiteService.GetPrerequisiteChain"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	skillKey = strings.TrimSpace(skillKey)
	if tenantID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing tenant_id", nil)
	}
	if err := requireSubject(ctx, s.subjects, op, tenantID, subjectID); err != nil {
		return nil, err
	}
	skill, err := requireSkill(ctx, s.skills, op, tenantID, skillKey)
	if err != nil {
		return nil, err
	}
	if skill.SubjectID != subjectID {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "skill not found in subject", nil)
	}
	// Prerequisites may cross subjects, so the closure walks the tenant graph.
	g, _, err := loadGraph(ctx, s.prereqs, tenantID, nil)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	chain := g.Chain(skillKey)
	if chain.Skills == nil {
		chain.Skills = []skillgraph.ChainEntry{}
	}
	if len(chain.Cycles) > 0 {
		s.log.Warn("prerequisite cycle reachable from skill",
			"tenant_id", tenantID,
			"skill_key", skillKey,
			"cycles", formatCycles(chain.Cycles),
		)
	}
	return &chain, nil
}

func (s *prerequisiteService) FindPrerequisiteBottlenecks(ctx context.Context, tenantID, subjectID uuid.UUID) (out []skillgraph.Bottleneck, err error) {
	const op = "PrerequisiteService.FindPrerequisiteBottlenecks"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	if tenantID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing tenant_id", nil)
	}
	if err := requireSubject(ctx, s.subjects, op, tenantID, subjectID); err != nil {
		return nil, err
	}
	g, _, err := loadGraph(ctx, s.prereqs, tenantID, &subjectID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	avg, err := s.states.AverageBySkill(dbctx.Context{Ctx: ctx}, tenantID, subjectID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	out = g.Bottlenecks(avg, s.params.UnlockThreshold)
	if out == nil {
		out = []skillgraph.Bottleneck{}
	}
	return out, nil
}

func (s *prerequisiteService) GetRecommendedLearningOrder(ctx context.Context, tenantID, subjectID uuid.UUID) (res *skillgraph.OrderResult, err error) {
	const op = "PrerequisiteService.GetRecommendedLearningOrder"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	if tenantID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing tenant_id", nil)
	}
	if err := requireSubject(ctx, s.subjects, op, tenantID, subjectID); err != nil {
		return nil, err
	}
	g, _, err := loadGraph(ctx, s.prereqs, tenantID, &subjectID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	// Skills without edges still belong in the order.
	skills, err := s.skills.ListBySubject(dbctx.Context{Ctx: ctx}, tenantID, subjectID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	for _, sk := range skills {
		g.AddNode(sk.SkillKey)
	}
	order := g.LearningOrder()
	if order.Order == nil {
		order.Order = []string{}
	}
	if len(order.Cycles) > 0 {
		s.log.Warn("strict prerequisite cycles excluded from learning order",
			"tenant_id", tenantID,
			"subject_id", subjectID,
			"cycles", formatCycles(order.Cycles),
			"excluded", len(order.Excluded),
		)
	}
	return &order, nil
}

func (s *prerequisiteService) ValidateGraph(ctx context.Context, tenantID, subjectID uuid.UUID) (err error) {
	const op = "PrerequisiteService.ValidateGraph"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	if tenantID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing tenant_id", nil)
	}
	if err := requireSubject(ctx, s.subjects, op, tenantID, subjectID); err != nil {
		return err
	}
	g, _, err := loadGraph(ctx, s.prereqs, tenantID, &subjectID)
	if err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return CyclesError(op, g.StrictCycles())
}

func (s *prerequisiteService) SyncGraph(ctx context.Context, tenantID, subjectID uuid.UUID) (n int, err error) {
	const op = "PrerequisiteService.SyncGraph"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	if tenantID == uuid.Nil {
		return 0, domainagg.NewError(domainagg.CodeValidation, op, "missing tenant_id", nil)
	}
	if err := requireSubject(ctx, s.subjects, op, tenantID, subjectID); err != nil {
		return 0, err
	}
	_, rows, err := loadGraph(ctx, s.prereqs, tenantID, &subjectID)
	if err != nil {
		return 0, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if s.mirror == nil {
		return 0, nil
	}
	if err := s.mirror.SyncPrerequisites(ctx, tenantID, &subjectID, rows); err != nil {
		return 0, domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}
	s.log.Info("prerequisite graph mirrored", "tenant_id", tenantID, "subject_id", subjectID, "edges", len(rows))
	return len(rows), nil
}

// CyclesError reports strict cycles as a configuration error, or nil when there are none.
func CyclesError(op string, cycles [][]string) error {
	if len(cycles) == 0 {
		return nil
	}
	return domainagg.NewError(domainagg.CodeConfiguration, op, "strict prerequisite cycles: "+formatCycles(cycles), nil)
}

func formatCycles(cycles [][]string) string {
	parts := make([]string, 0, len(cycles))
	for _, c := range cycles {
		parts = append(parts, "["+strings.Join(c, " ")+"]")
	}
	return strings.Join(parts, "; ")
}
