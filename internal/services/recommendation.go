package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/neurobridge-mastery/internal/data/repos"
	types "github.com/yungbote/neurobridge-mastery/internal/domain"
	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/learning/masterymodel"
	"github.com/yungbote/neurobridge-mastery/internal/learning/skillgraph"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

const (
	RecommendationReview     = "review"
	RecommendationRemedial   = "remedial"
	RecommendationNextModule = "next_module"
)

// Recommendation is the single next step for a student in a subject.
type Recommendation struct {
	Kind     string                `json:"kind"`
	SkillKey string                `json:"skill_key,omitempty"`
	Module   *types.LearningModule `json:"module,omitempty"`
	// BlockedSkill is the path skill a remedial recommendation unlocks.
	BlockedSkill   string          `json:"blocked_skill,omitempty"`
	Blocking       []BlockingSkill `json:"blocking,omitempty"`
	OverdueSeconds float64         `json:"overdue_seconds,omitempty"`
	MasteryLevel   float64         `json:"mastery_level"`
}

type ReviewItem struct {
	SkillKey           string    `json:"skill_key"`
	SubjectID          uuid.UUID `json:"subject_id"`
	MasteryLevel       float64   `json:"mastery_level"`
	NextReviewAt       time.Time `json:"next_review_at"`
	OverdueSeconds     float64   `json:"overdue_seconds"`
	PrerequisiteWeight float64   `json:"prerequisite_weight"`
}

const (
	DiagnosticLowConfidence = "low_confidence"
	DiagnosticNearThreshold = "near_threshold"
)

type DiagnosticItem struct {
	SkillKey     string  `json:"skill_key"`
	MasteryLevel float64 `json:"mastery_level"`
	Confidence   float64 `json:"confidence"`
	Attempts     int     `json:"attempts"`
	Reason       string  `json:"reason"`
}

type ModuleAccess struct {
	ModuleID   uuid.UUID                  `json:"module_id"`
	Accessible bool                       `json:"accessible"`
	Blocking   map[string][]BlockingSkill `json:"blocking,omitempty"`
}

type RecommendationService interface {
	// GetNextModule returns nil with no error when nothing qualifies.
	GetNextModule(ctx context.Context, tenantID, studentID, subjectID uuid.UUID) (*Recommendation, error)
	GetReviewQueue(ctx context.Context, tenantID, studentID uuid.UUID) ([]ReviewItem, error)
	GetDiagnosticAssessment(ctx context.Context, tenantID, studentID, subjectID uuid.UUID) ([]DiagnosticItem, error)
	CanAccessModule(ctx context.Context, tenantID, studentID, moduleID uuid.UUID) (*ModuleAccess, error)
}

type RecommendationServiceDeps struct {
	Log       *logger.Logger
	Students  repos.StudentRepo
	Subjects  repos.SubjectRepo
	Skills    repos.SkillRepo
	Prereqs   repos.SkillPrerequisiteRepo
	States    repos.SkillMasteryRepo
	Modules   repos.LearningModuleRepo
	Paths     repos.LearningPathRepo
	Model     masterymodel.Params
	Graph     GraphParams
	Recommend RecommendParams
	Now       func() time.Time
}

type recommendationService struct {
	log       *logger.Logger
	students  repos.StudentRepo
	subjects  repos.SubjectRepo
	skills    repos.SkillRepo
	prereqs   repos.SkillPrerequisiteRepo
	states    repos.SkillMasteryRepo
	modules   repos.LearningModuleRepo
	paths     repos.LearningPathRepo
	model     masterymodel.Params
	threshold float64
	recommend RecommendParams
	now       func() time.Time
}

func NewRecommendationService(deps RecommendationServiceDeps) RecommendationService {
	model := deps.Model
	if model.Validate() != nil {
		model = masterymodel.DefaultParams()
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &recommendationService{
		log:       deps.Log.With("service", "RecommendationService"),
		students:  deps.Students,
		subjects:  deps.Subjects,
		skills:    deps.Skills,
		prereqs:   deps.Prereqs,
		states:    deps.States,
		modules:   deps.Modules,
		paths:     deps.Paths,
		model:     model,
		threshold: deps.Graph.withDefaults().UnlockThreshold,
		recommend: deps.Recommend,
		now:       now,
	}
}

// studentView is the read set shared by the recommendation queries.
type studentView struct {
	graph  *skillgraph.Graph
	rows   []*types.SkillMastery
	levels map[string]float64
}

func (s *recommendationService) loadStudentView(ctx context.Context, tenantID, studentID uuid.UUID) (*studentView, error) {
	v := &studentView{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		graph, _, err := loadGraph(gctx, s.prereqs, tenantID, nil)
		v.graph = graph
		return err
	})
	g.Go(func() error {
		rows, err := s.states.ListByStudent(dbctx.Context{Ctx: gctx}, tenantID, studentID)
		v.rows = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	v.levels = masteryLevels(v.rows)
	return v, nil
}

func (s *recommendationService) GetNextModule(ctx context.Context, tenantID, studentID, subjectID uuid.UUID) (rec *Recommendation, err error) {
	const op = "RecommendationService.GetNextModule"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	if err := requireStudent(ctx, s.students, op, tenantID, studentID); err != nil {
		return nil, err
	}
	if err := requireSubject(ctx, s.subjects, op, tenantID, subjectID); err != nil {
		return nil, err
	}

	var (
		view    *studentView
		modules []*types.LearningModule
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		view, err = s.loadStudentView(gctx, tenantID, studentID)
		return err
	})
	g.Go(func() error {
		var err error
		modules, err = s.pathModules(gctx, tenantID, subjectID, studentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	now := s.now()
	if due := mostOverdue(view.rows, subjectID, now); due != nil {
		return &Recommendation{
			Kind:           RecommendationReview,
			SkillKey:       due.SkillKey,
			Module:         moduleFor(modules, due.SkillKey),
			OverdueSeconds: now.Sub(*due.NextReviewAt).Seconds(),
			MasteryLevel:   due.MasteryLevel,
		}, nil
	}

	for _, m := range modules {
		required := m.RequiredSkills()
		var unmastered []string
		for _, k := range required {
			if view.levels[k] < s.threshold {
				unmastered = append(unmastered, k)
			}
		}
		if len(unmastered) == 0 {
			continue
		}
		for _, k := range unmastered {
			blocking := unmetStrict(view.graph, k, view.levels, s.threshold)
			if len(blocking) == 0 {
				continue
			}
			leaf := leafBlocker(view.graph, blocking[0].SkillKey, view.levels, s.threshold)
			return &Recommendation{
				Kind:         RecommendationRemedial,
				SkillKey:     leaf,
				Module:       moduleFor(modules, leaf),
				BlockedSkill: k,
				Blocking:     blocking,
				MasteryLevel: view.levels[leaf],
			}, nil
		}
		return &Recommendation{
			Kind:         RecommendationNextModule,
			SkillKey:     unmastered[0],
			Module:       m,
			MasteryLevel: view.levels[unmastered[0]],
		}, nil
	}
	return nil, nil
}

func (s *recommendationService) pathModules(ctx context.Context, tenantID, subjectID, studentID uuid.UUID) ([]*types.LearningModule, error) {
	dbc := dbctx.Context{Ctx: ctx}
	path, items, err := s.paths.ResolveForStudent(dbc, tenantID, subjectID, studentID)
	if err != nil || path == nil || len(items) == 0 {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ModuleID)
	}
	mods, err := s.modules.ListByIDs(dbc, tenantID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.LearningModule, len(mods))
	for _, m := range mods {
		byID[m.ID] = m
	}
	out := make([]*types.LearningModule, 0, len(items))
	for _, it := range items {
		if m := byID[it.ModuleID]; m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func mostOverdue(rows []*types.SkillMastery, subjectID uuid.UUID, now time.Time) *types.SkillMastery {
	var best *types.SkillMastery
	for _, r := range rows {
		if r == nil || r.SubjectID != subjectID || r.NextReviewAt == nil || r.NextReviewAt.After(now) {
			continue
		}
		if best == nil || r.NextReviewAt.Before(*best.NextReviewAt) ||
			(r.NextReviewAt.Equal(*best.NextReviewAt) && r.SkillKey < best.SkillKey) {
			best = r
		}
	}
	return best
}

func moduleFor(modules []*types.LearningModule, skillKey string) *types.LearningModule {
	for _, m := range modules {
		for _, k := range m.RequiredSkills() {
			if k == skillKey {
				return m
			}
		}
	}
	return nil
}

func (s *recommendationService) GetReviewQueue(ctx context.Context, tenantID, studentID uuid.UUID) (out []ReviewItem, err error) {
	const op = "RecommendationService.GetReviewQueue"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	if err := requireStudent(ctx, s.students, op, tenantID, studentID); err != nil {
		return nil, err
	}
	now := s.now()
	var (
		due   []*types.SkillMastery
		graph *skillgraph.Graph
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		due, err = s.states.ListDue(dbctx.Context{Ctx: gctx}, tenantID, studentID, now)
		return err
	})
	g.Go(func() error {
		var err error
		graph, _, err = loadGraph(gctx, s.prereqs, tenantID, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	out = make([]ReviewItem, 0, len(due))
	for _, r := range due {
		if r.NextReviewAt == nil {
			continue
		}
		out = append(out, ReviewItem{
			SkillKey:           r.SkillKey,
			SubjectID:          r.SubjectID,
			MasteryLevel:       r.MasteryLevel,
			NextReviewAt:       *r.NextReviewAt,
			OverdueSeconds:     now.Sub(*r.NextReviewAt).Seconds(),
			PrerequisiteWeight: graph.Weight(r.SkillKey),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OverdueSeconds != out[j].OverdueSeconds {
			return out[i].OverdueSeconds > out[j].OverdueSeconds
		}
		if out[i].PrerequisiteWeight != out[j].PrerequisiteWeight {
			return out[i].PrerequisiteWeight > out[j].PrerequisiteWeight
		}
		return out[i].SkillKey < out[j].SkillKey
	})
	return out, nil
}

func (s *recommendationService) GetDiagnosticAssessment(ctx context.Context, tenantID, studentID, subjectID uuid.UUID) (out []DiagnosticItem, err error) {
	const op = "RecommendationService.GetDiagnosticAssessment"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	if err := requireStudent(ctx, s.students, op, tenantID, studentID); err != nil {
		return nil, err
	}
	if err := requireSubject(ctx, s.subjects, op, tenantID, subjectID); err != nil {
		return nil, err
	}
	var (
		skills []*types.Skill
		rows   []*types.SkillMastery
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		skills, err = s.skills.ListBySubject(dbctx.Context{Ctx: gctx}, tenantID, subjectID)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = s.states.ListByStudentSubject(dbctx.Context{Ctx: gctx}, tenantID, studentID, subjectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	byKey := make(map[string]*types.SkillMastery, len(rows))
	for _, r := range rows {
		byKey[r.SkillKey] = r
	}
	out = []DiagnosticItem{}
	for _, sk := range skills {
		item := DiagnosticItem{SkillKey: sk.SkillKey}
		if r := byKey[sk.SkillKey]; r != nil {
			item.MasteryLevel = r.MasteryLevel
			item.Attempts = r.InteractionCount
		}
		item.Confidence = masterymodel.Confidence(s.model, item.Attempts)
		switch {
		case masterymodel.IsUnknown(s.model, item.Attempts):
			item.Reason = DiagnosticLowConfidence
		case math.Abs(item.MasteryLevel-s.threshold) <= s.recommend.NearThresholdBand:
			item.Reason = DiagnosticNearThreshold
		default:
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence < out[j].Confidence
		}
		di := math.Abs(out[i].MasteryLevel - s.threshold)
		dj := math.Abs(out[j].MasteryLevel - s.threshold)
		if di != dj {
			return di < dj
		}
		return out[i].SkillKey < out[j].SkillKey
	})
	if limit := s.recommend.DiagnosticLimit; limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *recommendationService) CanAccessModule(ctx context.Context, tenantID, studentID, moduleID uuid.UUID) (acc *ModuleAccess, err error) {
	const op = "RecommendationService.CanAccessModule"
	ctx, span := tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	if err := requireStudent(ctx, s.students, op, tenantID, studentID); err != nil {
		return nil, err
	}
	if moduleID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing module_id", nil)
	}
	mod, err := s.modules.GetByID(dbctx.Context{Ctx: ctx}, tenantID, moduleID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if mod == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "module not found", nil)
	}
	// A module naming a skill the tenant never defined is misconfigured, not open.
	for _, k := range mod.RequiredSkills() {
		if _, err := requireSkill(ctx, s.skills, op, tenantID, k); err != nil {
			return nil, err
		}
	}
	view, err := s.loadStudentView(ctx, tenantID, studentID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	acc = &ModuleAccess{ModuleID: moduleID, Accessible: true}
	for _, k := range mod.RequiredSkills() {
		blocking := unmetStrict(view.graph, k, view.levels, s.threshold)
		if len(blocking) == 0 {
			continue
		}
		if acc.Blocking == nil {
			acc.Blocking = map[string][]BlockingSkill{}
		}
		acc.Accessible = false
		acc.Blocking[k] = blocking
	}
	return acc, nil
}
