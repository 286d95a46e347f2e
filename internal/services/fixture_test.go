package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-mastery/internal/data/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/data/repos"
	repotest "github.com/yungbote/neurobridge-mastery/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-mastery/internal/domain"
	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type fixture struct {
	db      *gorm.DB
	log     *logger.Logger
	now     time.Time
	tenant  uuid.UUID
	student *types.Student
	subject *types.Subject

	agg    domainagg.SkillMasteryAggregate
	events *recordingPublisher
	mirror *recordingMirror

	students     repos.StudentRepo
	subjects     repos.SubjectRepo
	skills       repos.SkillRepo
	prereqs      repos.SkillPrerequisiteRepo
	states       repos.SkillMasteryRepo
	modules      repos.LearningModuleRepo
	paths        repos.LearningPathRepo
	interactions repos.LearningInteractionRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	f := &fixture{
		db:           db,
		log:          log,
		now:          time.Now().UTC().Truncate(time.Second),
		tenant:       uuid.New(),
		events:       &recordingPublisher{},
		mirror:       &recordingMirror{},
		students:     repos.NewStudentRepo(db, log),
		subjects:     repos.NewSubjectRepo(db, log),
		skills:       repos.NewSkillRepo(db, log),
		prereqs:      repos.NewSkillPrerequisiteRepo(db, log),
		states:       repos.NewSkillMasteryRepo(db, log),
		modules:      repos.NewLearningModuleRepo(db, log),
		paths:        repos.NewLearningPathRepo(db, log),
		interactions: repos.NewLearningInteractionRepo(db, log),
	}
	f.student = repotest.SeedStudent(t, db, f.tenant)
	f.subject = repotest.SeedSubject(t, db, f.tenant, "MATH")
	f.agg = aggregates.NewSkillMasteryAggregate(aggregates.SkillMasteryAggregateDeps{
		Base:         aggregates.BaseDeps{DB: db, Log: log},
		States:       f.states,
		Interactions: f.interactions,
		Adjustments:  repos.NewMasteryAdjustmentRepo(db, log),
	})
	return f
}

func (f *fixture) masteryService() MasteryService {
	return NewMasteryService(MasteryServiceDeps{
		Log:       f.log,
		Aggregate: f.agg,
		Students:  f.students,
		Subjects:  f.subjects,
		Skills:    f.skills,
		States:    f.states,
		Events:    f.events,
		Mirror:    f.mirror,
	})
}

func (f *fixture) prerequisiteService() PrerequisiteService {
	return NewPrerequisiteService(f.log, f.students, f.subjects, f.skills, f.prereqs, f.states, f.mirror, DefaultGraphParams())
}

func (f *fixture) recommendationService() RecommendationService {
	return NewRecommendationService(RecommendationServiceDeps{
		Log:       f.log,
		Students:  f.students,
		Subjects:  f.subjects,
		Skills:    f.skills,
		Prereqs:   f.prereqs,
		States:    f.states,
		Modules:   f.modules,
		Paths:     f.paths,
		Graph:     DefaultGraphParams(),
		Recommend: DefaultRecommendParams(),
		Now:       func() time.Time { return f.now },
	})
}

func (f *fixture) skill(t *testing.T, key string) *types.Skill {
	t.Helper()
	return repotest.SeedSkill(t, f.db, f.tenant, f.subject.ID, key, types.DifficultyMedium)
}

func (f *fixture) edge(t *testing.T, skill, prereq string, weight float64, strict bool) {
	t.Helper()
	repotest.SeedPrerequisite(t, f.db, f.tenant, f.subject.ID, skill, prereq, weight, strict)
}

func (f *fixture) mastery(t *testing.T, key string, level float64, attempts int, nextReview *time.Time) *types.SkillMastery {
	t.Helper()
	last := f.now.Add(-time.Hour)
	return repotest.SeedMastery(t, f.db, f.tenant, f.student.ID, f.subject.ID, key, level, attempts, &last, nextReview)
}

func ago(now time.Time, d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

type publishedEvent struct {
	Type     string
	SkillKey string
	Data     map[string]any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	sweeps []SweepReport
}

func (p *recordingPublisher) record(typ, key string, data map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: typ, SkillKey: key, Data: data})
}

func (p *recordingPublisher) MasteryUpdated(_ context.Context, _, _ uuid.UUID, key string, data map[string]any) {
	p.record("mastery.updated", key, data)
}

func (p *recordingPublisher) MasteryAdjusted(_ context.Context, _, _ uuid.UUID, key string, data map[string]any) {
	p.record("mastery.adjusted", key, data)
}

func (p *recordingPublisher) MasteryReset(_ context.Context, _, _ uuid.UUID, key string, data map[string]any) {
	p.record("mastery.reset", key, data)
}

func (p *recordingPublisher) SweepCompleted(_ context.Context, r SweepReport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sweeps = append(p.sweeps, r)
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingMirror struct {
	mu       sync.Mutex
	mastery  []*types.SkillMastery
	edgeSets [][]*types.SkillPrerequisite
}

func (m *recordingMirror) SyncPrerequisites(_ context.Context, _ uuid.UUID, _ *uuid.UUID, edges []*types.SkillPrerequisite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edgeSets = append(m.edgeSets, edges)
	return nil
}

func (m *recordingMirror) SyncMastery(_ context.Context, row *types.SkillMastery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mastery = append(m.mastery, row)
	return nil
}
