package services

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/neurobridge-mastery/internal/data/repos"
	types "github.com/yungbote/neurobridge-mastery/internal/domain"
	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/learning/skillgraph"
	"github.com/yungbote/neurobridge-mastery/internal/observability"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
)

var tracer = observability.Tracer("github.com/yungbote/neurobridge-mastery/internal/services")

func endSpan(span trace.Span, err error) {
	if err != nil && !domainagg.IsCode(err, domainagg.CodeNotFound) && !domainagg.IsCode(err, domainagg.CodeValidation) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// BlockingSkill is an unmet strict prerequisite.
type BlockingSkill struct {
	SkillKey     string  `json:"skill_key"`
	MasteryLevel float64 `json:"mastery_level"`
	Threshold    float64 `json:"threshold"`
	Weight       float64 `json:"weight"`
}

func toEdges(rows []*types.SkillPrerequisite) []skillgraph.Edge {
	out := make([]skillgraph.Edge, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		out = append(out, skillgraph.Edge{
			Skill:        r.SkillKey,
			Prerequisite: r.PrerequisiteSkillKey,
			Weight:       r.Weight,
			Strict:       r.IsStrict,
		})
	}
	return out
}

// loadGraph reads the active edges for a tenant, optionally narrowed to one subject.
func loadGraph(ctx context.Context, prereqs repos.SkillPrerequisiteRepo, tenantID uuid.UUID, subjectID *uuid.UUID) (*skillgraph.Graph, []*types.SkillPrerequisite, error) {
	rows, err := prereqs.ListActive(dbctx.Context{Ctx: ctx}, tenantID, subjectID)
	if err != nil {
		return nil, nil, err
	}
	return skillgraph.New(toEdges(rows)), rows, nil
}

// masteryLevels maps skill key to the student's current level. Missing rows read as zero.
func masteryLevels(rows []*types.SkillMastery) map[string]float64 {
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		if r != nil {
			out[r.SkillKey] = r.MasteryLevel
		}
	}
	return out
}

func unmetStrict(g *skillgraph.Graph, skill string, levels map[string]float64, threshold float64) []BlockingSkill {
	var out []BlockingSkill
	for _, e := range g.StrictPrerequisites(skill) {
		level := levels[e.Prerequisite]
		if level >= threshold {
			continue
		}
		out = append(out, BlockingSkill{
			SkillKey:     e.Prerequisite,
			MasteryLevel: level,
			Threshold:    threshold,
			Weight:       e.Weight,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].SkillKey < out[j].SkillKey
	})
	return out
}

// leafBlocker walks unmet strict prerequisites from start until it reaches a
// skill whose own strict prerequisites are all met. Cycles stop the walk.
func leafBlocker(g *skillgraph.Graph, start string, levels map[string]float64, threshold float64) string {
	cur := start
	seen := map[string]bool{cur: true}
	for {
		next := ""
		for _, b := range unmetStrict(g, cur, levels, threshold) {
			if !seen[b.SkillKey] {
				next = b.SkillKey
				break
			}
		}
		if next == "" {
			return cur
		}
		seen[next] = true
		cur = next
	}
}

func requireStudent(ctx context.Context, students repos.StudentRepo, op string, tenantID, studentID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing tenant_id", nil)
	}
	if studentID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing student_id", nil)
	}
	st, err := students.GetByID(dbctx.Context{Ctx: ctx}, tenantID, studentID)
	if err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if st == nil {
		return domainagg.NewError(domainagg.CodeNotFound, op, "student not found", nil)
	}
	return nil
}

func requireSubject(ctx context.Context, subjects repos.SubjectRepo, op string, tenantID, subjectID uuid.UUID) error {
	if subjectID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing subject_id", nil)
	}
	sub, err := subjects.GetByID(dbctx.Context{Ctx: ctx}, tenantID, subjectID)
	if err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if sub == nil {
		return domainagg.NewError(domainagg.CodeNotFound, op, "subject not found", nil)
	}
	return nil
}

func requireSkill(ctx context.Context, skills repos.SkillRepo, op string, tenantID uuid.UUID, skillKey string) (*types.Skill, error) {
	if skillKey == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing skill_key", nil)
	}
	sk, err := skills.GetByKey(dbctx.Context{Ctx: ctx}, tenantID, skillKey)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if sk == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "skill not found", nil)
	}
	return sk, nil
}
