package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-mastery/internal/domain"
)

func SeedStudent(tb testing.TB, tx *gorm.DB, tenantID uuid.UUID) *types.Student {
	tb.Helper()
	s := &types.Student{ID: uuid.New(), TenantID: tenantID, DisplayName: "student"}
	if err := tx.Create(s).Error; err != nil {
		tb.Fatalf("seed student: %v", err)
	}
	return s
}

func SeedSubject(tb testing.TB, tx *gorm.DB, tenantID uuid.UUID, code string) *types.Subject {
	tb.Helper()
	s := &types.Subject{ID: uuid.New(), TenantID: tenantID, Code: code, Name: code}
	if err := tx.Create(s).Error; err != nil {
		tb.Fatalf("seed subject: %v", err)
	}
	return s
}

func SeedSkill(tb testing.TB, tx *gorm.DB, tenantID, subjectID uuid.UUID, key string, difficulty types.Difficulty) *types.Skill {
	tb.Helper()
	s := &types.Skill{ID: uuid.New(), TenantID: tenantID, SubjectID: subjectID, SkillKey: key, Name: key, Difficulty: difficulty}
	if err := tx.Create(s).Error; err != nil {
		tb.Fatalf("seed skill: %v", err)
	}
	return s
}

func SeedPrerequisite(tb testing.TB, tx *gorm.DB, tenantID, subjectID uuid.UUID, skill, prereq string, weight float64, strict bool) *types.SkillPrerequisite {
	tb.Helper()
	p := &types.SkillPrerequisite{
		ID:                   uuid.New(),
		TenantID:             tenantID,
		SubjectID:            subjectID,
		SkillKey:             skill,
		PrerequisiteSkillKey: prereq,
		Weight:               weight,
		IsStrict:             strict,
		Active:               true,
	}
	if err := tx.Create(p).Error; err != nil {
		tb.Fatalf("seed prerequisite: %v", err)
	}
	return p
}

func SeedModule(tb testing.TB, tx *gorm.DB, tenantID, subjectID uuid.UUID, title string, skills ...string) *types.LearningModule {
	tb.Helper()
	raw, _ := json.Marshal(skills)
	m := &types.LearningModule{ID: uuid.New(), TenantID: tenantID, SubjectID: subjectID, Title: title, SkillKeys: datatypes.JSON(raw)}
	if err := tx.Create(m).Error; err != nil {
		tb.Fatalf("seed module: %v", err)
	}
	return m
}

// SeedPath creates a path over modules in the given order. A nil studentID
// makes it the subject default.
func SeedPath(tb testing.TB, tx *gorm.DB, tenantID, subjectID uuid.UUID, studentID *uuid.UUID, modules ...*types.LearningModule) *types.LearningPath {
	tb.Helper()
	p := &types.LearningPath{ID: uuid.New(), TenantID: tenantID, SubjectID: subjectID, StudentID: studentID, Name: "path"}
	if err := tx.Create(p).Error; err != nil {
		tb.Fatalf("seed path: %v", err)
	}
	for i, m := range modules {
		item := &types.LearningPathItem{ID: uuid.New(), TenantID: tenantID, PathID: p.ID, Position: i, ModuleID: m.ID}
		if err := tx.Create(item).Error; err != nil {
			tb.Fatalf("seed path item: %v", err)
		}
	}
	return p
}

// SeedMastery writes a mastery row directly, bypassing the aggregate.
func SeedMastery(tb testing.TB, tx *gorm.DB, tenantID, studentID, subjectID uuid.UUID, key string, level float64, attempts int, lastPracticed, nextReview *time.Time) *types.SkillMastery {
	tb.Helper()
	m := &types.SkillMastery{
		ID:               uuid.New(),
		TenantID:         tenantID,
		StudentID:        studentID,
		SubjectID:        subjectID,
		SkillKey:         key,
		MasteryLevel:     level,
		InteractionCount: attempts,
		LastPracticedAt:  lastPracticed,
		NextReviewAt:     nextReview,
		EaseFactor:       2.5,
		IntervalDays:     1,
		Version:          1,
	}
	if err := tx.Create(m).Error; err != nil {
		tb.Fatalf("seed mastery: %v", err)
	}
	return m
}
