package mastery

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Outcome string

const (
	OutcomeCorrect   Outcome = "CORRECT"
	OutcomeIncorrect Outcome = "INCORRECT"
	OutcomePartial   Outcome = "PARTIAL"
)

func ParseOutcome(raw string) (Outcome, bool) {
	switch o := Outcome(strings.ToUpper(strings.TrimSpace(raw))); o {
	case OutcomeCorrect, OutcomeIncorrect, OutcomePartial:
		return o, true
	default:
		return "", false
	}
}

// LearningInteraction is one practice attempt. Rows are append-only.
type LearningInteraction struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_interaction_student_skill,priority:1" json:"tenant_id"`
	StudentID uuid.UUID  `gorm:"type:uuid;not null;index:idx_interaction_student_skill,priority:2" json:"student_id"`
	SkillKey  string     `gorm:"column:skill_key;not null;index:idx_interaction_student_skill,priority:3" json:"skill_key"`
	SubjectID uuid.UUID  `gorm:"type:uuid;not null;index" json:"subject_id"`
	ModuleID  *uuid.UUID `gorm:"type:uuid;index" json:"module_id,omitempty"`

	Outcome          Outcome `gorm:"column:outcome;not null" json:"outcome"`
	Score            float64 `gorm:"column:score;not null" json:"score"`
	TimeTakenSeconds float64 `gorm:"column:time_taken_seconds;not null" json:"time_taken_seconds"`
	HintsUsed        int     `gorm:"column:hints_used;not null" json:"hints_used"`
	Difficulty       string  `gorm:"column:difficulty;not null" json:"difficulty"`

	EffectiveScore float64 `gorm:"column:effective_score;not null" json:"effective_score"`
	Quality        int     `gorm:"column:quality;not null" json:"quality"`
	MasteryBefore  float64 `gorm:"column:mastery_before;not null" json:"mastery_before"`
	MasteryAfter   float64 `gorm:"column:mastery_after;not null" json:"mastery_after"`

	Metadata    datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	AttemptedAt time.Time      `gorm:"column:attempted_at;not null;index" json:"attempted_at"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (LearningInteraction) TableName() string { return "learning_interaction" }

func (i *LearningInteraction) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
