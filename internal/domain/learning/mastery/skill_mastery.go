package mastery

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SkillMastery is the per student x skill proficiency estimate. Rows are never
// hard-deleted; a reset soft-deletes and zeroes the row, and the next
// interaction revives it.
type SkillMastery struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index:idx_skill_mastery_key,unique,priority:1" json:"tenant_id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;index:idx_skill_mastery_key,unique,priority:2" json:"student_id"`
	SkillKey  string    `gorm:"column:skill_key;not null;index:idx_skill_mastery_key,unique,priority:3" json:"skill_key"`
	SubjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"subject_id"`

	MasteryLevel         float64 `gorm:"column:mastery_level;not null" json:"mastery_level"`
	VelocityScore        float64 `gorm:"column:velocity_score;not null" json:"velocity_score"`
	ConsecutiveCorrect   int     `gorm:"column:consecutive_correct;not null" json:"consecutive_correct"`
	ConsecutiveIncorrect int     `gorm:"column:consecutive_incorrect;not null" json:"consecutive_incorrect"`
	InteractionCount     int     `gorm:"column:interaction_count;not null" json:"interaction_count"`

	LastPracticedAt *time.Time `gorm:"column:last_practiced_at;index" json:"last_practiced_at,omitempty"`
	LastDifficulty  string     `gorm:"column:last_difficulty" json:"last_difficulty,omitempty"`

	EaseFactor   float64    `gorm:"column:ease_factor;not null" json:"ease_factor"`
	IntervalDays int        `gorm:"column:interval_days;not null" json:"interval_days"`
	Repetitions  int        `gorm:"column:repetitions;not null" json:"repetitions"`
	NextReviewAt *time.Time `gorm:"column:next_review_at;index" json:"next_review_at,omitempty"`

	// DecayedThrough marks the instant up to which decay has been applied.
	DecayedThrough *time.Time `gorm:"column:decayed_through" json:"decayed_through,omitempty"`

	Version int `gorm:"column:version;not null" json:"version"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SkillMastery) TableName() string { return "skill_mastery" }

func (m *SkillMastery) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
