package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// ParseDifficulty normalizes a difficulty label; empty input yields MEDIUM.
func ParseDifficulty(raw string) (Difficulty, bool) {
	switch Difficulty(strings.ToUpper(strings.TrimSpace(raw))) {
	case "":
		return DifficultyMedium, true
	case DifficultyEasy:
		return DifficultyEasy, true
	case DifficultyMedium:
		return DifficultyMedium, true
	case DifficultyHard:
		return DifficultyHard, true
	default:
		return "", false
	}
}

// Skill is an atomic learning concept. SkillKey is unique within a tenant.
type Skill struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index:idx_skill_key,unique,priority:1" json:"tenant_id"`
	SkillKey  string    `gorm:"column:skill_key;not null;index:idx_skill_key,unique,priority:2" json:"skill_key"`
	SubjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"subject_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`

	Difficulty Difficulty `gorm:"column:difficulty;not null" json:"difficulty"`
	// ExpectedSeconds overrides the difficulty baseline used for time penalties.
	ExpectedSeconds *float64 `gorm:"column:expected_seconds" json:"expected_seconds,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Skill) TableName() string { return "skill" }

func (s *Skill) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Difficulty == "" {
		s.Difficulty = DifficultyMedium
	}
	return nil
}
