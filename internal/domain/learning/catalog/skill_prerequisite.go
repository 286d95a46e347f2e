package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SkillPrerequisite is an authored edge SkillKey -> PrerequisiteSkillKey.
// Strict edges gate access; the strict subgraph is expected to be acyclic.
type SkillPrerequisite struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID             uuid.UUID `gorm:"type:uuid;not null;index:idx_skill_prerequisite,unique,priority:1" json:"tenant_id"`
	SkillKey             string    `gorm:"column:skill_key;not null;index:idx_skill_prerequisite,unique,priority:2" json:"skill_key"`
	PrerequisiteSkillKey string    `gorm:"column:prerequisite_skill_key;not null;index:idx_skill_prerequisite,unique,priority:3;index" json:"prerequisite_skill_key"`
	SubjectID            uuid.UUID `gorm:"type:uuid;not null;index" json:"subject_id"`

	Weight   float64 `gorm:"column:weight;not null" json:"weight"`
	IsStrict bool    `gorm:"column:is_strict;not null" json:"is_strict"`
	Active   bool    `gorm:"column:active;not null;index" json:"active"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SkillPrerequisite) TableName() string { return "skill_prerequisite" }

func (p *SkillPrerequisite) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
