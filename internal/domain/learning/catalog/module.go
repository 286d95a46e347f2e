package catalog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LearningModule is a content unit owned by content authoring. SkillKeys holds
// the JSON array of skills the module requires.
type LearningModule struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	SubjectID uuid.UUID      `gorm:"type:uuid;not null;index" json:"subject_id"`
	Title     string         `gorm:"column:title;not null" json:"title"`
	SkillKeys datatypes.JSON `gorm:"column:skill_keys" json:"skill_keys"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LearningModule) TableName() string { return "learning_module" }

func (m *LearningModule) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// RequiredSkills decodes SkillKeys; malformed JSON yields no skills.
func (m *LearningModule) RequiredSkills() []string {
	if m == nil || len(m.SkillKeys) == 0 {
		return nil
	}
	var keys []string
	if err := json.Unmarshal(m.SkillKeys, &keys); err != nil {
		return nil
	}
	return keys
}

// LearningPath orders modules for a subject. A path with StudentID set
// overrides the subject default for that student.
type LearningPath struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_learning_path_scope,priority:1" json:"tenant_id"`
	SubjectID uuid.UUID  `gorm:"type:uuid;not null;index:idx_learning_path_scope,priority:2" json:"subject_id"`
	StudentID *uuid.UUID `gorm:"type:uuid;index:idx_learning_path_scope,priority:3" json:"student_id,omitempty"`
	Name      string     `gorm:"column:name;not null" json:"name"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LearningPath) TableName() string { return "learning_path" }

func (p *LearningPath) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type LearningPathItem struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PathID   uuid.UUID `gorm:"type:uuid;not null;index:idx_learning_path_item,unique,priority:1" json:"path_id"`
	Position int       `gorm:"column:position;not null;index:idx_learning_path_item,unique,priority:2" json:"position"`
	ModuleID uuid.UUID `gorm:"type:uuid;not null;index" json:"module_id"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LearningPathItem) TableName() string { return "learning_path_item" }

func (i *LearningPathItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
