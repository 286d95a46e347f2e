package mastery

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AdjustmentKindOverride = "override"
	AdjustmentKindReset    = "reset"
)

// MasteryAdjustment audits every write to SkillMastery that bypasses the
// interaction path.
type MasteryAdjustment struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_mastery_adjustment_key,priority:1" json:"tenant_id"`
	StudentID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_mastery_adjustment_key,priority:2" json:"student_id"`
	SkillKey      string     `gorm:"column:skill_key;not null;index:idx_mastery_adjustment_key,priority:3" json:"skill_key"`
	Kind          string     `gorm:"column:kind;not null" json:"kind"`
	PreviousLevel float64    `gorm:"column:previous_level;not null" json:"previous_level"`
	NewLevel      float64    `gorm:"column:new_level;not null" json:"new_level"`
	Reason        string     `gorm:"column:reason;not null" json:"reason"`
	ActorID       *uuid.UUID `gorm:"type:uuid" json:"actor_id,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
}

func (MasteryAdjustment) TableName() string { return "mastery_adjustment" }

func (a *MasteryAdjustment) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
