package people

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Student is a read-only identity reference scoped to a tenant.
type Student struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	DisplayName string    `gorm:"column:display_name" json:"display_name"`
	ExternalRef string    `gorm:"column:external_ref;index" json:"external_ref,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Student) TableName() string { return "student" }

func (s *Student) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
