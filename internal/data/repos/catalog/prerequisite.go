package catalog

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-mastery/internal/domain"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type SkillPrerequisiteRepo interface {
	// ListActive returns active edges for the tenant, narrowed to one subject when
	// subjectID is set.
	ListActive(dbc dbctx.Context, tenantID uuid.UUID, subjectID *uuid.UUID) ([]*types.SkillPrerequisite, error)
	ListActiveForSkill(dbc dbctx.Context, tenantID uuid.UUID, skillKey string) ([]*types.SkillPrerequisite, error)
}

type skillPrerequisiteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSkillPrerequisiteRepo(db *gorm.DB, baseLog *logger.Logger) SkillPrerequisiteRepo {
	return &skillPrerequisiteRepo{db: db, log: baseLog.With("repo", "SkillPrerequisiteRepo")}
}

func (r *skillPrerequisiteRepo) ListActive(dbc dbctx.Context, tenantID uuid.UUID, subjectID *uuid.UUID) ([]*types.SkillPrerequisite, error) {
	out := []*types.SkillPrerequisite{}
	if tenantID == uuid.Nil {
		return out, nil
	}
	q := dbx(r.db, dbc).WithContext(dbc.Ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true)
	if subjectID != nil && *subjectID != uuid.Nil {
		q = q.Where("subject_id = ?", *subjectID)
	}
	if err := q.Order("skill_key ASC, prerequisite_skill_key ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *skillPrerequisiteRepo) ListActiveForSkill(dbc dbctx.Context, tenantID uuid.UUID, skillKey string) ([]*types.SkillPrerequisite, error) {
	out := []*types.SkillPrerequisite{}
	skillKey = strings.TrimSpace(skillKey)
	if tenantID == uuid.Nil || skillKey == "" {
		return out, nil
	}
	if err := dbx(r.db, dbc).WithContext(dbc.Ctx).
		Where("tenant_id = ? AND skill_key = ? AND active = ?", tenantID, skillKey, true).
		Order("prerequisite_skill_key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
