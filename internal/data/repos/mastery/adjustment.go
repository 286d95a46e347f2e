package mastery

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-mastery/internal/domain"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type MasteryAdjustmentRepo interface {
	Create(dbc dbctx.Context, row *types.MasteryAdjustment) error
	ListByStudentSkill(dbc dbctx.Context, tenantID, studentID uuid.UUID, skillKey string) ([]*types.MasteryAdjustment, error)
}

type masteryAdjustmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMasteryAdjustmentRepo(db *gorm.DB, baseLog *logger.Logger) MasteryAdjustmentRepo {
	return &masteryAdjustmentRepo{db: db, log: baseLog.With("repo", "MasteryAdjustmentRepo")}
}

func (r *masteryAdjustmentRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *masteryAdjustmentRepo) Create(dbc dbctx.Context, row *types.MasteryAdjustment) error {
	if row == nil {
		return nil
	}
	return r.dbx(dbc).WithContext(dbc.Ctx).Create(row).Error
}

func (r *masteryAdjustmentRepo) ListByStudentSkill(dbc dbctx.Context, tenantID, studentID uuid.UUID, skillKey string) ([]*types.MasteryAdjustment, error) {
	out := []*types.MasteryAdjustment{}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("tenant_id = ? AND student_id = ? AND skill_key = ?", tenantID, studentID, skillKey).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
