package mastery

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-mastery/internal/domain"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

// LearningInteractionRepo is append-only: there is no update or delete.
type LearningInteractionRepo interface {
	Create(dbc dbctx.Context, row *types.LearningInteraction) error
	ListByStudentSkill(dbc dbctx.Context, tenantID, studentID uuid.UUID, skillKey string, limit int) ([]*types.LearningInteraction, error)
	CountByStudentSkill(dbc dbctx.Context, tenantID, studentID uuid.UUID, skillKey string) (int64, error)
}

type learningInteractionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearningInteractionRepo(db *gorm.DB, baseLog *logger.Logger) LearningInteractionRepo {
	return &learningInteractionRepo{db: db, log: baseLog.With("repo", "LearningInteractionRepo")}
}

func (r *learningInteractionRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *learningInteractionRepo) Create(dbc dbctx.Context, row *types.LearningInteraction) error {
	if row == nil {
		return nil
	}
	return r.dbx(dbc).WithContext(dbc.Ctx).Create(row).Error
}

func (r *learningInteractionRepo) ListByStudentSkill(dbc dbctx.Context, tenantID, studentID uuid.UUID, skillKey string, limit int) ([]*types.LearningInteraction, error) {
	out := []*types.LearningInteraction{}
	skillKey = strings.TrimSpace(skillKey)
	if tenantID == uuid.Nil || studentID == uuid.Nil || skillKey == "" {
		return out, nil
	}
	q := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("tenant_id = ? AND student_id = ? AND skill_key = ?", tenantID, studentID, skillKey).
		Order("attempted_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *learningInteractionRepo) CountByStudentSkill(dbc dbctx.Context, tenantID, studentID uuid.UUID, skillKey string) (int64, error) {
	var n int64
	err := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.LearningInteraction{}).
		Where("tenant_id = ? AND student_id = ? AND skill_key = ?", tenantID, studentID, strings.TrimSpace(skillKey)).
		Count(&n).Error
	return n, err
}
