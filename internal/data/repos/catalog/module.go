package catalog

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-mastery/internal/domain"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type LearningModuleRepo interface {
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.LearningModule, error)
	ListByIDs(dbc dbctx.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*types.LearningModule, error)
}

type LearningPathRepo interface {
	// ResolveForStudent returns the student's own path for the subject when one
	// exists, otherwise the subject default, with items in position order.
	ResolveForStudent(dbc dbctx.Context, tenantID, subjectID, studentID uuid.UUID) (*types.LearningPath, []*types.LearningPathItem, error)
}

type learningModuleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearningModuleRepo(db *gorm.DB, baseLog *logger.Logger) LearningModuleRepo {
	return &learningModuleRepo{db: db, log: baseLog.With("repo", "LearningModuleRepo")}
}

func (r *learningModuleRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.LearningModule, error) {
	var row types.LearningModule
	ok, err := takeScoped(dbx(r.db, dbc).WithContext(dbc.Ctx), &row, tenantID, "id = ?", id)
	if !ok {
		return nil, err
	}
	return &row, nil
}

func (r *learningModuleRepo) ListByIDs(dbc dbctx.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*types.LearningModule, error) {
	out := []*types.LearningModule{}
	if tenantID == uuid.Nil || len(ids) == 0 {
		return out, nil
	}
	if err := dbx(r.db, dbc).WithContext(dbc.Ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type learningPathRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearningPathRepo(db *gorm.DB, baseLog *logger.Logger) LearningPathRepo {
	return &learningPathRepo{db: db, log: baseLog.With("repo", "LearningPathRepo")}
}

func (r *learningPathRepo) ResolveForStudent(dbc dbctx.Context, tenantID, subjectID, studentID uuid.UUID) (*types.LearningPath, []*types.LearningPathItem, error) {
	if tenantID == uuid.Nil || subjectID == uuid.Nil {
		return nil, nil, nil
	}
	q := dbx(r.db, dbc).WithContext(dbc.Ctx)

	var path types.LearningPath
	err := q.Where("tenant_id = ? AND subject_id = ? AND student_id = ?", tenantID, subjectID, studentID).
		Order("created_at DESC").Limit(1).Take(&path).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = q.Where("tenant_id = ? AND subject_id = ? AND student_id IS NULL", tenantID, subjectID).
			Order("created_at DESC").Limit(1).Take(&path).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	items := []*types.LearningPathItem{}
	if err := q.Where("tenant_id = ? AND path_id = ?", tenantID, path.ID).
		Order("position ASC").
		Find(&items).Error; err != nil {
		return nil, nil, err
	}
	return &path, items, nil
}
