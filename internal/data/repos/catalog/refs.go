package catalog

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-mastery/internal/domain"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

// StudentRepo and friends are read-only views over registry tables. Every
// lookup is tenant scoped; a row in another tenant is reported as absent.
type StudentRepo interface {
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Student, error)
}

type SubjectRepo interface {
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Subject, error)
}

type SkillRepo interface {
	GetByKey(dbc dbctx.Context, tenantID uuid.UUID, skillKey string) (*types.Skill, error)
	ListBySubject(dbc dbctx.Context, tenantID, subjectID uuid.UUID) ([]*types.Skill, error)
}

type studentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudentRepo(db *gorm.DB, baseLog *logger.Logger) StudentRepo {
	return &studentRepo{db: db, log: baseLog.With("repo", "StudentRepo")}
}

func (r *studentRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Student, error) {
	var row types.Student
	ok, err := takeScoped(dbx(r.db, dbc).WithContext(dbc.Ctx), &row, tenantID, "id = ?", id)
	if !ok {
		return nil, err
	}
	return &row, nil
}

type subjectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubjectRepo(db *gorm.DB, baseLog *logger.Logger) SubjectRepo {
	return &subjectRepo{db: db, log: baseLog.With("repo", "SubjectRepo")}
}

func (r *subjectRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Subject, error) {
	var row types.Subject
	ok, err := takeScoped(dbx(r.db, dbc).WithContext(dbc.Ctx), &row, tenantID, "id = ?", id)
	if !ok {
		return nil, err
	}
	return &row, nil
}

type skillRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSkillRepo(db *gorm.DB, baseLog *logger.Logger) SkillRepo {
	return &skillRepo{db: db, log: baseLog.With("repo", "SkillRepo")}
}

func (r *skillRepo) GetByKey(dbc dbctx.Context, tenantID uuid.UUID, skillKey string) (*types.Skill, error) {
	skillKey = strings.TrimSpace(skillKey)
	if skillKey == "" {
		return nil, nil
	}
	var row types.Skill
	ok, err := takeScoped(dbx(r.db, dbc).WithContext(dbc.Ctx), &row, tenantID, "skill_key = ?", skillKey)
	if !ok {
		return nil, err
	}
	return &row, nil
}

func (r *skillRepo) ListBySubject(dbc dbctx.Context, tenantID, subjectID uuid.UUID) ([]*types.Skill, error) {
	out := []*types.Skill{}
	if tenantID == uuid.Nil || subjectID == uuid.Nil {
		return out, nil
	}
	if err := dbx(r.db, dbc).WithContext(dbc.Ctx).
		Where("tenant_id = ? AND subject_id = ?", tenantID, subjectID).
		Order("skill_key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func dbx(db *gorm.DB, dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return db
}

// takeScoped loads one row matching cond within tenantID. It reports false with
// a nil error when no such row exists.
func takeScoped(q *gorm.DB, dest any, tenantID uuid.UUID, cond string, arg any) (bool, error) {
	if tenantID == uuid.Nil {
		return false, nil
	}
	if id, ok := arg.(uuid.UUID); ok && id == uuid.Nil {
		return false, nil
	}
	err := q.Where("tenant_id = ?", tenantID).Where(cond, arg).Limit(1).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
