package mastery

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-mastery/internal/domain"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

// SkillMasteryRepo is read-side access to skill_mastery. Writes go through the
// skill mastery aggregate.
type SkillMasteryRepo interface {
	Create(dbc dbctx.Context, row *types.SkillMastery) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SkillMastery, error)
	GetByKey(dbc dbctx.Context, tenantID, studentID uuid.UUID, skillKey string) (*types.SkillMastery, error)
	// GetByKeyUnscoped also returns a soft-deleted row so it can be revived.
	GetByKeyUnscoped(dbc dbctx.Context, tenantID, studentID uuid.UUID, skillKey string) (*types.SkillMastery, error)
	ListByStudent(dbc dbctx.Context, tenantID, studentID uuid.UUID) ([]*types.SkillMastery, error)
	ListByStudentSubject(dbc dbctx.Context, tenantID, studentID, subjectID uuid.UUID) ([]*types.SkillMastery, error)
	ListByStudentSkills(dbc dbctx.Context, tenantID, studentID uuid.UUID, skillKeys []string) ([]*types.SkillMastery, error)
	ListDue(dbc dbctx.Context, tenantID, studentID uuid.UUID, asOf time.Time) ([]*types.SkillMastery, error)
	AverageBySkill(dbc dbctx.Context, tenantID, subjectID uuid.UUID) (map[string]float64, error)
	// ListDecayCandidates pages rows last practiced before cutoff, keyed on id.
	ListDecayCandidates(dbc dbctx.Context, cutoff time.Time, afterID uuid.UUID, limit int) ([]*types.SkillMastery, error)
}

type skillMasteryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSkillMasteryRepo(db *gorm.DB, baseLog *logger.Logger) SkillMasteryRepo {
	return &skillMasteryRepo{db: db, log: baseLog.With("repo", "SkillMasteryRepo")}
}

func (r *skillMasteryRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *skillMasteryRepo) Create(dbc dbctx.Context, row *types.SkillMastery) error {
	if row == nil {
		return nil
	}
	return r.dbx(dbc).WithContext(dbc.Ctx).Create(row).Error
}

func (r *skillMasteryRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SkillMastery, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.SkillMastery
	err := r.dbx(dbc).WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *skillMasteryRepo) GetByKey(dbc dbctx.Context, tenantID, studentID uuid.UUID, skillKey string) (*types.SkillMastery, error) {
	return r.getByKey(r.dbx(dbc).WithContext(dbc.Ctx), tenantID, studentID, skillKey)
}

func (r *skillMasteryRepo) GetByKeyUnscoped(dbc dbctx.Context, tenantID, studentID uuid.UUID, skillKey string) (*types.SkillMastery, error) {
	return r.getByKey(r.dbx(dbc).WithContext(dbc.Ctx).Unscoped(), tenantID, studentID, skillKey)
}

func (r *skillMasteryRepo) getByKey(q *gorm.DB, tenantID, studentID uuid.UUID, skillKey string) (*types.SkillMastery, error) {
	skillKey = strings.TrimSpace(skillKey)
	if tenantID == uuid.Nil || studentID == uuid.Nil || skillKey == "" {
		return nil, nil
	}
	var row types.SkillMastery
	err := q.Where("tenant_id = ? AND student_id = ? AND skill_key = ?", tenantID, studentID, skillKey).
		Limit(1).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *skillMasteryRepo) ListByStudent(dbc dbctx.Context, tenantID, studentID uuid.UUID) ([]*types.SkillMastery, error) {
	out := []*types.SkillMastery{}
	if tenantID == uuid.Nil || studentID == uuid.Nil {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("tenant_id = ? AND student_id = ?", tenantID, studentID).
		Order("skill_key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *skillMasteryRepo) ListByStudentSubject(dbc dbctx.Context, tenantID, studentID, subjectID uuid.UUID) ([]*types.SkillMastery, error) {
	out := []*types.SkillMastery{}
	if tenantID == uuid.Nil || studentID == uuid.Nil || subjectID == uuid.Nil {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("tenant_id = ? AND student_id = ? AND subject_id = ?", tenantID, studentID, subjectID).
		Order("skill_key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *skillMasteryRepo) ListByStudentSkills(dbc dbctx.Context, tenantID, studentID uuid.UUID, skillKeys []string) ([]*types.SkillMastery, error) {
	out := []*types.SkillMastery{}
	if tenantID == uuid.Nil || studentID == uuid.Nil || len(skillKeys) == 0 {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("tenant_id = ? AND student_id = ? AND skill_key IN ?", tenantID, studentID, skillKeys).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *skillMasteryRepo) ListDue(dbc dbctx.Context, tenantID, studentID uuid.UUID, asOf time.Time) ([]*types.SkillMastery, error) {
	out := []*types.SkillMastery{}
	if tenantID == uuid.Nil || studentID == uuid.Nil {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("tenant_id = ? AND student_id = ? AND next_review_at IS NOT NULL AND next_review_at <= ?", tenantID, studentID, asOf.UTC()).
		Order("next_review_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *skillMasteryRepo) AverageBySkill(dbc dbctx.Context, tenantID, subjectID uuid.UUID) (map[string]float64, error) {
	out := map[string]float64{}
	if tenantID == uuid.Nil || subjectID == uuid.Nil {
		return out, nil
	}
	var rows []struct {
		SkillKey string
		Avg      float64
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.SkillMastery{}).
		Select("skill_key, AVG(mastery_level) AS avg").
		Where("tenant_id = ? AND subject_id = ?", tenantID, subjectID).
		Group("skill_key").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.SkillKey] = row.Avg
	}
	return out, nil
}

func (r *skillMasteryRepo) ListDecayCandidates(dbc dbctx.Context, cutoff time.Time, afterID uuid.UUID, limit int) ([]*types.SkillMastery, error) {
	out := []*types.SkillMastery{}
	if limit <= 0 {
		limit = 500
	}
	q := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("last_practiced_at IS NOT NULL AND last_practiced_at < ?", cutoff.UTC())
	if afterID != uuid.Nil {
		q = q.Where("id > ?", afterID)
	}
	if err := q.Order("id ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
