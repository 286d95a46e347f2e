package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-mastery/internal/data/repos/catalog"
	"github.com/yungbote/neurobridge-mastery/internal/data/repos/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type StudentRepo = catalog.StudentRepo
type SubjectRepo = catalog.SubjectRepo
type SkillRepo = catalog.SkillRepo
type SkillPrerequisiteRepo = catalog.SkillPrerequisiteRepo
type LearningModuleRepo = catalog.LearningModuleRepo
type LearningPathRepo = catalog.LearningPathRepo

type SkillMasteryRepo = mastery.SkillMasteryRepo
type LearningInteractionRepo = mastery.LearningInteractionRepo
type MasteryAdjustmentRepo = mastery.MasteryAdjustmentRepo

func NewStudentRepo(db *gorm.DB, baseLog *logger.Logger) StudentRepo {
	return catalog.NewStudentRepo(db, baseLog)
}
func NewSubjectRepo(db *gorm.DB, baseLog *logger.Logger) SubjectRepo {
	return catalog.NewSubjectRepo(db, baseLog)
}
func NewSkillRepo(db *gorm.DB, baseLog *logger.Logger) SkillRepo {
	return catalog.NewSkillRepo(db, baseLog)
}
func NewSkillPrerequisiteRepo(db *gorm.DB, baseLog *logger.Logger) SkillPrerequisiteRepo {
	return catalog.NewSkillPrerequisiteRepo(db, baseLog)
}
func NewLearningModuleRepo(db *gorm.DB, baseLog *logger.Logger) LearningModuleRepo {
	return catalog.NewLearningModuleRepo(db, baseLog)
}
func NewLearningPathRepo(db *gorm.DB, baseLog *logger.Logger) LearningPathRepo {
	return catalog.NewLearningPathRepo(db, baseLog)
}

func NewSkillMasteryRepo(db *gorm.DB, baseLog *logger.Logger) SkillMasteryRepo {
	return mastery.NewSkillMasteryRepo(db, baseLog)
}
func NewLearningInteractionRepo(db *gorm.DB, baseLog *logger.Logger) LearningInteractionRepo {
	return mastery.NewLearningInteractionRepo(db, baseLog)
}
func NewMasteryAdjustmentRepo(db *gorm.DB, baseLog *logger.Logger) MasteryAdjustmentRepo {
	return mastery.NewMasteryAdjustmentRepo(db, baseLog)
}
