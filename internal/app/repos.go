package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-mastery/internal/data/repos"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type Repos struct {
	Students      repos.StudentRepo
	Subjects      repos.SubjectRepo
	Skills        repos.SkillRepo
	Prerequisites repos.SkillPrerequisiteRepo
	Modules       repos.LearningModuleRepo
	Paths         repos.LearningPathRepo
	Mastery       repos.SkillMasteryRepo
	Interactions  repos.LearningInteractionRepo
	Adjustments   repos.MasteryAdjustmentRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Students:      repos.NewStudentRepo(db, log),
		Subjects:      repos.NewSubjectRepo(db, log),
		Skills:        repos.NewSkillRepo(db, log),
		Prerequisites: repos.NewSkillPrerequisiteRepo(db, log),
		Modules:       repos.NewLearningModuleRepo(db, log),
		Paths:         repos.NewLearningPathRepo(db, log),
		Mastery:       repos.NewSkillMasteryRepo(db, log),
		Interactions:  repos.NewLearningInteractionRepo(db, log),
		Adjustments:   repos.NewMasteryAdjustmentRepo(db, log),
	}
}
