package domain

import (
	"github.com/yungbote/neurobridge-mastery/internal/domain/learning/catalog"
	"github.com/yungbote/neurobridge-mastery/internal/domain/learning/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/domain/people"
)

type Difficulty = catalog.Difficulty

const (
	DifficultyEasy   = catalog.DifficultyEasy
	DifficultyMedium = catalog.DifficultyMedium
	DifficultyHard   = catalog.DifficultyHard
)

var ParseDifficulty = catalog.ParseDifficulty

type Outcome = mastery.Outcome

const (
	OutcomeCorrect   = mastery.OutcomeCorrect
	OutcomeIncorrect = mastery.OutcomeIncorrect
	OutcomePartial   = mastery.OutcomePartial
)

var ParseOutcome = mastery.ParseOutcome

const (
	AdjustmentKindOverride = mastery.AdjustmentKindOverride
	AdjustmentKindReset    = mastery.AdjustmentKindReset
)

type Student = people.Student

type Subject = catalog.Subject
type Skill = catalog.Skill
type SkillPrerequisite = catalog.SkillPrerequisite
type LearningModule = catalog.LearningModule
type LearningPath = catalog.LearningPath
type LearningPathItem = catalog.LearningPathItem

type SkillMastery = mastery.SkillMastery
type LearningInteraction = mastery.LearningInteraction
type MasteryAdjustment = mastery.MasteryAdjustment

// Models lists every table owned or read by the engine, in migration order.
func Models() []any {
	return []any{
		&Student{},
		&Subject{},
		&Skill{},
		&SkillPrerequisite{},
		&LearningModule{},
		&LearningPath{},
		&LearningPathItem{},
		&SkillMastery{},
		&LearningInteraction{},
		&MasteryAdjustment{},
	}
}
