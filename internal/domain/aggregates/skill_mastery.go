package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var SkillMasteryAggregateContract = Contract{
	Name:  "Learning.SkillMasteryAggregate",
	Table: "skill_mastery",
	Ops:   []Op{OpRecordInteraction, OpAdjustMastery, OpResetMastery, OpApplyDecay},
	Notes: "Owns every write to a (tenant, student, skill) mastery row. Writes are version-guarded; " +
		"interaction log and audit rows commit in the same transaction as the state change.",
}

// SkillMasteryAggregate owns skill mastery invariant writes.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeInvariantViolation,
// CodeRetryable, CodeInternal.
type SkillMasteryAggregate interface {
	Aggregate

	// RecordInteraction appends an interaction and folds it into the mastery estimate
	// and review schedule. Version conflicts are retried with backoff.
	RecordInteraction(ctx context.Context, in RecordInteractionInput) (RecordInteractionResult, error)

	// AdjustMastery overwrites the mastery level and writes an audit row. The practice
	// clock, decay marker and review schedule are left untouched.
	AdjustMastery(ctx context.Context, in AdjustMasteryInput) (AdjustMasteryResult, error)

	// Reset zeroes and soft-deletes the row.
	Reset(ctx context.Context, in ResetMasteryInput) (ResetMasteryResult, error)

	// ApplyDecay attenuates one row when it is still at ExpectedVersion.
	// A concurrent write surfaces as CodeConflict without retry.
	ApplyDecay(ctx context.Context, in ApplyDecayInput) (ApplyDecayResult, error)
}

type RecordInteractionInput struct {
	TenantID  uuid.UUID
	StudentID uuid.UUID
	SubjectID uuid.UUID
	ModuleID  *uuid.UUID
	SkillKey  string

	Outcome          string
	Score            float64
	TimeTakenSeconds float64
	HintsUsed        int
	Difficulty       string
	// ExpectedSeconds is the time baseline for the attempt; zero selects the
	// difficulty default.
	ExpectedSeconds float64
	AttemptedAt     time.Time
	Metadata        map[string]any
}

type RecordInteractionResult struct {
	SkillMasteryID uuid.UUID
	InteractionID  uuid.UUID
	Created        bool
	Revived        bool
	MasteryBefore  float64
	MasteryAfter   float64
	EffectiveScore float64
	Alpha          float64
	Quality        int
	Attempts       int
	AppliedAt      time.Time
}

type AdjustMasteryInput struct {
	TenantID  uuid.UUID
	StudentID uuid.UUID
	SkillKey  string
	NewLevel  float64
	Reason    string
	ActorID   *uuid.UUID
}

type AdjustMasteryResult struct {
	SkillMasteryID uuid.UUID
	AdjustmentID   uuid.UUID
	PreviousLevel  float64
	NewLevel       float64
	AppliedAt      time.Time
}

type ResetMasteryInput struct {
	TenantID  uuid.UUID
	StudentID uuid.UUID
	SkillKey  string
	Reason    string
	ActorID   *uuid.UUID
}

type ResetMasteryResult struct {
	SkillMasteryID uuid.UUID
	AdjustmentID   uuid.UUID
	PreviousLevel  float64
	AppliedAt      time.Time
}

type ApplyDecayInput struct {
	SkillMasteryID  uuid.UUID
	ExpectedVersion int
	Now             time.Time
}

type ApplyDecayResult struct {
	Applied        bool
	Days           int
	LevelBefore    float64
	LevelAfter     float64
	DecayedThrough *time.Time
}
