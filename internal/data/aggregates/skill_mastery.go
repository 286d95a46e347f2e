package aggregates

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/neurobridge-mastery/internal/data/repos"
	types "github.com/yungbote/neurobridge-mastery/internal/domain"
	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/learning/masterymodel"
	"github.com/yungbote/neurobridge-mastery/internal/learning/srs"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
)

type SkillMasteryAggregateDeps struct {
	Base BaseDeps

	States       repos.SkillMasteryRepo
	Interactions repos.LearningInteractionRepo
	Adjustments  repos.MasteryAdjustmentRepo

	Model    masterymodel.Params
	Schedule srs.Params
	Decay    masterymodel.DecayParams
	Retry    RetryPolicy
}

type skillMasteryAggregate struct {
	deps  SkillMasteryAggregateDeps
	guard rowGuard
}

func NewSkillMasteryAggregate(deps SkillMasteryAggregateDeps) domainagg.SkillMasteryAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Model.BaseAlpha == 0 {
		deps.Model = masterymodel.DefaultParams()
	}
	if deps.Schedule.InitialEase == 0 {
		deps.Schedule = srs.DefaultParams()
	}
	if deps.Decay.Factor == 0 {
		deps.Decay = masterymodel.DefaultDecayParams()
	}
	deps.Retry = deps.Retry.withDefaults()
	return &skillMasteryAggregate{deps: deps, guard: rowGuard{db: deps.Base.DB}}
}

func (a *skillMasteryAggregate) Contract() domainagg.Contract {
	return domainagg.SkillMasteryAggregateContract
}

func (a *skillMasteryAggregate) configured() bool {
	return a.deps.States != nil && a.deps.Interactions != nil && a.deps.Adjustments != nil
}

// write runs fn as op and reports the number of attempts. Ops that retry
// conflicts go through retryWrite; the rest get one attempt.
func (a *skillMasteryAggregate) write(ctx context.Context, op domainagg.Op, fn func(dbc dbctx.Context) error) (int, error) {
	if !op.Retried() {
		return 1, executeWrite(ctx, a.deps.Base, op, fn)
	}
	return retryWrite(ctx, a.deps.Retry, a.deps.Base.Hooks, op, func(int) error {
		return executeWrite(ctx, a.deps.Base, op, fn)
	})
}

// checkLevel rejects a stored level outside [0,100]. Writes through this
// aggregate never produce one, so the row was edited out of band.
func checkLevel(op domainagg.Op, level float64) error {
	if masterymodel.Valid(level) {
		return nil
	}
	return domainagg.NewError(domainagg.CodeInvariantViolation, string(op), fmt.Sprintf("stored mastery level %v outside [0,100]", level), nil)
}

func (a *skillMasteryAggregate) RecordInteraction(ctx context.Context, in domainagg.RecordInteractionInput) (domainagg.RecordInteractionResult, error) {
	const op = domainagg.OpRecordInteraction
	var out domainagg.RecordInteractionResult

	skillKey := strings.TrimSpace(in.SkillKey)
	if in.TenantID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, string(op), "missing tenant_id", nil)
	}
	if in.StudentID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, string(op), "missing student_id", nil)
	}
	if in.SubjectID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, string(op), "missing subject_id", nil)
	}
	if skillKey == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, string(op), "missing skill_key", nil)
	}
	outcome, ok := types.ParseOutcome(in.Outcome)
	if !ok {
		return out, domainagg.NewError(domainagg.CodeValidation, string(op), fmt.Sprintf("unknown outcome %q", in.Outcome), nil)
	}
	if !masterymodel.Valid(in.Score) {
		return out, domainagg.NewError(domainagg.CodeValidation, string(op), "score must be within [0,100]", nil)
	}
	if math.IsNaN(in.TimeTakenSeconds) || math.IsInf(in.TimeTakenSeconds, 0) || in.TimeTakenSeconds < 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, string(op), "time_taken_seconds must be a non-negative number", nil)
	}
	if in.HintsUsed < 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, string(op), "hints_used must be >= 0", nil)
	}
	difficulty, ok := types.ParseDifficulty(in.Difficulty)
	if !ok {
		return out, domainagg.NewError(domainagg.CodeValidation, string(op), fmt.Sprintf("unknown difficulty %q", in.Difficulty), nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, string(op), "skill mastery aggregate repos not configured", nil)
	}

	expected := in.ExpectedSeconds
	if expected <= 0 || math.IsNaN(expected) || math.IsInf(expected, 0) {
		expected = a.deps.Model.ExpectedSeconds(difficulty)
	}
	attemptedAt := in.AttemptedAt.UTC()
	if in.AttemptedAt.IsZero() {
		attemptedAt = time.Now().UTC()
	}
	var metaJSON datatypes.JSON
	if len(in.Metadata) > 0 {
		b, err := json.Marshal(in.Metadata)
		if err != nil {
			return out, domainagg.NewError(domainagg.CodeValidation, string(op), "metadata is not JSON encodable", err)
		}
		metaJSON = datatypes.JSON(b)
	}
	obs := masterymodel.Observation{
		Outcome:          outcome,
		Score:            in.Score,
		TimeTakenSeconds: in.TimeTakenSeconds,
		HintsUsed:        in.HintsUsed,
		ExpectedSeconds:  expected,
		At:               attemptedAt,
	}

	attempts, err := a.write(ctx, op, func(dbc dbctx.Context) error {
		out = domainagg.RecordInteractionResult{}
		row, err := a.deps.States.GetByKeyUnscoped(dbc, in.TenantID, in.StudentID, skillKey)
		if err != nil {
			return err
		}

		var state masterymodel.State
		sched := srs.State{EaseFactor: a.deps.Schedule.InitialEase}
		switch {
		case row == nil:
			out.Created = true
		case row.DeletedAt.Valid:
			out.Revived = true
		default:
			state = masterymodel.State{
				Level:                row.MasteryLevel,
				ConsecutiveCorrect:   row.ConsecutiveCorrect,
				ConsecutiveIncorrect: row.ConsecutiveIncorrect,
				Count:                row.InteractionCount,
				LastPracticedAt:      row.LastPracticedAt,
			}
			sched = srs.State{
				EaseFactor:   row.EaseFactor,
				IntervalDays: row.IntervalDays,
				Repetitions:  row.Repetitions,
			}
		}

		if err := checkLevel(op, state.Level); err != nil {
			return err
		}
		upd := masterymodel.Apply(a.deps.Model, state, obs)
		next := srs.Schedule(a.deps.Schedule, sched, upd.Quality, attemptedAt)
		nextReview := next.NextReviewAt

		out.MasteryBefore = masterymodel.Clamp(state.Level)
		out.MasteryAfter = upd.Level
		out.EffectiveScore = upd.EffectiveScore
		out.Alpha = upd.Alpha
		out.Quality = upd.Quality
		out.AppliedAt = attemptedAt

		if row == nil {
			row = &types.SkillMastery{
				TenantID:             in.TenantID,
				StudentID:            in.StudentID,
				SkillKey:             skillKey,
				SubjectID:            in.SubjectID,
				MasteryLevel:         upd.Level,
				VelocityScore:        upd.Velocity,
				ConsecutiveCorrect:   upd.ConsecutiveCorrect,
				ConsecutiveIncorrect: upd.ConsecutiveIncorrect,
				InteractionCount:     upd.Count,
				LastPracticedAt:      &attemptedAt,
				LastDifficulty:       string(difficulty),
				EaseFactor:           next.EaseFactor,
				IntervalDays:         next.IntervalDays,
				Repetitions:          next.Repetitions,
				NextReviewAt:         &nextReview,
				Version:              1,
			}
			if err := a.deps.States.Create(dbc, row); err != nil {
				return err
			}
		} else {
			// A late attempt must not rewind the practice clock or drop decay
			// already applied past it. A revived row starts over.
			practiced := attemptedAt
			var decayedThrough *time.Time
			if !out.Revived {
				if row.LastPracticedAt != nil && row.LastPracticedAt.After(practiced) {
					practiced = row.LastPracticedAt.UTC()
				}
				if row.DecayedThrough != nil && !attemptedAt.After(*row.DecayedThrough) {
					decayedThrough = row.DecayedThrough
				}
			}
			err := a.guard.update(dbc, row.ID, row.Version, map[string]any{
				"subject_id":            in.SubjectID,
				"mastery_level":         upd.Level,
				"velocity_score":        upd.Velocity,
				"consecutive_correct":   upd.ConsecutiveCorrect,
				"consecutive_incorrect": upd.ConsecutiveIncorrect,
				"interaction_count":     upd.Count,
				"last_practiced_at":     practiced,
				"last_difficulty":       string(difficulty),
				"ease_factor":           next.EaseFactor,
				"interval_days":         next.IntervalDays,
				"repetitions":           next.Repetitions,
				"next_review_at":        nextReview,
				"decayed_through":       decayedThrough,
				"deleted_at":            nil,
			})
			if err != nil {
				return err
			}
		}

		interaction := &types.LearningInteraction{
			TenantID:         in.TenantID,
			StudentID:        in.StudentID,
			SkillKey:         skillKey,
			SubjectID:        in.SubjectID,
			ModuleID:         in.ModuleID,
			Outcome:          outcome,
			Score:            in.Score,
			TimeTakenSeconds: in.TimeTakenSeconds,
			HintsUsed:        in.HintsUsed,
			Difficulty:       string(difficulty),
			EffectiveScore:   upd.EffectiveScore,
			Quality:          upd.Quality,
			MasteryBefore:    out.MasteryBefore,
			MasteryAfter:     upd.Level,
			Metadata:         metaJSON,
			AttemptedAt:      attemptedAt,
		}
		if err := a.deps.Interactions.Create(dbc, interaction); err != nil {
			return err
		}
		out.SkillMasteryID = row.ID
		out.InteractionID = interaction.ID
		return nil
	})
	out.Attempts = attempts
	return out, err
}

func (a *skillMasteryAggregate) AdjustMastery(ctx context.Context, in domainagg.AdjustMasteryInput) (domainagg.AdjustMasteryResult, error) {
	const op = domainagg.OpAdjustMastery
	var out domainagg.AdjustMasteryResult

	skillKey := strings.TrimSpace(in.SkillKey)
	reason := strings.TrimSpace(in.Reason)
	if in.TenantID == uuid.Nil || in.StudentID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, string(op), "missing tenant_id or student_id", nil)
	}
	if skillKey == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, string(op), "missing skill_key", nil)
	}
	if !masterymodel.Valid(in.NewLevel) {
		return out, domainagg.NewError(domainagg.CodeValidation, string(op), "new level must be within [0,100]", nil)
	}
	if reason == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, string(op), "reason is required", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, string(op), "skill mastery aggregate repos not configured", nil)
	}

	_, err := a.write(ctx, op, func(dbc dbctx.Context) error {
		out = domainagg.AdjustMasteryResult{}
		row, err := a.deps.States.GetByKey(dbc, in.TenantID, in.StudentID, skillKey)
		if err != nil {
			return err
		}
		if row == nil {
			return domainagg.NewError(domainagg.CodeNotFound, string(op), fmt.Sprintf("no mastery for skill %q", skillKey), nil)
		}
		now := time.Now().UTC()
		if err := a.guard.update(dbc, row.ID, row.Version, map[string]any{
			"mastery_level": in.NewLevel,
			"updated_at":    now,
		}); err != nil {
			return err
		}
		adj := &types.MasteryAdjustment{
			TenantID:      in.TenantID,
			StudentID:     in.StudentID,
			SkillKey:      skillKey,
			Kind:          types.AdjustmentKindOverride,
			PreviousLevel: row.MasteryLevel,
			NewLevel:      in.NewLevel,
			Reason:        reason,
			ActorID:       in.ActorID,
		}
		if err := a.deps.Adjustments.Create(dbc, adj); err != nil {
			return err
		}
		out = domainagg.AdjustMasteryResult{
			SkillMasteryID: row.ID,
			AdjustmentID:   adj.ID,
			PreviousLevel:  row.MasteryLevel,
			NewLevel:       in.NewLevel,
			AppliedAt:      now,
		}
		return nil
	})
	return out, err
}

func (a *skillMasteryAggregate) Reset(ctx context.Context, in domainagg.ResetMasteryInput) (domainagg.ResetMasteryResult, error) {
	const op = domainagg.OpResetMastery
	var out domainagg.ResetMasteryResult

	skillKey := strings.TrimSpace(in.SkillKey)
	if in.TenantID == uuid.Nil || in.StudentID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, string(op), "missing tenant_id or student_id", nil)
	}
	if skillKey == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, string(op), "missing skill_key", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, string(op), "skill mastery aggregate repos not configured", nil)
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = "reset"
	}

	_, err := a.write(ctx, op, func(dbc dbctx.Context) error {
		out = domainagg.ResetMasteryResult{}
		row, err := a.deps.States.GetByKey(dbc, in.TenantID, in.StudentID, skillKey)
		if err != nil {
			return err
		}
		if row == nil {
			return domainagg.NewError(domainagg.CodeNotFound, string(op), fmt.Sprintf("no mastery for skill %q", skillKey), nil)
		}
		now := time.Now().UTC()
		if err := a.guard.update(dbc, row.ID, row.Version, map[string]any{
			"mastery_level":         0.0,
			"velocity_score":        0.0,
			"consecutive_correct":   0,
			"consecutive_incorrect": 0,
			"interaction_count":     0,
			"last_practiced_at":     nil,
			"ease_factor":           a.deps.Schedule.InitialEase,
			"interval_days":         0,
			"repetitions":           0,
			"next_review_at":        nil,
			"decayed_through":       nil,
			"updated_at":            now,
			"deleted_at":            now,
		}); err != nil {
			return err
		}
		adj := &types.MasteryAdjustment{
			TenantID:      in.TenantID,
			StudentID:     in.StudentID,
			SkillKey:      skillKey,
			Kind:          types.AdjustmentKindReset,
			PreviousLevel: row.MasteryLevel,
			NewLevel:      0,
			Reason:        reason,
			ActorID:       in.ActorID,
		}
		if err := a.deps.Adjustments.Create(dbc, adj); err != nil {
			return err
		}
		out = domainagg.ResetMasteryResult{
			SkillMasteryID: row.ID,
			AdjustmentID:   adj.ID,
			PreviousLevel:  row.MasteryLevel,
			AppliedAt:      now,
		}
		return nil
	})
	return out, err
}

func (a *skillMasteryAggregate) ApplyDecay(ctx context.Context, in domainagg.ApplyDecayInput) (domainagg.ApplyDecayResult, error) {
	const op = domainagg.OpApplyDecay
	var out domainagg.ApplyDecayResult

	if in.SkillMasteryID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, string(op), "missing skill_mastery_id", nil)
	}
	if in.ExpectedVersion < 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, string(op), "expected version must be >= 0", nil)
	}
	if a.deps.States == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, string(op), "skill mastery repo not configured", nil)
	}
	now := in.Now.UTC()
	if in.Now.IsZero() {
		now = time.Now().UTC()
	}

	_, err := a.write(ctx, op, func(dbc dbctx.Context) error {
		out = domainagg.ApplyDecayResult{}
		row, err := a.deps.States.GetByID(dbc, in.SkillMasteryID)
		if err != nil {
			return err
		}
		if row == nil {
			return domainagg.NewError(domainagg.CodeNotFound, string(op), "skill mastery not found", nil)
		}
		if err := requireVersion(row.Version, in.ExpectedVersion); err != nil {
			return err
		}
		if err := checkLevel(op, row.MasteryLevel); err != nil {
			return err
		}
		out.LevelBefore = row.MasteryLevel
		out.LevelAfter = row.MasteryLevel
		out.DecayedThrough = row.DecayedThrough
		if row.LastPracticedAt == nil {
			return nil
		}

		practiced := *row.LastPracticedAt
		res := masterymodel.Decay(a.deps.Decay, row.MasteryLevel, practiced, row.DecayedThrough, now)
		if !res.Applied {
			return nil
		}
		through := res.Through.UTC()
		if err := a.guard.updateIdle(dbc, row.ID, row.Version, practiced, map[string]any{
			"mastery_level":   res.Level,
			"decayed_through": through,
			"updated_at":      now,
		}); err != nil {
			return err
		}
		out.Applied = true
		out.Days = res.Days
		out.LevelAfter = res.Level
		out.DecayedThrough = &through
		return nil
	})
	return out, err
}
