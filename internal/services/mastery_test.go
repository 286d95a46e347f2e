package services

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repotest "github.com/yungbote/neurobridge-mastery/internal/data/repos/testutil"
	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
)

func TestRecordInteractionFirstCorrectAttempt(t *testing.T) {
	f := newFixture(t)
	f.skill(t, "fractions-add")
	svc := f.masteryService()

	res, err := svc.RecordInteraction(context.Background(), RecordInteractionRequest{
		TenantID:         f.tenant,
		StudentID:        f.student.ID,
		SubjectID:        f.subject.ID,
		SkillKey:         "fractions-add",
		Outcome:          "CORRECT",
		Score:            90,
		TimeTakenSeconds: 60,
	})
	require.NoError(t, err)
	assert.InDelta(t, 27.0, res.Mastery.MasteryLevel, 1e-9)
	assert.Equal(t, 1, res.Mastery.ConsecutiveCorrect)
	assert.Equal(t, 1, res.Mastery.InteractionCount)
	assert.Equal(t, 0.0, res.MasteryBefore)
	assert.True(t, res.Mastery.Unknown)
	assert.NotEqual(t, uuid.Nil, res.InteractionID)

	assert.Equal(t, []string{"mastery.updated"}, f.events.eventTypes())
	assert.Len(t, f.mirror.mastery, 1)
}

func TestRecordInteractionUsesSkillExpectedTime(t *testing.T) {
	f := newFixture(t)
	sk := f.skill(t, "mental-math")
	require.NoError(t, f.db.Model(sk).Update("expected_seconds", 20.0).Error)

	res, err := f.masteryService().RecordInteraction(context.Background(), RecordInteractionRequest{
		TenantID:         f.tenant,
		StudentID:        f.student.ID,
		SkillKey:         "mental-math",
		Outcome:          "CORRECT",
		Score:            90,
		TimeTakenSeconds: 40,
	})
	require.NoError(t, err)
	// Twice the expected time costs 10%: 90 * 0.9 = 81, and 0.3 * 81 = 24.3.
	assert.InDelta(t, 81.0, res.EffectiveScore, 1e-9)
	assert.InDelta(t, 24.3, res.Mastery.MasteryLevel, 1e-9)
	assert.Equal(t, f.subject.ID, res.Mastery.SubjectID)
}

func TestRecordInteractionUnknownReferences(t *testing.T) {
	f := newFixture(t)
	f.skill(t, "fractions-add")
	other := repotest.SeedSubject(t, f.db, f.tenant, "SCI")
	foreign := repotest.SeedStudent(t, f.db, uuid.New())
	svc := f.masteryService()

	base := RecordInteractionRequest{
		TenantID:  f.tenant,
		StudentID: f.student.ID,
		SubjectID: f.subject.ID,
		SkillKey:  "fractions-add",
		Outcome:   "CORRECT",
		Score:     50,
	}
	cases := map[string]func(r *RecordInteractionRequest){
		"unknown skill":          func(r *RecordInteractionRequest) { r.SkillKey = "missing" },
		"unknown student":        func(r *RecordInteractionRequest) { r.StudentID = uuid.New() },
		"student other tenant":   func(r *RecordInteractionRequest) { r.StudentID = foreign.ID },
		"unknown subject":        func(r *RecordInteractionRequest) { r.SubjectID = uuid.New() },
		"skill in other subject": func(r *RecordInteractionRequest) { r.SubjectID = other.ID },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := base
			mutate(&req)
			_, err := svc.RecordInteraction(context.Background(), req)
			assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)
		})
	}
	assert.Empty(t, f.events.eventTypes())
}

func TestRecordInteractionRejectsInvalidScore(t *testing.T) {
	f := newFixture(t)
	f.skill(t, "fractions-add")

	_, err := f.masteryService().RecordInteraction(context.Background(), RecordInteractionRequest{
		TenantID:  f.tenant,
		StudentID: f.student.ID,
		SkillKey:  "fractions-add",
		Outcome:   "CORRECT",
		Score:     140,
	})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "got %v", err)
	assert.Empty(t, f.events.eventTypes())
}

func TestAdjustMasteryKeepsSchedule(t *testing.T) {
	f := newFixture(t)
	f.skill(t, "fractions-add")
	svc := f.masteryService()
	ctx := context.Background()

	first, err := svc.RecordInteraction(ctx, RecordInteractionRequest{
		TenantID: f.tenant, StudentID: f.student.ID, SkillKey: "fractions-add", Outcome: "CORRECT", Score: 90,
	})
	require.NoError(t, err)

	actor := uuid.New()
	view, err := svc.AdjustMastery(ctx, AdjustMasteryRequest{
		TenantID:  f.tenant,
		StudentID: f.student.ID,
		SkillKey:  "fractions-add",
		NewLevel:  80,
		Reason:    "teacher review",
		ActorID:   &actor,
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, view.MasteryLevel)
	assert.Equal(t, first.Mastery.IntervalDays, view.IntervalDays)
	require.NotNil(t, view.NextReviewAt)
	assert.True(t, first.Mastery.NextReviewAt.Equal(*view.NextReviewAt))
	assert.Equal(t, []string{"mastery.updated", "mastery.adjusted"}, f.events.eventTypes())
}

func TestAdjustMasteryRejectsOutOfRange(t *testing.T) {
	f := newFixture(t)
	f.mastery(t, "fractions-add", 40, 3, nil)

	_, err := f.masteryService().AdjustMastery(context.Background(), AdjustMasteryRequest{
		TenantID:  f.tenant,
		StudentID: f.student.ID,
		SkillKey:  "fractions-add",
		NewLevel:  101,
		Reason:    "typo",
	})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "got %v", err)
	assert.Empty(t, f.events.eventTypes())
}

func TestResetSkillMasteryHidesRow(t *testing.T) {
	f := newFixture(t)
	f.mastery(t, "fractions-add", 64, 7, nil)
	svc := f.masteryService()
	ctx := context.Background()

	require.NoError(t, svc.ResetSkillMastery(ctx, ResetMasteryRequest{
		TenantID:  f.tenant,
		StudentID: f.student.ID,
		SkillKey:  "fractions-add",
	}))
	rows, err := svc.GetStudentMastery(ctx, f.tenant, f.student.ID, f.subject.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	gone, err := f.states.GetByKeyUnscoped(dbctx.Context{Ctx: ctx}, f.tenant, f.student.ID, "fractions-add")
	require.NoError(t, err)
	require.NotNil(t, gone)
	assert.Equal(t, 0.0, gone.MasteryLevel)
	assert.Equal(t, []string{"mastery.reset"}, f.events.eventTypes())

	err = svc.ResetSkillMastery(ctx, ResetMasteryRequest{TenantID: f.tenant, StudentID: f.student.ID, SkillKey: "never-seen"})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)
}

func TestGetStudentMasteryDerivesConfidence(t *testing.T) {
	f := newFixture(t)
	f.mastery(t, "a", 50, 5, nil)
	f.mastery(t, "b", 90, 1, nil)
	other := repotest.SeedSubject(t, f.db, f.tenant, "SCI")
	repotest.SeedMastery(t, f.db, f.tenant, f.student.ID, other.ID, "c", 10, 2, nil, nil)

	rows, err := f.masteryService().GetStudentMastery(context.Background(), f.tenant, f.student.ID, f.subject.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byKey := map[string]MasteryView{}
	for _, r := range rows {
		byKey[r.SkillKey] = r
	}
	assert.InDelta(t, 1-math.Exp(-1), byKey["a"].Confidence, 1e-9)
	assert.False(t, byKey["a"].Unknown)
	assert.True(t, byKey["b"].Unknown)

	_, err = f.masteryService().GetStudentMastery(context.Background(), uuid.New(), f.student.ID, f.subject.ID)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)
}

