package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repotest "github.com/yungbote/neurobridge-mastery/internal/data/repos/testutil"
	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
)

const day = 24 * time.Hour

func TestGetNextModulePrefersMostOverdueReview(t *testing.T) {
	f := newFixture(t)
	f.mastery(t, "k1", 80, 6, ago(f.now, 2*day))
	f.mastery(t, "k2", 75, 6, ago(f.now, 5*day))
	f.mastery(t, "k3", 75, 6, ago(f.now, -day))
	other := repotest.SeedSubject(t, f.db, f.tenant, "SCI")
	repotest.SeedMastery(t, f.db, f.tenant, f.student.ID, other.ID, "elsewhere", 50, 6, nil, ago(f.now, 10*day))
	mod := repotest.SeedModule(t, f.db, f.tenant, f.subject.ID, "fractions", "k2")
	repotest.SeedPath(t, f.db, f.tenant, f.subject.ID, nil, mod)

	rec, err := f.recommendationService().GetNextModule(context.Background(), f.tenant, f.student.ID, f.subject.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, RecommendationReview, rec.Kind)
	assert.Equal(t, "k2", rec.SkillKey)
	assert.InDelta(t, (5 * day).Seconds(), rec.OverdueSeconds, 1)
	require.NotNil(t, rec.Module)
	assert.Equal(t, mod.ID, rec.Module.ID)
}

func TestGetNextModuleWalksToLeafBlocker(t *testing.T) {
	f := newFixture(t)
	f.edge(t, "calc", "alg2", 1, true)
	f.edge(t, "alg2", "alg1", 1, true)
	f.edge(t, "calc", "trig", 1, false)
	mod := repotest.SeedModule(t, f.db, f.tenant, f.subject.ID, "calculus", "calc")
	repotest.SeedPath(t, f.db, f.tenant, f.subject.ID, nil, mod)

	rec, err := f.recommendationService().GetNextModule(context.Background(), f.tenant, f.student.ID, f.subject.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, RecommendationRemedial, rec.Kind)
	assert.Equal(t, "alg1", rec.SkillKey)
	assert.Equal(t, "calc", rec.BlockedSkill)
	require.Len(t, rec.Blocking, 1)
	assert.Equal(t, "alg2", rec.Blocking[0].SkillKey)
	assert.Nil(t, rec.Module)
}

func TestGetNextModuleFollowsPathOrder(t *testing.T) {
	f := newFixture(t)
	f.mastery(t, "k1", 85, 8, ago(f.now, -3*day))
	m1 := repotest.SeedModule(t, f.db, f.tenant, f.subject.ID, "one", "k1")
	m2 := repotest.SeedModule(t, f.db, f.tenant, f.subject.ID, "two", "k2")
	m3 := repotest.SeedModule(t, f.db, f.tenant, f.subject.ID, "three", "k3")
	repotest.SeedPath(t, f.db, f.tenant, f.subject.ID, nil, m1, m2, m3)

	rec, err := f.recommendationService().GetNextModule(context.Background(), f.tenant, f.student.ID, f.subject.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, RecommendationNextModule, rec.Kind)
	assert.Equal(t, m2.ID, rec.Module.ID)
	assert.Equal(t, "k2", rec.SkillKey)
}

func TestGetNextModuleNothingToDo(t *testing.T) {
	f := newFixture(t)
	f.mastery(t, "k1", 95, 12, ago(f.now, -10*day))
	m1 := repotest.SeedModule(t, f.db, f.tenant, f.subject.ID, "one", "k1")
	repotest.SeedPath(t, f.db, f.tenant, f.subject.ID, nil, m1)
	svc := f.recommendationService()

	rec, err := svc.GetNextModule(context.Background(), f.tenant, f.student.ID, f.subject.ID)
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = svc.GetNextModule(context.Background(), f.tenant, f.student.ID, uuid.New())
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)
}

func TestGetReviewQueueOrdering(t *testing.T) {
	f := newFixture(t)
	f.mastery(t, "a", 60, 4, ago(f.now, 3*day))
	f.mastery(t, "b", 60, 4, ago(f.now, 3*day))
	f.mastery(t, "c", 60, 4, ago(f.now, day))
	f.mastery(t, "d", 60, 4, ago(f.now, -day))
	f.edge(t, "x", "a", 0.2, true)
	f.edge(t, "y", "b", 0.9, false)

	queue, err := f.recommendationService().GetReviewQueue(context.Background(), f.tenant, f.student.ID)
	require.NoError(t, err)
	keys := make([]string, 0, len(queue))
	for _, it := range queue {
		keys = append(keys, it.SkillKey)
	}
	assert.Equal(t, []string{"b", "a", "c"}, keys)
	assert.Equal(t, 0.9, queue[0].PrerequisiteWeight)
}

func TestGetDiagnosticAssessment(t *testing.T) {
	f := newFixture(t)
	for _, k := range []string{"s-new", "s-near", "s-far", "s-shaky"} {
		f.skill(t, k)
	}
	f.mastery(t, "s-near", 65, 10, nil)
	f.mastery(t, "s-far", 95, 10, nil)
	f.mastery(t, "s-shaky", 90, 1, nil)

	items, err := f.recommendationService().GetDiagnosticAssessment(context.Background(), f.tenant, f.student.ID, f.subject.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "s-new", items[0].SkillKey)
	assert.Equal(t, DiagnosticLowConfidence, items[0].Reason)
	assert.Equal(t, "s-shaky", items[1].SkillKey)
	assert.Equal(t, DiagnosticLowConfidence, items[1].Reason)
	assert.Equal(t, "s-near", items[2].SkillKey)
	assert.Equal(t, DiagnosticNearThreshold, items[2].Reason)
}

func TestCanAccessModule(t *testing.T) {
	f := newFixture(t)
	f.skill(t, "algebra-2")
	f.edge(t, "algebra-2", "algebra-1", 1, true)
	row := f.mastery(t, "algebra-1", 55, 6, nil)
	mod := repotest.SeedModule(t, f.db, f.tenant, f.subject.ID, "algebra II", "algebra-2")
	svc := f.recommendationService()
	ctx := context.Background()

	acc, err := svc.CanAccessModule(ctx, f.tenant, f.student.ID, mod.ID)
	require.NoError(t, err)
	assert.False(t, acc.Accessible)
	require.Len(t, acc.Blocking["algebra-2"], 1)
	assert.Equal(t, "algebra-1", acc.Blocking["algebra-2"][0].SkillKey)

	require.NoError(t, f.db.Model(row).Update("mastery_level", 71.0).Error)
	acc, err = svc.CanAccessModule(ctx, f.tenant, f.student.ID, mod.ID)
	require.NoError(t, err)
	assert.True(t, acc.Accessible)
	assert.Empty(t, acc.Blocking)

	_, err = svc.CanAccessModule(ctx, f.tenant, f.student.ID, uuid.New())
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)
}

func TestCanAccessModuleUnknownSkill(t *testing.T) {
	f := newFixture(t)
	f.skill(t, "geometry-1")
	mod := repotest.SeedModule(t, f.db, f.tenant, f.subject.ID, "geometry", "geometry-1", "geometry-ghost")

	_, err := f.recommendationService().CanAccessModule(context.Background(), f.tenant, f.student.ID, mod.ID)
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)
}
