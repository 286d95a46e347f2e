package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repotest "github.com/yungbote/neurobridge-mastery/internal/data/repos/testutil"
	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
)

func TestCheckPrerequisitesBlocksOnStrictEdgeBelowThreshold(t *testing.T) {
	f := newFixture(t)
	for _, k := range []string{"algebra-1", "algebra-2", "arithmetic"} {
		f.skill(t, k)
	}
	f.edge(t, "algebra-2", "algebra-1", 1, true)
	f.edge(t, "algebra-2", "arithmetic", 0.5, false)
	row := f.mastery(t, "algebra-1", 55, 6, nil)
	svc := f.prerequisiteService()
	ctx := context.Background()

	ok, err := svc.CheckPrerequisites(ctx, f.tenant, f.student.ID, "algebra-2")
	require.NoError(t, err)
	assert.False(t, ok)

	blocking, err := svc.GetBlockingSkills(ctx, f.tenant, f.student.ID, "algebra-2")
	require.NoError(t, err)
	require.Len(t, blocking, 1)
	assert.Equal(t, "algebra-1", blocking[0].SkillKey)
	assert.Equal(t, 55.0, blocking[0].MasteryLevel)
	assert.Equal(t, 70.0, blocking[0].Threshold)

	status, err := svc.GetPrerequisiteStatus(ctx, f.tenant, f.student.ID, "algebra-2")
	require.NoError(t, err)
	assert.InDelta(t, (55.0/70.0)/1.5, status.Readiness, 1e-9)

	// The threshold is inclusive and the non-strict edge never blocks.
	require.NoError(t, f.db.Model(row).Update("mastery_level", 70.0).Error)
	ok, err = svc.CheckPrerequisites(ctx, f.tenant, f.student.ID, "algebra-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckPrerequisitesNoEdgesIsUnlocked(t *testing.T) {
	f := newFixture(t)
	f.skill(t, "counting")

	status, err := f.prerequisiteService().GetPrerequisiteStatus(context.Background(), f.tenant, f.student.ID, "counting")
	require.NoError(t, err)
	assert.True(t, status.Unlocked)
	assert.Equal(t, 1.0, status.Readiness)
	assert.Empty(t, status.Blocking)
}

func TestCheckPrerequisitesUnknownReferences(t *testing.T) {
	f := newFixture(t)
	f.skill(t, "algebra-1")
	svc := f.prerequisiteService()
	ctx := context.Background()

	_, err := svc.CheckPrerequisites(ctx, f.tenant, f.student.ID, "missing")
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)

	_, err = svc.CheckPrerequisites(ctx, uuid.New(), f.student.ID, "algebra-1")
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)

	_, err = svc.CheckPrerequisites(ctx, f.tenant, uuid.Nil, "algebra-1")
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "got %v", err)
}

func TestGetPrerequisiteChainIsTransitive(t *testing.T) {
	f := newFixture(t)
	for _, k := range []string{"a", "b", "c"} {
		f.skill(t, k)
	}
	f.edge(t, "a", "b", 1, true)
	f.edge(t, "b", "c", 1, false)

	chain, err := f.prerequisiteService().GetPrerequisiteChain(context.Background(), f.tenant, f.subject.ID, "a")
	require.NoError(t, err)
	require.Len(t, chain.Skills, 2)
	assert.Equal(t, "b", chain.Skills[0].SkillKey)
	assert.Equal(t, 1, chain.Skills[0].Depth)
	assert.True(t, chain.Skills[0].Strict)
	assert.Equal(t, "c", chain.Skills[1].SkillKey)
	assert.Equal(t, 2, chain.Skills[1].Depth)
	assert.False(t, chain.Skills[1].Strict)
	assert.Empty(t, chain.Cycles)
}

func TestGetPrerequisiteChainReportsCycleWithoutLooping(t *testing.T) {
	f := newFixture(t)
	for _, k := range []string{"x", "y"} {
		f.skill(t, k)
	}
	f.edge(t, "x", "y", 1, true)
	f.edge(t, "y", "x", 1, true)

	chain, err := f.prerequisiteService().GetPrerequisiteChain(context.Background(), f.tenant, f.subject.ID, "x")
	require.NoError(t, err)
	assert.NotEmpty(t, chain.Cycles)
}

func TestValidateGraphAndLearningOrder(t *testing.T) {
	f := newFixture(t)
	for _, k := range []string{"x", "y", "base", "next", "loner"} {
		f.skill(t, k)
	}
	f.edge(t, "next", "base", 1, true)
	svc := f.prerequisiteService()
	ctx := context.Background()

	require.NoError(t, svc.ValidateGraph(ctx, f.tenant, f.subject.ID))

	f.edge(t, "x", "y", 1, true)
	f.edge(t, "y", "x", 1, true)
	err := svc.ValidateGraph(ctx, f.tenant, f.subject.ID)
	require.True(t, domainagg.IsCode(err, domainagg.CodeConfiguration), "got %v", err)
	assert.Contains(t, err.Error(), "[x y]")

	order, err := svc.GetRecommendedLearningOrder(ctx, f.tenant, f.subject.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, order.Excluded)
	assert.NotContains(t, order.Order, "x")
	assert.Contains(t, order.Order, "loner")

	pos := map[string]int{}
	for i, k := range order.Order {
		pos[k] = i
	}
	assert.Less(t, pos["base"], pos["next"])
}

func TestFindPrerequisiteBottlenecks(t *testing.T) {
	f := newFixture(t)
	for _, k := range []string{"base", "mid", "s1", "s2", "s3"} {
		f.skill(t, k)
	}
	f.edge(t, "s1", "base", 1, true)
	f.edge(t, "s2", "base", 1, true)
	f.edge(t, "s3", "base", 1, true)
	f.edge(t, "s3", "mid", 1, true)

	peer := repotest.SeedStudent(t, f.db, f.tenant)
	f.mastery(t, "base", 10, 4, nil)
	repotest.SeedMastery(t, f.db, f.tenant, peer.ID, f.subject.ID, "base", 30, 4, nil, nil)
	f.mastery(t, "mid", 90, 4, nil)

	out, err := f.prerequisiteService().FindPrerequisiteBottlenecks(context.Background(), f.tenant, f.subject.ID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "base", out[0].SkillKey)
	assert.Equal(t, 3, out[0].OutDegree)
	assert.InDelta(t, 20.0, out[0].AvgMastery, 1e-9)
	assert.InDelta(t, 150.0, out[0].Score, 1e-9)
}

func TestSyncGraphMirrorsSubjectEdges(t *testing.T) {
	f := newFixture(t)
	f.edge(t, "b", "a", 1, true)
	f.edge(t, "c", "b", 0.5, false)

	n, err := f.prerequisiteService().SyncGraph(context.Background(), f.tenant, f.subject.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, f.mirror.edgeSets, 1)
	assert.Len(t, f.mirror.edgeSets[0], 2)
}
