package aggregates

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	repotest "github.com/yungbote/neurobridge-mastery/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-mastery/internal/domain"
)

func TestRequireVersion(t *testing.T) {
	if err := requireVersion(3, 3); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := requireVersion(2, 3); !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("expected stale version, got %v", err)
	}
}

func seedGuardedRow(t *testing.T, practiced time.Time) (rowGuard, *types.SkillMastery) {
	t.Helper()
	db := repotest.DB(t)
	row := repotest.SeedMastery(t, db, uuid.New(), uuid.New(), uuid.New(), "ratios", 60, 4, &practiced, nil)
	return rowGuard{db: db}, row
}

func TestRowGuardUpdateBumpsVersion(t *testing.T) {
	guard, row := seedGuardedRow(t, time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	dbc := repotest.DBC(t, guard.db)

	if err := guard.update(dbc, row.ID, row.Version, map[string]any{"mastery_level": 75.0}); err != nil {
		t.Fatalf("update: %v", err)
	}
	var got types.SkillMastery
	if err := guard.db.First(&got, "id = ?", row.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.MasteryLevel != 75 || got.Version != row.Version+1 {
		t.Fatalf("unexpected row: level=%v version=%d", got.MasteryLevel, got.Version)
	}

	err := guard.update(dbc, row.ID, row.Version, map[string]any{"mastery_level": 10.0})
	if !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("second write at the old version should be stale, got %v", err)
	}
}

func TestRowGuardUpdateIdleRejectsNewerPractice(t *testing.T) {
	practiced := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	guard, row := seedGuardedRow(t, practiced)
	dbc := repotest.DBC(t, guard.db)

	// Decay planned from a clock older than the stored practice time.
	err := guard.updateIdle(dbc, row.ID, row.Version, practiced.Add(-time.Hour), map[string]any{"mastery_level": 50.0})
	if !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("expected stale write, got %v", err)
	}

	if err := guard.updateIdle(dbc, row.ID, row.Version, practiced, map[string]any{"mastery_level": 50.0}); err != nil {
		t.Fatalf("updateIdle at the stored practice time: %v", err)
	}
}

func TestRowGuardRejectsMissingID(t *testing.T) {
	guard := rowGuard{}
	if err := guard.update(repotest.DBC(t, nil), uuid.Nil, 1, nil); err == nil {
		t.Fatalf("expected error for nil id")
	}
}
