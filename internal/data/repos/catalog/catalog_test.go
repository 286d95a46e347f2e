package catalog

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-mastery/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-mastery/internal/domain"
)

func TestRefReposAreTenantScoped(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.DBC(t, tx)
	log := testutil.Logger(t)

	tenant, otherTenant := uuid.New(), uuid.New()
	student := testutil.SeedStudent(t, tx, tenant)
	subject := testutil.SeedSubject(t, tx, tenant, "math")
	testutil.SeedSkill(t, tx, tenant, subject.ID, "algebra-1", types.DifficultyMedium)

	students := NewStudentRepo(db, log)
	if got, err := students.GetByID(dbc, tenant, student.ID); err != nil || got == nil {
		t.Fatalf("student lookup: got=%v err=%v", got, err)
	}
	if got, err := students.GetByID(dbc, otherTenant, student.ID); err != nil || got != nil {
		t.Fatalf("cross-tenant student must miss: got=%v err=%v", got, err)
	}

	subjects := NewSubjectRepo(db, log)
	if got, err := subjects.GetByID(dbc, otherTenant, subject.ID); err != nil || got != nil {
		t.Fatalf("cross-tenant subject must miss: got=%v err=%v", got, err)
	}

	skills := NewSkillRepo(db, log)
	sk, err := skills.GetByKey(dbc, tenant, "algebra-1")
	if err != nil || sk == nil || sk.Difficulty != types.DifficultyMedium {
		t.Fatalf("skill lookup: got=%v err=%v", sk, err)
	}
	if got, err := skills.GetByKey(dbc, tenant, "missing"); err != nil || got != nil {
		t.Fatalf("missing skill: got=%v err=%v", got, err)
	}
}

func TestPrerequisiteRepoFiltersInactive(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.DBC(t, tx)

	tenant, subject := uuid.New(), uuid.New()
	testutil.SeedPrerequisite(t, tx, tenant, subject, "algebra-2", "algebra-1", 1, true)
	inactive := testutil.SeedPrerequisite(t, tx, tenant, subject, "algebra-2", "geometry", 0.5, false)
	if err := tx.Model(inactive).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	repo := NewSkillPrerequisiteRepo(db, testutil.Logger(t))
	edges, err := repo.ListActiveForSkill(dbc, tenant, "algebra-2")
	if err != nil {
		t.Fatalf("ListActiveForSkill: %v", err)
	}
	if len(edges) != 1 || edges[0].PrerequisiteSkillKey != "algebra-1" || !edges[0].IsStrict {
		t.Fatalf("unexpected edges: %+v", edges)
	}
	all, err := repo.ListActive(dbc, tenant, &subject)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListActive: %d err=%v", len(all), err)
	}
}

func TestPathRepoPrefersStudentPath(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.DBC(t, tx)

	tenant, subject := uuid.New(), uuid.New()
	student := uuid.New()
	m1 := testutil.SeedModule(t, tx, tenant, subject, "intro", "a")
	m2 := testutil.SeedModule(t, tx, tenant, subject, "next", "b")
	testutil.SeedPath(t, tx, tenant, subject, nil, m1, m2)
	own := testutil.SeedPath(t, tx, tenant, subject, &student, m2)

	repo := NewLearningPathRepo(db, testutil.Logger(t))
	path, items, err := repo.ResolveForStudent(dbc, tenant, subject, student)
	if err != nil || path == nil {
		t.Fatalf("resolve: path=%v err=%v", path, err)
	}
	if path.ID != own.ID || len(items) != 1 || items[0].ModuleID != m2.ID {
		t.Fatalf("expected student path, got %+v items=%d", path, len(items))
	}

	path, items, err = repo.ResolveForStudent(dbc, tenant, subject, uuid.New())
	if err != nil || path == nil || len(items) != 2 || items[0].ModuleID != m1.ID {
		t.Fatalf("expected default path with ordered items: path=%v items=%v err=%v", path, items, err)
	}

	mods := NewLearningModuleRepo(db, testutil.Logger(t))
	got, err := mods.GetByID(dbc, tenant, m1.ID)
	if err != nil || got == nil {
		t.Fatalf("module lookup: %v", err)
	}
	if keys := got.RequiredSkills(); len(keys) != 1 || keys[0] != "a" {
		t.Fatalf("unexpected required skills: %v", keys)
	}
}
