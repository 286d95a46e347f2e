package aggregates

import (
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"
	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
	"gorm.io/gorm"
)

// rowGuard applies skill_mastery updates only while the row still carries the
// version the caller read. The same statement bumps the version.
type rowGuard struct {
	db *gorm.DB
}

func (g rowGuard) scope(dbc dbctx.Context, id uuid.UUID, version int) (*gorm.DB, error) {
	if id == uuid.Nil || version < 0 {
		return nil, errors.New("guarded update needs a row id and a non-negative version")
	}
	db := dbc.Tx
	if db == nil {
		db = g.db
	}
	if db == nil {
		return nil, errors.New("guarded update has no database handle")
	}
	return db.WithContext(dbc.Ctx).
		Table(domainagg.SkillMasteryAggregateContract.Table).
		Where("id = ? AND version = ?", id, version), nil
}

// update writes updates to row id while it is still at version.
func (g rowGuard) update(dbc dbctx.Context, id uuid.UUID, version int, updates map[string]any) error {
	q, err := g.scope(dbc, id, version)
	if err != nil {
		return err
	}
	return apply(q, version, updates, "skill mastery changed concurrently")
}

// updateIdle is update for decay. It also requires that the skill was not
// practiced after practicedAt, the clock the decay was computed from.
func (g rowGuard) updateIdle(dbc dbctx.Context, id uuid.UUID, version int, practicedAt time.Time, updates map[string]any) error {
	q, err := g.scope(dbc, id, version)
	if err != nil {
		return err
	}
	q = q.Where("last_practiced_at IS NOT NULL AND last_practiced_at <= ?", practicedAt)
	return apply(q, version, updates, "skill mastery practiced during decay")
}

func apply(q *gorm.DB, version int, updates map[string]any, stale string) error {
	set := make(map[string]any, len(updates)+2)
	maps.Copy(set, updates)
	set["version"] = version + 1
	if _, ok := set["updated_at"]; !ok {
		set["updated_at"] = time.Now().UTC()
	}
	res := q.Updates(set)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return staleVersion(stale)
	}
	return nil
}

// requireVersion rejects a write planned against an older read of the row.
func requireVersion(current, expected int) error {
	if current != expected {
		return staleVersion("version mismatch")
	}
	return nil
}
