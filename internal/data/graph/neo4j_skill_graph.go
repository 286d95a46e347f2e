package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/neurobridge-mastery/internal/domain"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/platform/neo4jdb"
)

// Mirror copies the prerequisite graph and mastery levels into neo4j for ad-hoc
// graph queries. The relational store stays the source of truth.
type Mirror interface {
	SyncPrerequisites(ctx context.Context, tenantID uuid.UUID, subjectID *uuid.UUID, edges []*types.SkillPrerequisite) error
	SyncMastery(ctx context.Context, row *types.SkillMastery) error
}

type neo4jMirror struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

// NewNeo4jMirror returns a mirror that does nothing when client is nil.
func NewNeo4jMirror(client *neo4jdb.Client, log *logger.Logger) Mirror {
	return &neo4jMirror{client: client, log: log}
}

func (m *neo4jMirror) enabled() bool {
	return m != nil && m.client != nil && m.client.Driver != nil
}

func (m *neo4jMirror) SyncPrerequisites(ctx context.Context, tenantID uuid.UUID, subjectID *uuid.UUID, edges []*types.SkillPrerequisite) error {
	if !m.enabled() {
		return nil
	}
	if tenantID == uuid.Nil {
		return fmt.Errorf("neo4j skill graph sync: missing tenantID")
	}
	nodes, rels := prerequisiteRecords(tenantID, edges, time.Now().UTC())

	m.ensureSchema(ctx)
	return m.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(nodes) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $nodes AS n
MERGE (s:Skill {tenant_id: n.tenant_id, key: n.key})
SET s.synced_at = n.synced_at
`, map[string]any{"nodes": nodes})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		scope := ""
		if subjectID != nil && *subjectID != uuid.Nil {
			scope = subjectID.String()
		}
		res, err := tx.Run(ctx, `
MATCH (:Skill {tenant_id: $tenant_id})-[r:REQUIRES]->(:Skill {tenant_id: $tenant_id})
WHERE $subject_id = '' OR r.subject_id = $subject_id
DELETE r
`, map[string]any{"tenant_id": tenantID.String(), "subject_id": scope})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		if len(rels) == 0 {
			return nil, nil
		}
		res, err = tx.Run(ctx, `
UNWIND $rels AS r
MATCH (s:Skill {tenant_id: r.tenant_id, key: r.skill_key})
MATCH (p:Skill {tenant_id: r.tenant_id, key: r.prerequisite_key})
MERGE (s)-[e:REQUIRES]->(p)
SET e.weight = r.weight, e.strict = r.strict, e.subject_id = r.subject_id, e.synced_at = r.synced_at
`, map[string]any{"rels": rels})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
}

func (m *neo4jMirror) SyncMastery(ctx context.Context, row *types.SkillMastery) error {
	if !m.enabled() || row == nil {
		return nil
	}
	rec := masteryRecord(row)
	return m.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (st:Student {tenant_id: $rec.tenant_id, id: $rec.student_id})
MERGE (sk:Skill {tenant_id: $rec.tenant_id, key: $rec.skill_key})
MERGE (st)-[m:MASTERY]->(sk)
SET m.level = $rec.level, m.deleted = $rec.deleted, m.synced_at = $rec.synced_at
`, map[string]any{"rec": rec})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
}

func (m *neo4jMirror) ensureSchema(ctx context.Context) {
	session := m.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: m.client.Database,
	})
	defer session.Close(ctx)
	// Best-effort; restricted users may not create constraints.
	if res, err := session.Run(ctx, `CREATE CONSTRAINT skill_key_unique IF NOT EXISTS FOR (s:Skill) REQUIRE (s.tenant_id, s.key) IS UNIQUE`, nil); err != nil {
		if m.log != nil {
			m.log.Warn("neo4j schema init failed (continuing)", "error", err)
		}
	} else {
		_, _ = res.Consume(ctx)
	}
}

func prerequisiteRecords(tenantID uuid.UUID, edges []*types.SkillPrerequisite, now time.Time) ([]map[string]any, []map[string]any) {
	stamp := now.Format(time.RFC3339Nano)
	tenant := tenantID.String()
	seen := map[string]bool{}
	nodes := []map[string]any{}
	rels := []map[string]any{}
	addNode := func(key string) {
		if seen[key] {
			return
		}
		seen[key] = true
		nodes = append(nodes, map[string]any{"tenant_id": tenant, "key": key, "synced_at": stamp})
	}
	for _, e := range edges {
		if e == nil || !e.Active || e.TenantID != tenantID {
			continue
		}
		skill := strings.TrimSpace(e.SkillKey)
		prereq := strings.TrimSpace(e.PrerequisiteSkillKey)
		if skill == "" || prereq == "" {
			continue
		}
		addNode(skill)
		addNode(prereq)
		rels = append(rels, map[string]any{
			"tenant_id":        tenant,
			"skill_key":        skill,
			"prerequisite_key": prereq,
			"weight":           e.Weight,
			"strict":           e.IsStrict,
			"subject_id":       e.SubjectID.String(),
			"synced_at":        stamp,
		})
	}
	return nodes, rels
}

func masteryRecord(row *types.SkillMastery) map[string]any {
	return map[string]any{
		"tenant_id":  row.TenantID.String(),
		"student_id": row.StudentID.String(),
		"skill_key":  row.SkillKey,
		"level":      row.MasteryLevel,
		"deleted":    row.DeletedAt.Valid,
		"synced_at":  time.Now().UTC().Format(time.RFC3339Nano),
	}
}
