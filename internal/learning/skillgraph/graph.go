package skillgraph

import (
	"sort"
	"strings"
)

// Edge states that Skill depends on Prerequisite.
type Edge struct {
	Skill        string  `json:"skill_key" yaml:"skill"`
	Prerequisite string  `json:"prerequisite_skill_key" yaml:"prerequisite"`
	Weight       float64 `json:"weight" yaml:"weight"`
	Strict       bool    `json:"is_strict" yaml:"strict"`
}

// Graph is an adjacency view over prerequisite edges. It makes no acyclicity
// assumption; cycles are reported by StrictCycles and excluded from ordering.
type Graph struct {
	nodes      map[string]struct{}
	prereqs    map[string][]Edge
	dependents map[string][]Edge
}

// New builds a graph, dropping blank keys and keeping the heaviest duplicate edge.
func New(edges []Edge) *Graph {
	g := &Graph{
		nodes:      map[string]struct{}{},
		prereqs:    map[string][]Edge{},
		dependents: map[string][]Edge{},
	}
	type pair struct{ a, b string }
	seen := map[pair]int{}
	for _, e := range edges {
		e.Skill = strings.TrimSpace(e.Skill)
		e.Prerequisite = strings.TrimSpace(e.Prerequisite)
		if e.Skill == "" || e.Prerequisite == "" {
			continue
		}
		g.AddNode(e.Skill)
		g.AddNode(e.Prerequisite)
		k := pair{e.Skill, e.Prerequisite}
		if idx, ok := seen[k]; ok {
			cur := g.prereqs[e.Skill][idx]
			if e.Weight > cur.Weight {
				cur.Weight = e.Weight
			}
			cur.Strict = cur.Strict || e.Strict
			g.prereqs[e.Skill][idx] = cur
			continue
		}
		seen[k] = len(g.prereqs[e.Skill])
		g.prereqs[e.Skill] = append(g.prereqs[e.Skill], e)
	}
	for _, list := range g.prereqs {
		sort.Slice(list, func(i, j int) bool { return list[i].Prerequisite < list[j].Prerequisite })
		for _, e := range list {
			g.dependents[e.Prerequisite] = append(g.dependents[e.Prerequisite], e)
		}
	}
	for _, list := range g.dependents {
		sort.Slice(list, func(i, j int) bool { return list[i].Skill < list[j].Skill })
	}
	return g
}

func (g *Graph) AddNode(key string) {
	key = strings.TrimSpace(key)
	if key != "" {
		g.nodes[key] = struct{}{}
	}
}

func (g *Graph) Has(key string) bool {
	_, ok := g.nodes[key]
	return ok
}

// Nodes returns every skill key in lexical order.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for k := range g.nodes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (g *Graph) Prerequisites(skill string) []Edge {
	return append([]Edge(nil), g.prereqs[skill]...)
}

func (g *Graph) StrictPrerequisites(skill string) []Edge {
	var out []Edge
	for _, e := range g.prereqs[skill] {
		if e.Strict {
			out = append(out, e)
		}
	}
	return out
}

// OutDegree counts the distinct skills that list key as a prerequisite.
func (g *Graph) OutDegree(key string) int {
	return len(g.dependents[key])
}

// Weight is the importance of key as a prerequisite: the heaviest edge that
// points at it, or zero when nothing depends on it.
func (g *Graph) Weight(key string) float64 {
	w := 0.0
	for _, e := range g.dependents[key] {
		if e.Weight > w {
			w = e.Weight
		}
	}
	return w
}
