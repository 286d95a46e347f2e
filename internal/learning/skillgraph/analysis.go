package skillgraph

import (
	"container/heap"
	"sort"
)

type ChainEntry struct {
	SkillKey string `json:"skill_key"`
	// Depth is the shortest hop count from the queried skill.
	Depth int `json:"depth"`
	// Strict is true when a path of only strict edges reaches the skill.
	Strict bool `json:"strict"`
}

type ChainResult struct {
	Skills []ChainEntry `json:"skills"`
	Cycles [][]string   `json:"cycles,omitempty"`
}

// Chain returns the transitive prerequisite closure of skill in breadth-first
// order. Cycles reachable from skill are reported rather than followed.
func (g *Graph) Chain(skill string) ChainResult {
	res := ChainResult{}
	if !g.Has(skill) {
		return res
	}
	type item struct {
		key    string
		depth  int
		strict bool
	}
	visited := map[string]int{skill: 0}
	strictSeen := map[string]bool{skill: true}
	queue := []item{{key: skill, depth: 0, strict: true}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.prereqs[cur.key] {
			strict := cur.strict && e.Strict
			if _, ok := visited[e.Prerequisite]; ok {
				if strict && !strictSeen[e.Prerequisite] {
					strictSeen[e.Prerequisite] = true
					queue = append(queue, item{key: e.Prerequisite, depth: visited[e.Prerequisite], strict: true})
				}
				continue
			}
			visited[e.Prerequisite] = cur.depth + 1
			strictSeen[e.Prerequisite] = strict
			queue = append(queue, item{key: e.Prerequisite, depth: cur.depth + 1, strict: strict})
		}
	}
	for key, depth := range visited {
		if key == skill {
			continue
		}
		res.Skills = append(res.Skills, ChainEntry{SkillKey: key, Depth: depth, Strict: strictSeen[key]})
	}
	sort.Slice(res.Skills, func(i, j int) bool {
		if res.Skills[i].Depth != res.Skills[j].Depth {
			return res.Skills[i].Depth < res.Skills[j].Depth
		}
		return res.Skills[i].SkillKey < res.Skills[j].SkillKey
	})
	for _, c := range g.cycles(false) {
		for _, k := range c {
			if _, ok := visited[k]; ok {
				res.Cycles = append(res.Cycles, c)
				break
			}
		}
	}
	return res
}

// StrictCycles lists the strongly connected components of the strict subgraph
// that contain a cycle. Members are sorted; components are sorted by first member.
func (g *Graph) StrictCycles() [][]string {
	return g.cycles(true)
}

func (g *Graph) cycles(strictOnly bool) [][]string {
	index := 0
	idx := map[string]int{}
	low := map[string]int{}
	onStack := map[string]bool{}
	var stack []string
	var out [][]string

	var connect func(v string)
	connect = func(v string) {
		idx[v] = index
		low[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true
		for _, e := range g.prereqs[v] {
			if strictOnly && !e.Strict {
				continue
			}
			w := e.Prerequisite
			if _, seen := idx[w]; !seen {
				connect(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] && idx[w] < low[v] {
				low[v] = idx[w]
			}
		}
		if low[v] != idx[v] {
			return
		}
		var comp []string
		for {
			n := len(stack) - 1
			w := stack[n]
			stack = stack[:n]
			onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		if len(comp) > 1 || g.selfLoop(v, strictOnly) {
			sort.Strings(comp)
			out = append(out, comp)
		}
	}
	for _, v := range g.Nodes() {
		if _, seen := idx[v]; !seen {
			connect(v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func (g *Graph) selfLoop(v string, strictOnly bool) bool {
	for _, e := range g.prereqs[v] {
		if e.Prerequisite == v && (!strictOnly || e.Strict) {
			return true
		}
	}
	return false
}

type OrderResult struct {
	Order    []string   `json:"order"`
	Excluded []string   `json:"excluded,omitempty"`
	Cycles   [][]string `json:"cycles,omitempty"`
}

// LearningOrder is a Kahn topological order of the strict subgraph with
// prerequisites first. Ready skills are taken by Weight descending, then key
// ascending. Members of strict cycles are excluded and their edges ignored so
// the remainder of the graph still resolves.
func (g *Graph) LearningOrder() OrderResult {
	res := OrderResult{Cycles: g.StrictCycles()}
	excluded := map[string]bool{}
	for _, c := range res.Cycles {
		for _, k := range c {
			excluded[k] = true
			res.Excluded = append(res.Excluded, k)
		}
	}
	sort.Strings(res.Excluded)

	indeg := map[string]int{}
	for _, v := range g.Nodes() {
		if excluded[v] {
			continue
		}
		indeg[v] = 0
		for _, e := range g.StrictPrerequisites(v) {
			if !excluded[e.Prerequisite] {
				indeg[v]++
			}
		}
	}
	ready := &readyQueue{g: g}
	for v, d := range indeg {
		if d == 0 {
			heap.Push(ready, v)
		}
	}
	for ready.Len() > 0 {
		v := heap.Pop(ready).(string)
		res.Order = append(res.Order, v)
		for _, e := range g.dependents[v] {
			if !e.Strict || excluded[e.Skill] {
				continue
			}
			indeg[e.Skill]--
			if indeg[e.Skill] == 0 {
				heap.Push(ready, e.Skill)
			}
		}
	}
	return res
}

type readyQueue struct {
	g    *Graph
	keys []string
}

func (q *readyQueue) Len() int { return len(q.keys) }
func (q *readyQueue) Less(i, j int) bool {
	wi, wj := q.g.Weight(q.keys[i]), q.g.Weight(q.keys[j])
	if wi != wj {
		return wi > wj
	}
	return q.keys[i] < q.keys[j]
}
func (q *readyQueue) Swap(i, j int) { q.keys[i], q.keys[j] = q.keys[j], q.keys[i] }
func (q *readyQueue) Push(x any)    { q.keys = append(q.keys, x.(string)) }
func (q *readyQueue) Pop() any {
	n := len(q.keys) - 1
	k := q.keys[n]
	q.keys = q.keys[:n]
	return k
}

type Bottleneck struct {
	SkillKey   string  `json:"skill_key"`
	OutDegree  int     `json:"out_degree"`
	AvgMastery float64 `json:"avg_mastery"`
	Score      float64 `json:"score"`
}

// Bottlenecks ranks skills that gate more skills than average while the cohort
// masters them less than average. Skills absent from avgMastery count as 0.
// Ranking is OutDegree*(threshold-avg) descending, then key ascending.
func (g *Graph) Bottlenecks(avgMastery map[string]float64, threshold float64) []Bottleneck {
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return nil
	}
	var sumDeg, sumAvg float64
	for _, k := range nodes {
		sumDeg += float64(g.OutDegree(k))
		sumAvg += avgMastery[k]
	}
	meanDeg := sumDeg / float64(len(nodes))
	meanAvg := sumAvg / float64(len(nodes))

	var out []Bottleneck
	for _, k := range nodes {
		deg := g.OutDegree(k)
		avg := avgMastery[k]
		if float64(deg) <= meanDeg || avg >= meanAvg {
			continue
		}
		out = append(out, Bottleneck{
			SkillKey:   k,
			OutDegree:  deg,
			AvgMastery: avg,
			Score:      float64(deg) * (threshold - avg),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].SkillKey < out[j].SkillKey
	})
	return out
}

// Readiness is the weight-averaged fraction of the unlock threshold reached
// across all prerequisites of skill, strict or not. No prerequisites means 1.
func (g *Graph) Readiness(skill string, mastery map[string]float64, threshold float64) float64 {
	edges := g.prereqs[skill]
	if len(edges) == 0 || threshold <= 0 {
		return 1
	}
	var num, den float64
	for _, e := range edges {
		w := e.Weight
		if w <= 0 {
			continue
		}
		frac := mastery[e.Prerequisite] / threshold
		if frac > 1 {
			frac = 1
		}
		if frac < 0 {
			frac = 0
		}
		num += w * frac
		den += w
	}
	if den == 0 {
		return 1
	}
	return num / den
}
