package build

import (
	"sort"

	"github.com/roach88/shoal/internal/schema"
)

// cutEdge marks a relation binding that is resolved against the target's
// already-committed prior version instead of the version produced this run.
// Cutting is how cycles through pre-existing schemas are broken.
type cutEdge struct {
	target    string // schema being related to
	dependent string // schema declaring the relation field
}

// graphOrder is the result of dependency resolution: an emission order in
// which every relation target precedes its dependents, the set of bindings
// that were redirected to prior versions, and the membership of every broken
// cycle.
type graphOrder struct {
	names     []string
	cuts      map[cutEdge]bool
	cycles    map[string]int // schema name -> broken cycle id
	nextCycle int
}

// boundToPrior reports whether dependent's relation to target must bind to
// the target's committed prior version.
func (g *graphOrder) boundToPrior(target, dependent string) bool {
	return g.cuts[cutEdge{target: target, dependent: dependent}]
}

// inCycle reports whether the schema is part of a broken cycle.
func (g *graphOrder) inCycle(name string) bool {
	_, ok := g.cycles[name]
	return ok
}

// sameCycle reports whether both schemas sit on the same broken cycle.
func (g *graphOrder) sameCycle(a, b string) bool {
	ca, okA := g.cycles[a]
	cb, okB := g.cycles[b]
	return okA && okB && ca == cb
}

// buildGraph derives the dependency graph over the target definitions and
// topologically sorts it. Ties break on lexical schema name order, so the
// emission order is identical across runs.
//
// Self-relations never form graph edges; they always bind to a prior version
// and are checked during resolution. Cycles between distinct schemas are
// fatal unless at least one participant already has a committed version, in
// which case the cycle is broken by binding that participant's dependents to
// the committed version.
func buildGraph(defs []schema.Definition, snap *Snapshot) (*graphOrder, error) {
	// Edges target -> dependents; a schema must be emitted after everything
	// its relation fields point at.
	edges := make(map[string][]string)
	indegree := make(map[string]int)
	for _, def := range defs {
		if _, ok := indegree[def.Name]; !ok {
			indegree[def.Name] = 0
		}
	}

	for _, def := range defs {
		seen := make(map[string]bool)
		for _, f := range def.Fields {
			if !f.IsRelation() || f.RelationTarget == def.Name {
				continue
			}
			// Multiple relations to the same target need only one edge.
			if seen[f.RelationTarget] {
				continue
			}
			seen[f.RelationTarget] = true
			edges[f.RelationTarget] = append(edges[f.RelationTarget], def.Name)
			indegree[def.Name]++
		}
	}
	for target := range edges {
		sort.Strings(edges[target])
	}

	order := &graphOrder{cuts: make(map[cutEdge]bool), cycles: make(map[string]int)}
	emitted := make(map[string]bool)

	var ready []string
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	for len(order.names) < len(defs) {
		if len(ready) == 0 {
			// Stalled: every remaining schema sits on a cycle. Either break
			// it through a pre-existing participant or fail.
			freed, err := breakCycle(edges, indegree, emitted, snap, order)
			if err != nil {
				return nil, err
			}
			ready = freed
			continue
		}

		// Lexically smallest ready schema goes next.
		next := ready[0]
		ready = ready[1:]
		order.names = append(order.names, next)
		emitted[next] = true

		var freed []string
		for _, dep := range edges[next] {
			if emitted[dep] {
				continue
			}
			indegree[dep]--
			if indegree[dep] == 0 {
				freed = append(freed, dep)
			}
		}
		if len(freed) > 0 {
			ready = append(ready, freed...)
			sort.Strings(ready)
		}
	}

	return order, nil
}

// breakCycle inspects the remaining subgraph after the sort stalled. It finds
// the lexically first strongly connected component, and either rejects it as
// a same-run cycle (all participants pending) or redirects the bindings out
// of its lexically smallest pre-existing participant to that participant's
// committed version. Returns the schemas freed up by the cut.
func breakCycle(edges map[string][]string, indegree map[string]int, emitted map[string]bool, snap *Snapshot, order *graphOrder) ([]string, error) {
	var remaining []string
	for name := range indegree {
		if !emitted[name] {
			remaining = append(remaining, name)
		}
	}
	sort.Strings(remaining)

	sccs := tarjanSCC(remaining, func(name string) []string {
		var out []string
		for _, dep := range edges[name] {
			if !emitted[dep] && !order.cuts[cutEdge{target: name, dependent: dep}] {
				out = append(out, dep)
			}
		}
		return out
	})

	// Pick the lexically first cyclic component so the failure (or the cut)
	// is deterministic.
	var cycle []string
	for _, scc := range sccs {
		if len(scc) < 2 {
			continue
		}
		sort.Strings(scc)
		if cycle == nil || scc[0] < cycle[0] {
			cycle = scc
		}
	}
	if cycle == nil {
		// Stalled without a cycle would mean the graph bookkeeping is wrong.
		return nil, &CyclicError{Names: remaining}
	}

	var breaker string
	for _, name := range cycle {
		if _, ok := snap.LatestSchema(name); ok {
			breaker = name
			break
		}
	}
	if breaker == "" {
		return nil, &CyclicError{Names: cycle}
	}

	// Record cycle membership. A stall can recur on the same component, so
	// members keep their original cycle id.
	id, known := -1, false
	for _, name := range cycle {
		if cid, ok := order.cycles[name]; ok {
			id, known = cid, true
			break
		}
	}
	if !known {
		id = order.nextCycle
		order.nextCycle++
	}
	inCycle := make(map[string]bool, len(cycle))
	for _, name := range cycle {
		inCycle[name] = true
		order.cycles[name] = id
	}

	var freed []string
	for _, dep := range edges[breaker] {
		if !inCycle[dep] || order.cuts[cutEdge{target: breaker, dependent: dep}] {
			continue
		}
		order.cuts[cutEdge{target: breaker, dependent: dep}] = true
		indegree[dep]--
		if indegree[dep] == 0 {
			freed = append(freed, dep)
		}
	}
	sort.Strings(freed)
	return freed, nil
}

// tarjanSCC finds strongly connected components over the given nodes using
// Tarjan's algorithm. Traversal order is fixed by the caller passing nodes
// in sorted order, keeping component discovery deterministic.
func tarjanSCC(nodes []string, successors func(string) []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		inScope = make(map[string]bool)
		sccs    [][]string
	)
	for _, n := range nodes {
		inScope[n] = true
	}

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range successors(v) {
			if !inScope[w] {
				continue
			}
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}
