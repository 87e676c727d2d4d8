package ocdg

import (
	"sort"

	"gonum.org/v1/gonum/graph"
)

// CyclesByRelation finds the non-trivial strongly connected components of
// each relation kind's edge subgraph. Cycles are diagnostics, not errors:
// decomposition handles them, but a cyclic descendant subgraph usually
// points at a suspicious log.
func CyclesByRelation(g *Graph) map[Relation][][]string {
	cycles := make(map[Relation][][]string)
	for _, relation := range g.Relations() {
		idx := newRelationIndex(g, relation)
		found := findCycles(idx)
		if len(found) > 0 {
			cycles[relation] = found
		}
	}
	return cycles
}

// sccFinder runs Tarjan's algorithm over one relation subgraph.
type sccFinder struct {
	idx     *relationIndex
	counter int
	stack   []int64
	onStack map[int64]bool
	indices map[int64]int
	lowLink map[int64]int
	cycles  [][]string
}

func findCycles(idx *relationIndex) [][]string {
	f := &sccFinder{
		idx:     idx,
		onStack: make(map[int64]bool),
		indices: make(map[int64]int),
		lowLink: make(map[int64]int),
	}

	nodes := f.directed().Nodes()
	for nodes.Next() {
		id := nodes.Node().ID()
		if _, visited := f.indices[id]; !visited {
			f.strongConnect(id)
		}
	}

	for _, cycle := range f.cycles {
		sort.Strings(cycle)
	}
	sort.Slice(f.cycles, func(i, j int) bool { return f.cycles[i][0] < f.cycles[j][0] })
	return f.cycles
}

func (f *sccFinder) directed() graph.Directed {
	return f.idx.directed()
}

func (f *sccFinder) strongConnect(id int64) {
	f.indices[id] = f.counter
	f.lowLink[id] = f.counter
	f.counter++

	f.stack = append(f.stack, id)
	f.onStack[id] = true

	successors := f.directed().From(id)
	for successors.Next() {
		next := successors.Node().ID()
		if _, visited := f.indices[next]; !visited {
			f.strongConnect(next)
			f.lowLink[id] = min(f.lowLink[id], f.lowLink[next])
		} else if f.onStack[next] {
			f.lowLink[id] = min(f.lowLink[id], f.indices[next])
		}
	}

	if f.lowLink[id] == f.indices[id] {
		var component []int64
		for {
			top := f.stack[len(f.stack)-1]
			f.stack = f.stack[:len(f.stack)-1]
			f.onStack[top] = false
			component = append(component, top)
			if top == id {
				break
			}
		}
		// Single-node components are not cycles.
		if len(component) > 1 {
			cycle := make([]string, 0, len(component))
			for _, member := range component {
				cycle = append(cycle, f.idx.object(member))
			}
			f.cycles = append(f.cycles, cycle)
		}
	}
}
