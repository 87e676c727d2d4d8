package ocdg

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// relationIndex is the structural view of a single relation kind's edge
// subgraph, backed by a gonum directed graph. It answers the adjacency
// queries decomposition and cycle detection need without touching edge
// attributes.
type relationIndex struct {
	graph  *simple.DirectedGraph
	ids    map[string]int64 // object ID -> gonum node ID
	labels map[int64]string // gonum node ID -> object ID
	nextID int64
}

// newRelationIndex builds the index for one relation kind from the
// graph's node set and that kind's edges.
func newRelationIndex(g *Graph, relation Relation) *relationIndex {
	idx := &relationIndex{
		graph:  simple.NewDirectedGraph(),
		ids:    make(map[string]int64),
		labels: make(map[int64]string),
	}
	for _, node := range g.Nodes() {
		idx.addObject(node.ID)
	}
	for _, edge := range g.EdgesByRelation(relation) {
		idx.setEdge(edge.Source, edge.Target)
	}
	return idx
}

func (idx *relationIndex) addObject(objectID string) {
	if _, ok := idx.ids[objectID]; ok {
		return
	}
	idx.ids[objectID] = idx.nextID
	idx.labels[idx.nextID] = objectID
	idx.graph.AddNode(simple.Node(idx.nextID))
	idx.nextID++
}

func (idx *relationIndex) setEdge(source, target string) {
	from, to := idx.ids[source], idx.ids[target]
	if !idx.graph.HasEdgeFromTo(from, to) {
		idx.graph.SetEdge(idx.graph.NewEdge(idx.graph.Node(from), idx.graph.Node(to)))
	}
}

// hasEdge reports whether source -> target exists in this kind's subgraph.
func (idx *relationIndex) hasEdge(source, target string) bool {
	from, okF := idx.ids[source]
	to, okT := idx.ids[target]
	return okF && okT && idx.graph.HasEdgeFromTo(from, to)
}

// removeEdge drops source -> target from the structural view.
func (idx *relationIndex) removeEdge(source, target string) {
	from, okF := idx.ids[source]
	to, okT := idx.ids[target]
	if okF && okT {
		idx.graph.RemoveEdge(from, to)
	}
}

// successors returns the direct successors of an object, sorted.
func (idx *relationIndex) successors(objectID string) []string {
	id, ok := idx.ids[objectID]
	if !ok {
		return nil
	}
	var out []string
	iter := idx.graph.From(id)
	for iter.Next() {
		out = append(out, idx.labels[iter.Node().ID()])
	}
	sort.Strings(out)
	return out
}

// directed exposes the underlying gonum view for graph algorithms.
func (idx *relationIndex) directed() graph.Directed {
	return idx.graph
}

// object maps a gonum node ID back to its object ID.
func (idx *relationIndex) object(id int64) string {
	return idx.labels[id]
}
