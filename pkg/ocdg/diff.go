package ocdg

// RemovedEdge describes one edge dropped by decomposition.
type RemovedEdge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
	Weight   int    `json:"weight"`
}

// DecompositionDiff summarizes what a decomposition changed. The node set
// never changes, so only edges are reported.
type DecompositionDiff struct {
	NodeCount    int           `json:"nodeCount"`
	EdgesBefore  int           `json:"edgesBefore"`
	EdgesAfter   int           `json:"edgesAfter"`
	RemovedEdges []RemovedEdge `json:"removedEdges"`
}

// Removed returns the number of edges decomposition dropped.
func (d *DecompositionDiff) Removed() int {
	return len(d.RemovedEdges)
}

// ComputeDiff compares a graph against its decomposition. Both graphs are
// indexed by edge key, so the comparison is independent of edge order.
func ComputeDiff(before, after *Graph) *DecompositionDiff {
	diff := &DecompositionDiff{
		NodeCount:    before.NodeCount(),
		EdgesBefore:  before.EdgeCount(),
		EdgesAfter:   after.EdgeCount(),
		RemovedEdges: make([]RemovedEdge, 0),
	}

	for _, edge := range before.Edges() {
		if _, kept := after.Edge(edge.Source, edge.Target, edge.Relation); kept {
			continue
		}
		diff.RemovedEdges = append(diff.RemovedEdges, RemovedEdge{
			Source:   edge.Source,
			Target:   edge.Target,
			Relation: edge.Relation.String(),
			Weight:   edge.Weight,
		})
	}
	return diff
}
