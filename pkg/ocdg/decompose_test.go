package ocdg

import (
	"context"
	"reflect"
	"testing"
)

// chainGraph builds a descendant chain a -> b -> c with the shortcut
// a -> c, each edge carrying the evidence of its source's first
// appearance.
func chainGraph(t *testing.T) *Graph {
	t.Helper()
	g := New()
	for _, id := range []string{"a", "b", "c", "isolated"} {
		g.AddNode(&Node{ID: id, Type: "item"})
	}
	mustSetEdge(t, g, NewEdge("a", "b", RelationDescendant, 1, "e1"))
	mustSetEdge(t, g, NewEdge("b", "c", RelationDescendant, 1, "e2"))
	mustSetEdge(t, g, NewEdge("a", "c", RelationDescendant, 1, "e1"))
	return g
}

func mustSetEdge(t *testing.T, g *Graph, edge *Edge) {
	t.Helper()
	if err := g.SetEdge(edge); err != nil {
		t.Fatalf("SetEdge failed: %v", err)
	}
}

func TestDecomposeChain(t *testing.T) {
	g := chainGraph(t)

	reduced, err := Decompose(context.Background(), g)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}

	if reduced.EdgeCount() != 2 {
		t.Fatalf("Expected the shortcut to be removed, got %d edges", reduced.EdgeCount())
	}
	if _, ok := reduced.Edge("a", "c", RelationDescendant); ok {
		t.Error("Expected a -> c to be removed")
	}

	// The removed edge's weight and evidence fold into both hops.
	requireEdge(t, reduced, "a", "b", RelationDescendant, 2, "e1")
	requireEdge(t, reduced, "b", "c", RelationDescendant, 2, "e1", "e2")
}

func TestDecomposePreservesNodes(t *testing.T) {
	g := chainGraph(t)

	reduced, err := Decompose(context.Background(), g)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}

	if reduced.NodeCount() != g.NodeCount() {
		t.Errorf("Expected node count %d, got %d", g.NodeCount(), reduced.NodeCount())
	}
	if _, ok := reduced.Node("isolated"); !ok {
		t.Error("Expected the edge-less node to survive")
	}
}

func TestDecomposeKeepsUncoveredTriangle(t *testing.T) {
	// Each pair co-occurs in its own event, so no two-hop path carries
	// the direct edge's evidence and nothing is removable.
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(&Node{ID: id, Type: "item"})
	}
	mustSetEdge(t, g, NewEdge("a", "b", RelationCooccurrence, 1, "e1"))
	mustSetEdge(t, g, NewEdge("b", "a", RelationCooccurrence, 1, "e1"))
	mustSetEdge(t, g, NewEdge("b", "c", RelationCooccurrence, 1, "e2"))
	mustSetEdge(t, g, NewEdge("c", "b", RelationCooccurrence, 1, "e2"))
	mustSetEdge(t, g, NewEdge("a", "c", RelationCooccurrence, 1, "e3"))
	mustSetEdge(t, g, NewEdge("c", "a", RelationCooccurrence, 1, "e3"))

	reduced, err := Decompose(context.Background(), g)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}

	if reduced.EdgeCount() != 6 {
		t.Errorf("Expected all 6 edges kept, got %d", reduced.EdgeCount())
	}
	for _, edge := range g.Edges() {
		requireEdge(t, reduced, edge.Source, edge.Target, edge.Relation, 1)
	}
}

func TestDecomposeRemovesCoveredTriangle(t *testing.T) {
	// When the shortcut's evidence is already carried by the two-hop
	// path, the shortcut goes.
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(&Node{ID: id, Type: "item"})
	}
	mustSetEdge(t, g, NewEdge("a", "b", RelationDescendant, 1, "e1"))
	mustSetEdge(t, g, NewEdge("b", "c", RelationDescendant, 1, "e1"))
	mustSetEdge(t, g, NewEdge("a", "c", RelationDescendant, 1, "e1"))

	reduced, err := Decompose(context.Background(), g)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}

	if _, ok := reduced.Edge("a", "c", RelationDescendant); ok {
		t.Error("Expected the covered shortcut to be removed")
	}
	if reduced.EdgeCount() != 2 {
		t.Errorf("Expected 2 edges, got %d", reduced.EdgeCount())
	}
}

func TestDecomposeRelationsIndependent(t *testing.T) {
	// A witness path of a different kind never covers a direct edge.
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(&Node{ID: id, Type: "item"})
	}
	mustSetEdge(t, g, NewEdge("a", "b", RelationDescendant, 1, "e1"))
	mustSetEdge(t, g, NewEdge("b", "c", RelationDescendant, 1, "e1"))
	mustSetEdge(t, g, NewEdge("a", "c", RelationInheritance, 1, "e1"))

	reduced, err := Decompose(context.Background(), g)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}

	if reduced.EdgeCount() != 3 {
		t.Errorf("Expected all 3 edges kept, got %d", reduced.EdgeCount())
	}
}

func TestDecomposeIdempotent(t *testing.T) {
	g := chainGraph(t)

	once, err := Decompose(context.Background(), g)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	twice, err := Decompose(context.Background(), once)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}

	if twice.EdgeCount() != once.EdgeCount() {
		t.Fatalf("Expected a stable edge count, got %d then %d",
			once.EdgeCount(), twice.EdgeCount())
	}
	for _, edge := range once.Edges() {
		again, ok := twice.Edge(edge.Source, edge.Target, edge.Relation)
		if !ok {
			t.Errorf("Edge %s -> %s lost on the second pass", edge.Source, edge.Target)
			continue
		}
		if again.Weight != edge.Weight || !reflect.DeepEqual(again.Evidence(), edge.Evidence()) {
			t.Errorf("Edge %s -> %s changed on the second pass", edge.Source, edge.Target)
		}
	}
}

func TestDecomposeCascadingRemovals(t *testing.T) {
	// Removing a -> d folds e2 into a -> c, which only then covers
	// a -> b together with c -> b. Both removals must land in one call.
	g := New()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddNode(&Node{ID: id, Type: "item"})
	}
	mustSetEdge(t, g, NewEdge("a", "b", RelationDescendant, 1, "e1", "e2"))
	mustSetEdge(t, g, NewEdge("a", "c", RelationDescendant, 1, "e1"))
	mustSetEdge(t, g, NewEdge("a", "d", RelationDescendant, 1, "e2"))
	mustSetEdge(t, g, NewEdge("c", "b", RelationDescendant, 1, "e1"))
	mustSetEdge(t, g, NewEdge("c", "d", RelationDescendant, 1, "e2"))

	once, err := Decompose(context.Background(), g)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}

	if once.EdgeCount() != 3 {
		t.Fatalf("Expected both shortcuts removed in one call, got %d edges", once.EdgeCount())
	}
	for _, gone := range [][2]string{{"a", "b"}, {"a", "d"}} {
		if _, ok := once.Edge(gone[0], gone[1], RelationDescendant); ok {
			t.Errorf("Expected %s -> %s to be removed", gone[0], gone[1])
		}
	}
	requireEdge(t, once, "a", "c", RelationDescendant, 3, "e1", "e2")
	requireEdge(t, once, "c", "b", RelationDescendant, 2, "e1", "e2")
	requireEdge(t, once, "c", "d", RelationDescendant, 2, "e2")

	twice, err := Decompose(context.Background(), once)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if twice.EdgeCount() != once.EdgeCount() {
		t.Errorf("Expected a stable result, got %d then %d edges",
			once.EdgeCount(), twice.EdgeCount())
	}
}

func TestDecomposeEmptyGraph(t *testing.T) {
	reduced, err := Decompose(context.Background(), New())
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if reduced.NodeCount() != 0 || reduced.EdgeCount() != 0 {
		t.Error("Expected an empty graph to decompose to itself")
	}
}

func TestDecomposeCycleKeepsReachability(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(&Node{ID: id, Type: "item"})
	}
	mustSetEdge(t, g, NewEdge("a", "b", RelationDescendant, 1, "e1"))
	mustSetEdge(t, g, NewEdge("b", "c", RelationDescendant, 1, "e1"))
	mustSetEdge(t, g, NewEdge("c", "a", RelationDescendant, 1, "e1"))

	reduced, err := Decompose(context.Background(), g)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}

	// A bare 3-cycle has no two-hop shortcut; every edge must survive or
	// reachability breaks.
	if reduced.EdgeCount() != 3 {
		t.Errorf("Expected the cycle intact, got %d edges", reduced.EdgeCount())
	}
}
