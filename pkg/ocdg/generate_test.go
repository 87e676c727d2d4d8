package ocdg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DerAndereJohannes/pmrs-cli/pkg/ocel"
)

// buildLog assembles a log from (event ID, object refs) pairs in order,
// spacing timestamps one minute apart. Objects are declared with the
// given types; refs may only name declared objects.
func buildLog(t *testing.T, types map[string]string, events [][]string) *ocel.Log {
	t.Helper()
	log := ocel.NewLog()
	for id, objType := range types {
		log.Objects[id] = &ocel.Object{ID: id, Type: objType, OvMap: map[string]interface{}{}}
	}
	base := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, spec := range events {
		id := spec[0]
		log.Events[id] = &ocel.Event{
			ID:        id,
			Activity:  "act",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			OMap:      spec[1:],
			VMap:      map[string]interface{}{},
		}
	}
	return log
}

func requireEdge(t *testing.T, g *Graph, source, target string, relation Relation, weight int, evidence ...string) {
	t.Helper()
	edge, ok := g.Edge(source, target, relation)
	if !ok {
		t.Fatalf("Expected %s edge %s -> %s", relation.String(), source, target)
	}
	if edge.Weight != weight {
		t.Errorf("Edge %s -> %s: expected weight %d, got %d", source, target, weight, edge.Weight)
	}
	for _, eventID := range evidence {
		if !edge.HasEvidence(eventID) {
			t.Errorf("Edge %s -> %s: expected evidence %s, got %v", source, target, eventID, edge.Evidence())
		}
	}
}

func TestGenerateNodeSet(t *testing.T) {
	log := buildLog(t,
		map[string]string{"a": "item", "b": "item", "unused": "item"},
		[][]string{{"e1", "a", "b"}})

	g, err := Generate(context.Background(), log, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if g.NodeCount() != 2 {
		t.Errorf("Expected only referenced objects as nodes, got %d", g.NodeCount())
	}
	if _, ok := g.Node("unused"); ok {
		t.Error("Expected unreferenced object to be excluded")
	}
	if g.EdgeCount() != 0 {
		t.Errorf("Expected no edges for an empty selection, got %d", g.EdgeCount())
	}
}

func TestGenerateEmptyLog(t *testing.T) {
	log := buildLog(t, nil, nil)

	g, err := Generate(context.Background(), log, AllRelations())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if g.NodeCount() != 0 || g.EdgeCount() != 0 {
		t.Errorf("Expected an empty graph, got %d nodes and %d edges",
			g.NodeCount(), g.EdgeCount())
	}
}

func TestGenerateCooccurrence(t *testing.T) {
	log := buildLog(t,
		map[string]string{"a": "item", "b": "item", "c": "item"},
		[][]string{
			{"e1", "a", "b"},
			{"e2", "b", "c"},
			{"e3", "a", "c"},
		})

	g, err := Generate(context.Background(), log, []Relation{RelationCooccurrence})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if g.EdgeCount() != 6 {
		t.Fatalf("Expected 6 directed edges for 3 pairs, got %d", g.EdgeCount())
	}
	requireEdge(t, g, "a", "b", RelationCooccurrence, 1, "e1")
	requireEdge(t, g, "b", "a", RelationCooccurrence, 1, "e1")
	requireEdge(t, g, "b", "c", RelationCooccurrence, 1, "e2")
	requireEdge(t, g, "c", "b", RelationCooccurrence, 1, "e2")
	requireEdge(t, g, "a", "c", RelationCooccurrence, 1, "e3")
	requireEdge(t, g, "c", "a", RelationCooccurrence, 1, "e3")
}

func TestGenerateCooccurrenceRepeated(t *testing.T) {
	log := buildLog(t,
		map[string]string{"a": "item", "b": "item"},
		[][]string{
			{"e1", "a", "b"},
			{"e2", "b", "a"},
		})

	g, err := Generate(context.Background(), log, []Relation{RelationCooccurrence})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	requireEdge(t, g, "a", "b", RelationCooccurrence, 2, "e1", "e2")
	requireEdge(t, g, "b", "a", RelationCooccurrence, 2, "e1", "e2")
}

func TestGenerateDescendant(t *testing.T) {
	log := buildLog(t,
		map[string]string{"a": "item", "b": "item", "c": "item"},
		[][]string{
			{"e1", "a"},
			{"e2", "b"},
			{"e3", "c"},
		})

	g, err := Generate(context.Background(), log, []Relation{RelationDescendant})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if g.EdgeCount() != 3 {
		t.Fatalf("Expected 3 descendant edges, got %d", g.EdgeCount())
	}
	requireEdge(t, g, "a", "b", RelationDescendant, 1, "e1")
	requireEdge(t, g, "a", "c", RelationDescendant, 1, "e1")
	requireEdge(t, g, "b", "c", RelationDescendant, 1, "e2")
}

func TestGenerateDescendantWeights(t *testing.T) {
	log := buildLog(t,
		map[string]string{"a": "item", "b": "item"},
		[][]string{
			{"e1", "a"},
			{"e2", "a"},
			{"e3", "b"},
		})

	g, err := Generate(context.Background(), log, []Relation{RelationDescendant})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// Two appearances of a precede b's first event; evidence stays the
	// earliest one only.
	requireEdge(t, g, "a", "b", RelationDescendant, 2, "e1")
	edge, _ := g.Edge("a", "b", RelationDescendant)
	if edge.HasEvidence("e2") {
		t.Errorf("Expected only the earliest appearance as evidence, got %v", edge.Evidence())
	}
	if _, ok := g.Edge("b", "a", RelationDescendant); ok {
		t.Error("Expected no edge toward an object born earlier")
	}
}

func TestGenerateInheritance(t *testing.T) {
	log := buildLog(t,
		map[string]string{"a": "item", "b": "item", "o": "order"},
		[][]string{
			{"e1", "a", "o", "b"},
			{"e2", "b", "a"},
		})

	g, err := Generate(context.Background(), log, []Relation{RelationInheritance})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// Direction fixed by reference order at the first shared event; the
	// later event with reversed order changes nothing. Cross-type pairs
	// never inherit.
	if g.EdgeCount() != 1 {
		t.Fatalf("Expected 1 inheritance edge, got %d", g.EdgeCount())
	}
	requireEdge(t, g, "a", "b", RelationInheritance, 1, "e1")
}

func TestGenerateSelfReference(t *testing.T) {
	log := buildLog(t,
		map[string]string{"a": "item"},
		[][]string{{"e1", "a", "a"}})

	g, err := Generate(context.Background(), log, AllRelations())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if g.EdgeCount() != 0 {
		t.Errorf("Expected no self-loops, got %d edges", g.EdgeCount())
	}
}

func TestGenerateAllRelations(t *testing.T) {
	log := buildLog(t,
		map[string]string{"a": "item", "b": "item"},
		[][]string{
			{"e1", "a"},
			{"e2", "a", "b"},
		})

	g, err := Generate(context.Background(), log, AllRelations())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	requireEdge(t, g, "a", "b", RelationCooccurrence, 1, "e2")
	requireEdge(t, g, "b", "a", RelationCooccurrence, 1, "e2")
	requireEdge(t, g, "a", "b", RelationDescendant, 1, "e1")
	requireEdge(t, g, "a", "b", RelationInheritance, 1, "e2")
}

func TestGenerateDuplicateSelection(t *testing.T) {
	log := buildLog(t,
		map[string]string{"a": "item", "b": "item"},
		[][]string{{"e1", "a", "b"}})

	g, err := Generate(context.Background(), log,
		[]Relation{RelationCooccurrence, RelationCooccurrence})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// Duplicate selection entries must not double the weights.
	requireEdge(t, g, "a", "b", RelationCooccurrence, 1, "e1")
}

func TestGenerateUndeclaredObject(t *testing.T) {
	log := buildLog(t, map[string]string{"a": "item"}, nil)
	log.Events["e1"] = &ocel.Event{
		ID:        "e1",
		Activity:  "act",
		Timestamp: time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC),
		OMap:      []string{"a", "ghost"},
		VMap:      map[string]interface{}{},
	}

	_, err := Generate(context.Background(), log, AllRelations())
	if err == nil {
		t.Fatal("Expected an error for an undeclared object reference")
	}
	var dangling *DanglingReferenceError
	if !errors.As(err, &dangling) {
		t.Fatalf("Expected DanglingReferenceError, got %T", err)
	}
	if dangling.Object != "ghost" || dangling.Event != "e1" {
		t.Errorf("Unexpected error detail: %+v", dangling)
	}
}

func TestGenerateUnknownRelation(t *testing.T) {
	log := buildLog(t, map[string]string{"a": "item"}, [][]string{{"e1", "a"}})

	_, err := Generate(context.Background(), log, []Relation{Relation(42)})
	if err == nil {
		t.Fatal("Expected an error for a relation outside the catalog")
	}
	var unknown *UnknownRelationError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownRelationError, got %T", err)
	}
}
