package ocdg

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/DerAndereJohannes/pmrs-cli/pkg/logging"
	"github.com/DerAndereJohannes/pmrs-cli/pkg/ocel"
)

// Generate computes the dependency graph of a log over the selected
// relation kinds. The node set is exactly the objects referenced by at
// least one event, independent of the selection; the edge set is the
// union of each kind's computed edges. An empty selection yields all
// nodes and no edges. Relation kinds run in parallel and their disjoint
// edge sets are merged into the graph once all kinds have finished.
func Generate(ctx context.Context, log *ocel.Log, relations []Relation) (*Graph, error) {
	selected, err := normalizeSelection(relations)
	if err != nil {
		return nil, err
	}

	events := log.OrderedEvents()
	graph := New()

	// Node set first: objects referenced by no event are excluded, and a
	// reference to an undeclared object is an upstream contract violation.
	for _, event := range events {
		for _, objectID := range event.OMap {
			obj, ok := log.Objects[objectID]
			if !ok {
				return nil, &DanglingReferenceError{Event: event.ID, Object: objectID}
			}
			graph.AddNode(&Node{ID: obj.ID, Type: obj.Type, Attributes: obj.OvMap})
		}
	}

	logging.Debug("computing relations",
		"events", len(events), "objects", graph.NodeCount(), "kinds", len(selected))

	results := make([][]*Edge, len(selected))
	group, ctx := errgroup.WithContext(ctx)
	for i, relation := range selected {
		i, relation := i, relation
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = relation.compute(events, log.Objects)
			logging.Debug("relation computed", "relation", relation.String(), "edges", len(results[i]))
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Join point: each kind's edges are keyed disjointly by kind, so
	// sequential merge order does not affect the result.
	for _, edges := range results {
		for _, edge := range edges {
			if err := graph.SetEdge(edge); err != nil {
				return nil, err
			}
		}
	}

	return graph, nil
}

// normalizeSelection drops duplicates, rejects kinds outside the catalog,
// and fixes a deterministic order.
func normalizeSelection(relations []Relation) ([]Relation, error) {
	seen := make(map[Relation]bool)
	var selected []Relation
	for _, relation := range relations {
		if _, ok := relationNames[relation]; !ok {
			return nil, &UnknownRelationError{Name: fmt.Sprintf("relation(%d)", int(relation))}
		}
		if seen[relation] {
			continue
		}
		seen[relation] = true
		selected = append(selected, relation)
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i] < selected[j] })
	return selected, nil
}

// distinctRefs returns an event's object references with duplicates
// removed, preserving reference order. A repeated reference to the same
// object never produces a self-loop.
func distinctRefs(event *ocel.Event) []string {
	seen := make(map[string]bool, len(event.OMap))
	refs := make([]string, 0, len(event.OMap))
	for _, id := range event.OMap {
		if seen[id] {
			continue
		}
		seen[id] = true
		refs = append(refs, id)
	}
	return refs
}

// computeCooccurrence links every unordered pair of objects sharing an
// event. Each shared event adds weight 1 to both directions, so the pair
// weight equals the number of events referencing both.
func computeCooccurrence(events []*ocel.Event) []*Edge {
	edges := make(map[EdgeKey]*Edge)
	record := func(source, target, eventID string) {
		key := EdgeKey{Source: source, Target: target, Relation: RelationCooccurrence}
		if existing, ok := edges[key]; ok {
			existing.Weight++
			existing.evidence[eventID] = true
			return
		}
		edges[key] = NewEdge(source, target, RelationCooccurrence, 1, eventID)
	}

	for _, event := range events {
		refs := distinctRefs(event)
		for i := 0; i < len(refs); i++ {
			for j := i + 1; j < len(refs); j++ {
				record(refs[i], refs[j], event.ID)
				record(refs[j], refs[i], event.ID)
			}
		}
	}
	return collectEdges(edges)
}

// computeDescendant links A to B when A is referenced by some event
// strictly before the first event referencing B. B does not appear before
// its own first event, so no earlier event can reference both. The weight
// counts A's qualifying appearances; the evidence is the earliest one.
func computeDescendant(events []*ocel.Event) []*Edge {
	type appearances struct {
		first   int   // index of first referencing event
		indices []int // all referencing event indices, ascending
	}
	byObject := make(map[string]*appearances)
	order := make([]string, 0)

	for idx, event := range events {
		for _, objectID := range distinctRefs(event) {
			app, ok := byObject[objectID]
			if !ok {
				app = &appearances{first: idx}
				byObject[objectID] = app
				order = append(order, objectID)
			}
			app.indices = append(app.indices, idx)
		}
	}
	sort.Strings(order)

	var edges []*Edge
	for _, target := range order {
		firstOfTarget := byObject[target].first
		for _, source := range order {
			if source == target {
				continue
			}
			app := byObject[source]
			// Number of source appearances strictly before the target's birth.
			qualifying := sort.SearchInts(app.indices, firstOfTarget)
			if qualifying == 0 {
				continue
			}
			earliest := events[app.indices[0]]
			edges = append(edges, NewEdge(source, target, RelationDescendant, qualifying, earliest.ID))
		}
	}
	return edges
}

// computeInheritance links same-typed objects at their first shared
// event, directed by reference order within that event. Later shared
// events do not change the edge.
func computeInheritance(events []*ocel.Event, objects map[string]*ocel.Object) []*Edge {
	type pair struct{ a, b string }
	seen := make(map[pair]bool)
	var edges []*Edge

	for _, event := range events {
		refs := distinctRefs(event)
		for i := 0; i < len(refs); i++ {
			for j := i + 1; j < len(refs); j++ {
				earlier, later := refs[i], refs[j]
				if objects[earlier].Type != objects[later].Type {
					continue
				}
				key := pair{a: earlier, b: later}
				if earlier > later {
					key = pair{a: later, b: earlier}
				}
				if seen[key] {
					continue
				}
				seen[key] = true
				edges = append(edges, NewEdge(earlier, later, RelationInheritance, 1, event.ID))
			}
		}
	}
	return edges
}

func collectEdges(edges map[EdgeKey]*Edge) []*Edge {
	out := make([]*Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, e)
	}
	sortEdges(out)
	return out
}
