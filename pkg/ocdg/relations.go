// Package ocdg implements the object-centric dependency graph: the
// multi-relation graph model, the relation computation engine that derives
// it from an event log, and the decomposition engine that reduces it.
package ocdg

import "github.com/DerAndereJohannes/pmrs-cli/pkg/ocel"

// Relation identifies one kind in the closed relation catalog. Each kind
// carries its own pairwise computation rule; there is no open-ended
// plugin dispatch.
type Relation int

const (
	// RelationCooccurrence links every pair of objects that share an
	// event. Undirected by convention: materialized as two directed
	// edges with symmetric weights.
	RelationCooccurrence Relation = iota

	// RelationDescendant links A to B when some event references A
	// strictly before the first event referencing B.
	RelationDescendant

	// RelationInheritance links same-typed objects at their first shared
	// event, directed by reference order within that event.
	RelationInheritance
)

var relationNames = map[Relation]string{
	RelationCooccurrence: "cooccurrence",
	RelationDescendant:   "descendant",
	RelationInheritance:  "inheritance",
}

// AllRelations returns the full catalog. Iterating it is the default
// selection for graph generation.
func AllRelations() []Relation {
	return []Relation{RelationCooccurrence, RelationDescendant, RelationInheritance}
}

// ParseRelation maps a symbolic name back to its catalog member.
func ParseRelation(name string) (Relation, error) {
	for rel, n := range relationNames {
		if n == name {
			return rel, nil
		}
	}
	return 0, &UnknownRelationError{Name: name}
}

// String returns the symbolic name of the relation kind.
func (r Relation) String() string {
	if name, ok := relationNames[r]; ok {
		return name
	}
	return "unknown"
}

// Directed reports whether edges of this kind are semantically directed.
// Undirected kinds still store two directed edges per pair.
func (r Relation) Directed() bool {
	return r != RelationCooccurrence
}

// compute runs the kind's pairwise rule over the event total order and
// returns the kind's edge set as standalone records. The caller merges
// them into the shared graph at the join point.
func (r Relation) compute(events []*ocel.Event, objects map[string]*ocel.Object) []*Edge {
	switch r {
	case RelationCooccurrence:
		return computeCooccurrence(events)
	case RelationDescendant:
		return computeDescendant(events)
	case RelationInheritance:
		return computeInheritance(events, objects)
	}
	return nil
}
