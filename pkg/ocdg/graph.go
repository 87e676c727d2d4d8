package ocdg

import "sort"

// Node is an object in the dependency graph. Nodes are plain value
// records keyed by object ID; the graph never links them by pointer.
type Node struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// EdgeKey identifies an edge. At most one edge exists per key; repeated
// insertion merges into the existing record.
type EdgeKey struct {
	Source   string
	Target   string
	Relation Relation
}

// Edge is a directed, attributed dependency between two objects.
type Edge struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Relation Relation `json:"relation"`
	Weight   int      `json:"weight"`

	evidence map[string]bool // event IDs justifying the edge
}

// NewEdge creates a standalone edge record with explicit weight and
// evidence, for insertion via SetEdge.
func NewEdge(source, target string, relation Relation, weight int, evidence ...string) *Edge {
	e := &Edge{
		Source:   source,
		Target:   target,
		Relation: relation,
		Weight:   weight,
		evidence: make(map[string]bool, len(evidence)),
	}
	for _, id := range evidence {
		e.evidence[id] = true
	}
	return e
}

// Key returns the edge's identity.
func (e *Edge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target, Relation: e.Relation}
}

// Evidence returns the supporting event IDs in sorted order.
func (e *Edge) Evidence() []string {
	ids := make([]string, 0, len(e.evidence))
	for id := range e.evidence {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasEvidence reports whether the edge is justified by the given event.
func (e *Edge) HasEvidence(eventID string) bool {
	return e.evidence[eventID]
}

// mergeEvidence unions the other edge's evidence into this edge.
func (e *Edge) mergeEvidence(other *Edge) {
	for id := range other.evidence {
		e.evidence[id] = true
	}
}

// clone returns an independent copy of the edge.
func (e *Edge) clone() *Edge {
	c := NewEdge(e.Source, e.Target, e.Relation, e.Weight)
	c.mergeEvidence(e)
	return c
}

// Graph is a multi-relation directed graph over objects. The node set and
// edge set are index-based: edges reference nodes by ID only, and the
// invariant that every edge endpoint exists as a node is enforced on
// every mutation.
type Graph struct {
	nodes map[string]*Node
	edges map[EdgeKey]*Edge
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[EdgeKey]*Edge),
	}
}

// AddNode inserts a node, or returns the existing one for the same ID.
func (g *Graph) AddNode(node *Node) *Node {
	if existing, ok := g.nodes[node.ID]; ok {
		return existing
	}
	if node.Attributes == nil {
		node.Attributes = make(map[string]interface{})
	}
	g.nodes[node.ID] = node
	return node
}

// Node looks up a node by object ID.
func (g *Graph) Node(id string) (*Node, bool) {
	node, ok := g.nodes[id]
	return node, ok
}

// Nodes returns all nodes sorted by ID.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// AddEdge records one more supporting event for (source, target, relation).
// A new key starts at weight 1; an existing key gains weight 1 and the
// union of evidence. Endpoints must already be nodes.
func (g *Graph) AddEdge(source, target string, relation Relation, eventIDs ...string) error {
	if err := g.checkEndpoints(source, target); err != nil {
		return err
	}
	key := EdgeKey{Source: source, Target: target, Relation: relation}
	if existing, ok := g.edges[key]; ok {
		existing.Weight++
		for _, id := range eventIDs {
			existing.evidence[id] = true
		}
		return nil
	}
	g.edges[key] = NewEdge(source, target, relation, 1, eventIDs...)
	return nil
}

// SetEdge inserts a fully formed edge record. If the key already exists,
// weights add and evidence unions. Endpoints must already be nodes.
func (g *Graph) SetEdge(edge *Edge) error {
	if err := g.checkEndpoints(edge.Source, edge.Target); err != nil {
		return err
	}
	key := edge.Key()
	if existing, ok := g.edges[key]; ok {
		existing.Weight += edge.Weight
		existing.mergeEvidence(edge)
		return nil
	}
	g.edges[key] = edge.clone()
	return nil
}

func (g *Graph) checkEndpoints(source, target string) error {
	if _, ok := g.nodes[source]; !ok {
		return &DanglingReferenceError{Object: source, Source: source, Target: target}
	}
	if _, ok := g.nodes[target]; !ok {
		return &DanglingReferenceError{Object: target, Source: source, Target: target}
	}
	return nil
}

// Edge looks up the edge for (source, target, relation).
func (g *Graph) Edge(source, target string, relation Relation) (*Edge, bool) {
	edge, ok := g.edges[EdgeKey{Source: source, Target: target, Relation: relation}]
	return edge, ok
}

// Edges returns all edges sorted by (relation, source, target).
func (g *Graph) Edges() []*Edge {
	edges := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, e)
	}
	sortEdges(edges)
	return edges
}

// EdgeCount returns the number of edges across all relation kinds.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// EdgesByRelation returns the edges of one kind, sorted by (source, target).
func (g *Graph) EdgesByRelation(relation Relation) []*Edge {
	var edges []*Edge
	for key, e := range g.edges {
		if key.Relation == relation {
			edges = append(edges, e)
		}
	}
	sortEdges(edges)
	return edges
}

// Relations returns the relation kinds actually present, sorted.
func (g *Graph) Relations() []Relation {
	seen := make(map[Relation]bool)
	for key := range g.edges {
		seen[key.Relation] = true
	}
	relations := make([]Relation, 0, len(seen))
	for rel := range seen {
		relations = append(relations, rel)
	}
	sort.Slice(relations, func(i, j int) bool { return relations[i] < relations[j] })
	return relations
}

func sortEdges(edges []*Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Relation != edges[j].Relation {
			return edges[i].Relation < edges[j].Relation
		}
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
}
