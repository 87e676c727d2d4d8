package ocdg

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/DerAndereJohannes/pmrs-cli/pkg/logging"
)

// Decompose reduces a graph to a smaller one with the same node set and
// the same per-relation reachability. Each relation kind is reduced
// independently: a direct edge A->B is redundant when some intermediate C
// carries both A->C and C->B and the two hops' combined evidence covers
// the direct edge's evidence. Weight and evidence of a removed edge are
// merged into the surviving witness path. Nodes are never removed, even
// when they end up edge-less.
//
// This is a local two-hop reduction, not a global minimum-edge transitive
// reduction. Removals are confirmed in a fixed edge order against the
// current edge set, and sweeps repeat until one removes nothing: evidence
// folded into a hop can turn it into a covering witness for another edge,
// and draining those follow-on removals here is what makes the whole
// operation idempotent. The fixed order keeps the result deterministic,
// and confirming against the current edge set keeps every kind's
// reachability intact on cyclic subgraphs.
func Decompose(ctx context.Context, g *Graph) (*Graph, error) {
	reduced := New()
	for _, node := range g.Nodes() {
		reduced.AddNode(&Node{ID: node.ID, Type: node.Type, Attributes: node.Attributes})
	}

	relations := g.Relations()
	results := make([][]*Edge, len(relations))
	group, ctx := errgroup.WithContext(ctx)
	for i, relation := range relations {
		i, relation := i, relation
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = reduceRelation(g, relation)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	for _, kept := range results {
		for _, edge := range kept {
			if err := reduced.SetEdge(edge); err != nil {
				return nil, err
			}
		}
	}
	return reduced, nil
}

// reduceRelation computes the surviving edges of one relation kind.
func reduceRelation(g *Graph, relation Relation) []*Edge {
	// Work on copies so merge bookkeeping never touches the input graph.
	edges := make(map[EdgeKey]*Edge)
	ordered := g.EdgesByRelation(relation)
	working := make([]*Edge, 0, len(ordered))
	for _, edge := range ordered {
		c := edge.clone()
		edges[c.Key()] = c
		working = append(working, c)
	}

	idx := newRelationIndex(g, relation)
	removed := 0

	// Sweep to a fixpoint. A removal enriches its witness hops, which can
	// make another edge coverable only on a later sweep.
	for {
		removedThisSweep := 0
		for _, edge := range working {
			if _, present := edges[edge.Key()]; !present {
				continue
			}
			witness, ok := coveringWitness(idx, edges, edge, relation)
			if !ok {
				continue
			}

			// Direct evidence of the intermediate hop supersedes the direct
			// edge: fold its weight and evidence into both surviving hops.
			firstHop := edges[EdgeKey{Source: edge.Source, Target: witness, Relation: relation}]
			secondHop := edges[EdgeKey{Source: witness, Target: edge.Target, Relation: relation}]
			firstHop.Weight += edge.Weight
			firstHop.mergeEvidence(edge)
			secondHop.Weight += edge.Weight
			secondHop.mergeEvidence(edge)

			idx.removeEdge(edge.Source, edge.Target)
			delete(edges, edge.Key())
			removedThisSweep++
		}
		if removedThisSweep == 0 {
			break
		}
		removed += removedThisSweep
	}

	if removed > 0 {
		logging.Debug("relation reduced",
			"relation", relation.String(), "removed", removed, "kept", len(edges))
	}

	kept := make([]*Edge, 0, len(edges))
	for _, edge := range edges {
		kept = append(kept, edge)
	}
	sortEdges(kept)
	return kept
}

// coveringWitness finds the first intermediate object C (by ID) such that
// A->C and C->B are still present and their combined evidence covers the
// direct edge's evidence. Removal depends only on the existence of such a
// witness, so the result does not depend on which one is found first.
func coveringWitness(idx *relationIndex, edges map[EdgeKey]*Edge, edge *Edge, relation Relation) (string, bool) {
	for _, intermediate := range idx.successors(edge.Source) {
		if intermediate == edge.Source || intermediate == edge.Target {
			continue
		}
		if !idx.hasEdge(intermediate, edge.Target) {
			continue
		}
		firstHop := edges[EdgeKey{Source: edge.Source, Target: intermediate, Relation: relation}]
		secondHop := edges[EdgeKey{Source: intermediate, Target: edge.Target, Relation: relation}]
		if coversEvidence(edge, firstHop, secondHop) {
			return intermediate, true
		}
	}
	return "", false
}

// coversEvidence reports whether the union of the hops' evidence contains
// every event justifying the direct edge.
func coversEvidence(direct, firstHop, secondHop *Edge) bool {
	for eventID := range direct.evidence {
		if !firstHop.evidence[eventID] && !secondHop.evidence[eventID] {
			return false
		}
	}
	return true
}
