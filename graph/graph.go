// Package graph folds extracted relation tuples into a directed multigraph
// of canonical entities, then consolidates it: inheritance propagation,
// similarity- and label-driven merging, and rank-based pruning. All passes
// are deterministic fixpoint loops over one single-threaded mutable graph.
package graph

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vbazhin/relgraph/embed"
	"github.com/vbazhin/relgraph/extract"
)

// DefaultNodeDistanceThreshold is the cosine distance above which two nodes
// are never merged by the similarity-based argument merge.
const DefaultNodeDistanceThreshold = 0.3

// Node is a canonical entity. Its identity is fixed at creation from the
// lemmatized label and the cluster set of the first sighting; labels,
// provenance, and cluster membership keep growing afterwards.
type Node struct {
	ID         string
	Lemmas     string
	Labels     StringSet
	Provenance StringSet
	Weight     float64
	Vector     []float64
	Clusters   IntSet

	seq int
}

// Label is the display label: all surface realizations as alternatives.
func (n *Node) Label() string { return n.Labels.Join(" | ") }

// Edge is one keyed relation between two nodes. Parallel edges between the
// same node pair are distinct as long as their keys differ.
type Edge struct {
	Source, Target string
	Key            string
	Labels         StringSet
	Lemmas         StringSet
	DepRels        StringSet
	Provenance     StringSet
	Weight         float64
	Clusters       IntSet

	seq int
}

// Label is the display label of the relation.
func (e *Edge) Label() string { return e.Labels.Join(" | ") }

// Structural reports whether the edge carries an is_a/relates_to relation
// rather than a verb-derived one.
func (e *Edge) Structural() bool {
	return e.Key == extract.RelIsA || e.Key == extract.RelRelatesTo
}

func structuralLabel(label string) bool {
	return label == extract.RelIsA || label == extract.RelRelatesTo
}

type edgeID struct {
	source, target, key string
}

// Graph is the document-level relation multigraph.
type Graph struct {
	nodes map[string]*Node
	edges map[edgeID]*Edge

	// Cosine distance threshold for the argument merge.
	threshold float64

	nodeSeq, edgeSeq int
}

// New creates an empty graph with the given node-distance merge threshold;
// zero or negative selects the default.
func New(threshold float64) *Graph {
	if threshold <= 0 {
		threshold = DefaultNodeDistanceThreshold
	}
	return &Graph{
		nodes:     make(map[string]*Node),
		edges:     make(map[edgeID]*Edge),
		threshold: threshold,
	}
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Nodes returns all nodes in creation order.
func (g *Graph) Nodes() []*Node { return g.nodesBySeq() }

// Edges returns all edges in creation order.
func (g *Graph) Edges() []*Edge { return g.edgesBySeq() }

// TotalNodeWeight sums the node weights. Merging redistributes weight but
// never creates or destroys it.
func (g *Graph) TotalNodeWeight() float64 {
	var sum float64
	for _, n := range g.nodes {
		sum += n.Weight
	}
	return sum
}

// TotalEdgeWeight sums the edge weights.
func (g *Graph) TotalEdgeWeight() float64 {
	var sum float64
	for _, e := range g.edges {
		sum += e.Weight
	}
	return sum
}

// relationKey derives the edge key: symbolic relations key on their symbol,
// verb relations on lemma + the right argument's dependency label, so two
// syntactically different realizations stay distinguishable.
func relationKey(label, lemmas, deprel string) string {
	if structuralLabel(label) {
		return label
	}
	return lemmas + " + " + deprel
}

func nodeID(lemmas string, clusters IntSet) string {
	return fmt.Sprintf("%s + %s", lemmas, clusters.Key())
}

// AddSentenceTuples folds one sentence's tuples into the graph under the
// sentence's topic cluster, then propagates facts along is_a edges to a
// fixpoint.
func (g *Graph) AddSentenceTuples(st *extract.SentenceTuples, cluster int) {
	for i := range st.Tuples {
		t := &st.Tuples[i]
		source := g.upsertNode(t.LeftLemmas, st.Text, t.Left, t.LeftVector, cluster)
		target := g.upsertNode(t.RightLemmas, st.Text, t.Right, t.RightVector, cluster)
		key := relationKey(t.RelationText, t.RelationLemmas, t.RightDepRel)
		g.upsertEdge(source, target, key,
			NewStringSet(t.RelationText),
			NewStringSet(t.RelationLemmas),
			NewStringSet(t.RightDepRel),
			NewStringSet(st.Text),
			1, NewIntSet(cluster))
	}
	g.propagateInheritance()
}

// upsertNode creates the node on first sighting and folds attributes in on
// repeats: label and provenance union, weight increment, running-average
// vector, cluster union.
func (g *Graph) upsertNode(lemmas, provenance, label string, vector []float64, cluster int) string {
	id := nodeID(lemmas, NewIntSet(cluster))
	n, ok := g.nodes[id]
	if !ok {
		g.nodeSeq++
		v := make([]float64, len(vector))
		copy(v, vector)
		g.nodes[id] = &Node{
			ID:         id,
			Lemmas:     lemmas,
			Labels:     NewStringSet(label),
			Provenance: NewStringSet(provenance),
			Weight:     1,
			Vector:     v,
			Clusters:   NewIntSet(cluster),
			seq:        g.nodeSeq,
		}
		return id
	}
	n.Labels.Add(label)
	n.Provenance.Add(provenance)
	n.Clusters.Add(cluster)
	n.Vector = embed.Mean(n.Vector, vector)
	n.Weight++
	return id
}

// upsertEdge creates the keyed edge or, when it already exists, accumulates
// weight and unions provenance and clusters. Label/lemma/deprel sets are
// fixed at creation; only explicit edge merges rewrite them.
func (g *Graph) upsertEdge(source, target, key string, labels, lemmas, deprels, provenance StringSet, weight float64, clusters IntSet) {
	id := edgeID{source, target, key}
	e, ok := g.edges[id]
	if !ok {
		g.edgeSeq++
		g.edges[id] = &Edge{
			Source:     source,
			Target:     target,
			Key:        key,
			Labels:     labels.Clone(),
			Lemmas:     lemmas.Clone(),
			DepRels:    deprels.Clone(),
			Provenance: provenance.Clone(),
			Weight:     weight,
			Clusters:   clusters.Clone(),
			seq:        g.edgeSeq,
		}
		return
	}
	e.Provenance.Union(provenance)
	e.Clusters.Union(clusters)
	e.Weight += weight
}

func (g *Graph) hasEdge(source, target, key string) bool {
	_, ok := g.edges[edgeID{source, target, key}]
	return ok
}

// anyEdgeBetween reports whether the two nodes are directly connected in
// either direction by any edge.
func (g *Graph) anyEdgeBetween(a, b string) bool {
	for id := range g.edges {
		if (id.source == a && id.target == b) || (id.source == b && id.target == a) {
			return true
		}
	}
	return false
}

func (g *Graph) nodesBySeq() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].seq < nodes[j].seq })
	return nodes
}

func (g *Graph) edgesBySeq() []*Edge {
	edges := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].seq < edges[j].seq })
	return edges
}

func (g *Graph) inEdges(node string) []*Edge {
	var res []*Edge
	for _, e := range g.edgesBySeq() {
		if e.Target == node {
			res = append(res, e)
		}
	}
	return res
}

func (g *Graph) outEdges(node string) []*Edge {
	var res []*Edge
	for _, e := range g.edgesBySeq() {
		if e.Source == node {
			res = append(res, e)
		}
	}
	return res
}

// propagateInheritance duplicates every non-structural edge of an is_a
// predecessor onto the more general node: a fact stated about a specific
// mention also holds for its class. Runs to a fixpoint; only ever adds
// edges, so it terminates once every candidate combination exists.
func (g *Graph) propagateInheritance() {
	for added := 0; ; added = 0 {
		for _, node := range g.nodesBySeq() {
			var preds []string
			for _, e := range g.inEdges(node.ID) {
				if e.Key == extract.RelIsA {
					preds = append(preds, e.Source)
				}
			}
			for _, pred := range preds {
				for _, e := range g.inEdges(pred) {
					if e.Structural() || g.hasEdge(e.Source, node.ID, e.Key) {
						continue
					}
					g.upsertEdge(e.Source, node.ID, e.Key,
						e.Labels, e.Lemmas, e.DepRels, e.Provenance, e.Weight, e.Clusters)
					added++
				}
				for _, e := range g.outEdges(pred) {
					if e.Structural() || g.hasEdge(node.ID, e.Target, e.Key) {
						continue
					}
					g.upsertEdge(node.ID, e.Target, e.Key,
						e.Labels, e.Lemmas, e.DepRels, e.Provenance, e.Weight, e.Clusters)
					added++
				}
			}
		}
		if added == 0 {
			return
		}
	}
}

// nodesDistance is the cosine distance between node vectors; a node whose
// words all missed the vocabulary is infinitely far from everything.
func (g *Graph) nodesDistance(a, b *Node) float64 {
	return embed.CosineDistance(a.Vector, b.Vector)
}

func (g *Graph) logCounts(stage string) {
	slog.Info("graph: "+stage, "nodes", len(g.nodes), "edges", len(g.edges))
}
