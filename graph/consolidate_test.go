package graph

import (
	"math"
	"testing"
)

func TestSameLabelMerge(t *testing.T) {
	g := New(0)
	v := []float64{1, 0}
	// The same displayed fact lands in two clusters and therefore in two
	// node pairs.
	addSentence(g, "s1", 0, vtuple("cat", "eats", "obj", "fish", v, v))
	addSentence(g, "s2", 1, vtuple("cat", "eats", "obj", "fish", v, v))
	if g.NodeCount() != 4 {
		t.Fatalf("pre-merge nodes = %d", g.NodeCount())
	}
	nodeWeight, edgeWeight := g.TotalNodeWeight(), g.TotalEdgeWeight()

	g.Consolidate()

	if g.NodeCount() != 2 || g.EdgeCount() != 1 {
		t.Fatalf("post-merge counts = %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
	cat := findNode(t, g, "cat")
	if cat.Weight != 2 {
		t.Errorf("cat weight = %g, want 2", cat.Weight)
	}
	if !cat.Clusters.Has(0) || !cat.Clusters.Has(1) {
		t.Errorf("cat clusters = %v", cat.Clusters.Sorted())
	}
	if got := g.TotalNodeWeight(); got != nodeWeight {
		t.Errorf("node weight = %g, want %g", got, nodeWeight)
	}
	if got := g.TotalEdgeWeight(); got != edgeWeight {
		t.Errorf("edge weight = %g, want %g", got, edgeWeight)
	}
}

func TestArgumentMergeSimilarNodes(t *testing.T) {
	g := New(0.3)
	left := []float64{0, 1}
	a := []float64{1, 0}
	b := []float64{0.99, 0.1}
	addSentence(g, "s1", 0, vtuple("john", "visited", "obj", "moscow", left, a))
	addSentence(g, "s2", 0, vtuple("john", "visited", "obj", "moskva", left, b))

	g.Consolidate()

	// moscow and moskva share the relation, the cluster, and a small cosine
	// distance: one argument node remains.
	if g.NodeCount() != 2 {
		t.Fatalf("nodes = %d, want 2", g.NodeCount())
	}
	var merged *Node
	for _, n := range g.Nodes() {
		if n.Labels.Has("moscow") && n.Labels.Has("moskva") {
			merged = n
		}
	}
	if merged == nil {
		t.Fatal("no node carries both argument labels")
	}
	if merged.Weight != 2 {
		t.Errorf("merged weight = %g", merged.Weight)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("edges = %d, want 1", g.EdgeCount())
	}
	if e := g.Edges()[0]; e.Weight != 2 {
		t.Errorf("edge weight = %g, want 2", e.Weight)
	}
}

func TestArgumentMergeRespectsDistance(t *testing.T) {
	g := New(0.3)
	left := []float64{1, 1}
	addSentence(g, "s1", 0, vtuple("john", "visited", "obj", "moscow", left, []float64{1, 0}))
	addSentence(g, "s2", 0, vtuple("john", "visited", "obj", "berlin", left, []float64{0, 1}))

	g.Consolidate()

	// Orthogonal vectors sit at distance 1, far beyond the threshold.
	if g.NodeCount() != 3 {
		t.Fatalf("nodes = %d, want 3", g.NodeCount())
	}
}

func TestArgumentMergeZeroVectorNeverMerges(t *testing.T) {
	g := New(0.3)
	left := []float64{1, 1}
	zero := []float64{0, 0}
	addSentence(g, "s1", 0, vtuple("john", "visited", "obj", "moscow", left, zero))
	addSentence(g, "s2", 0, vtuple("john", "visited", "obj", "moskva", left, zero))

	g.Consolidate()
	if g.NodeCount() != 3 {
		t.Fatalf("nodes = %d, want 3", g.NodeCount())
	}
}

func TestArgumentMergeRespectsProvenance(t *testing.T) {
	g := New(0.3)
	left := []float64{1, 1}
	v := []float64{1, 0}
	// Both arguments come from the same sentence: never merged.
	addSentence(g, "shared", 0,
		vtuple("john", "visited", "obj", "moscow", left, v),
		vtuple("john", "visited", "obj", "moskva", left, v),
	)

	g.Consolidate()
	if g.NodeCount() != 3 {
		t.Fatalf("nodes = %d, want 3", g.NodeCount())
	}
}

func TestArgumentMergeRespectsDirectEdge(t *testing.T) {
	g := New(0.3)
	left := []float64{1, 1}
	v := []float64{1, 0}
	addSentence(g, "s1", 0, vtuple("john", "visited", "obj", "moscow", left, v))
	addSentence(g, "s2", 0, vtuple("john", "visited", "obj", "kremlin", left, v))
	addSentence(g, "s3", 0, vtuple("kremlin", "stands in", "obl", "moscow", v, v))

	g.Consolidate()

	// Directly connected nodes stay distinct regardless of similarity.
	if got := findNode(t, g, "moscow"); got.Labels.Has("kremlin") {
		t.Fatal("directly connected nodes were merged")
	}
}

func TestArgumentMergeDisjointClusters(t *testing.T) {
	g := New(0.3)
	left := []float64{1, 1}
	v := []float64{1, 0}
	addSentence(g, "s1", 0, vtuple("john", "visited", "obj", "moscow", left, v))
	addSentence(g, "s2", 1, vtuple("john", "visited", "obj", "moskva", left, v))

	g.Consolidate()

	// Each anchor sees only the candidate inside its own cluster, so the
	// similarity merge never fires across the cluster boundary.
	for _, n := range g.Nodes() {
		if n.Labels.Has("moscow") && n.Labels.Has("moskva") {
			t.Fatal("arguments from disjoint clusters were merged")
		}
	}
}

func TestParallelEdgeMerge(t *testing.T) {
	g := New(0.3)
	v1 := []float64{1, 0}
	v2 := []float64{0, 1}
	addSentence(g, "s1", 0, vtuple("kremlin", "stands in", "obl", "moscow", v1, v2))
	addSentence(g, "s2", 0, vtuple("kremlin", "located in", "obl", "moscow", v1, v2))

	g.Consolidate()

	if g.EdgeCount() != 1 {
		t.Fatalf("edges = %d, want 1", g.EdgeCount())
	}
	e := g.Edges()[0]
	if !e.Labels.Has("stands in") || !e.Labels.Has("located in") {
		t.Errorf("merged labels = %v", e.Labels.Sorted())
	}
	if e.Weight != 2 {
		t.Errorf("merged weight = %g, want 2", e.Weight)
	}
	if len(e.Provenance) != 2 {
		t.Errorf("merged provenance = %v", e.Provenance.Sorted())
	}
}

func TestParallelEdgeMergeRespectsProvenance(t *testing.T) {
	g := New(0.3)
	v1 := []float64{1, 0}
	v2 := []float64{0, 1}
	// Both relations asserted by one sentence: they must stay distinct.
	addSentence(g, "shared", 0,
		vtuple("kremlin", "stands in", "obl", "moscow", v1, v2),
		vtuple("kremlin", "located in", "obl", "moscow", v1, v2),
	)

	g.Consolidate()
	if g.EdgeCount() != 2 {
		t.Fatalf("edges = %d, want 2", g.EdgeCount())
	}
}

func TestParallelEdgeMergeAmbiguousLabel(t *testing.T) {
	g := New(0.3)
	v1 := []float64{1, 0}
	v2 := []float64{0, 1}
	// Same display label through different keys within one cluster is
	// ambiguous and must not collapse.
	addSentence(g, "s1", 0, vtuple("kremlin", "borders", "obl", "moscow", v1, v2))
	addSentence(g, "s2", 0, vtuple("kremlin", "borders", "obj", "moscow", v1, v2))

	g.Consolidate()
	if g.EdgeCount() != 2 {
		t.Fatalf("edges = %d, want 2", g.EdgeCount())
	}
}

func TestConsolidateIdempotent(t *testing.T) {
	g := New(0.3)
	left := []float64{0, 1}
	addSentence(g, "s1", 0, vtuple("john", "visited", "obj", "moscow", left, []float64{1, 0}))
	addSentence(g, "s2", 0, vtuple("john", "visited", "obj", "moskva", left, []float64{0.99, 0.1}))
	addSentence(g, "s3", 0, vtuple("kremlin", "stands in", "obl", "moscow", []float64{1, 1}, []float64{1, 0}))

	g.Consolidate()
	nodes, edges := g.NodeCount(), g.EdgeCount()
	g.Consolidate()
	if g.NodeCount() != nodes || g.EdgeCount() != edges {
		t.Fatalf("second pass changed counts: %d/%d -> %d/%d",
			nodes, edges, g.NodeCount(), g.EdgeCount())
	}
}

func TestConsolidateConservesWeight(t *testing.T) {
	g := New(0.3)
	left := []float64{0, 1}
	addSentence(g, "s1", 0, vtuple("john", "visited", "obj", "moscow", left, []float64{1, 0}))
	addSentence(g, "s2", 0, vtuple("john", "visited", "obj", "moskva", left, []float64{0.99, 0.1}))
	addSentence(g, "s3", 0, vtuple("kremlin", "stands in", "obl", "moscow", []float64{1, 1}, []float64{1, 0}))
	addSentence(g, "s4", 1, vtuple("john", "visited", "obj", "moscow", left, []float64{1, 0}))

	nodeWeight, edgeWeight := g.TotalNodeWeight(), g.TotalEdgeWeight()
	g.Consolidate()
	if got := g.TotalNodeWeight(); math.Abs(got-nodeWeight) > 1e-9 {
		t.Errorf("node weight = %g, want %g", got, nodeWeight)
	}
	if got := g.TotalEdgeWeight(); math.Abs(got-edgeWeight) > 1e-9 {
		t.Errorf("edge weight = %g, want %g", got, edgeWeight)
	}
}
