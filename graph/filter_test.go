package graph

import (
	"testing"

	"github.com/vbazhin/relgraph/extract"
)

func TestFilterNoop(t *testing.T) {
	g := New(0)
	v := []float64{1, 0}
	addSentence(g, "s1", 0, vtuple("a1", "likes", "obj", "b1", v, v))

	g.Filter(0)
	g.Filter(10)
	if g.NodeCount() != 2 || g.EdgeCount() != 1 {
		t.Fatalf("counts changed: %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
}

func TestFilterKeepsHeaviest(t *testing.T) {
	g := New(0)
	v := []float64{1, 0}
	for _, s := range []string{"s1", "s2", "s3"} {
		addSentence(g, s, 0, vtuple("alpha", "works at", "obl", "plant", v, v))
	}
	addSentence(g, "s4", 0, vtuple("gamma", "sees", "obj", "delta", v, v))

	g.Filter(2)

	if g.NodeCount() != 2 {
		t.Fatalf("nodes = %d, want 2", g.NodeCount())
	}
	findNode(t, g, "alpha")
	findNode(t, g, "plant")
}

func TestFilterEvictsStructuralOnly(t *testing.T) {
	g := New(0)
	v := []float64{1, 0}
	for _, s := range []string{"s1", "s2", "s3"} {
		addSentence(g, s, 0, vtuple("alpha", "works at", "obl", "plant", v, v))
	}
	for _, s := range []string{"s4", "s5"} {
		addSentence(g, s, 0, stuple("beta", extract.RelIsA, "alpha", v, v))
	}
	addSentence(g, "s6", 0, vtuple("gamma", "sees", "obj", "delta", v, v))

	g.Filter(3)

	// beta ranks third by weight but connects to the kept set only through
	// is_a; the promoted replacements link only to each other's evicted
	// partner, so the final graph keeps just the verb-linked pair.
	if g.NodeCount() != 2 {
		t.Fatalf("nodes = %d, want 2", g.NodeCount())
	}
	findNode(t, g, "alpha")
	findNode(t, g, "plant")
	if g.EdgeCount() != 1 {
		t.Errorf("edges = %d, want 1", g.EdgeCount())
	}
}

func TestFilterSplicesRemovedNode(t *testing.T) {
	g := New(0)
	v := []float64{1, 0}
	addSentence(g, "s1", 0,
		vtuple("spring", "flows into", "obl", "stream", v, v),
		vtuple("stream", "flows into", "obl", "river", v, v),
	)
	for _, s := range []string{"s2", "s3"} {
		addSentence(g, s, 0, vtuple("spring", "feeds", "obj", "river", v, v))
	}

	g.Filter(2)

	if g.NodeCount() != 2 {
		t.Fatalf("nodes = %d, want 2", g.NodeCount())
	}
	spring := nodeID("spring", NewIntSet(0))
	river := nodeID("river", NewIntSet(0))
	// The removed middle node bridges its same-label edges.
	if !g.hasEdge(spring, river, "flows into + obl") {
		t.Fatal("expected bridged edge spring -> river")
	}
	if !g.hasEdge(spring, river, "feeds + obj") {
		t.Fatal("expected surviving direct edge")
	}
	if g.EdgeCount() != 2 {
		t.Errorf("edges = %d, want 2", g.EdgeCount())
	}
}
