package graph

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/vbazhin/relgraph/extract"
)

func TestWriteGEXF(t *testing.T) {
	g := New(0)
	v := []float64{1, 0}
	addSentence(g, "the kremlin stands in moscow", 0,
		vtuple("kremlin", "stands in", "obl", "moscow", v, v))
	addSentence(g, "moscow, the capital", 0,
		stuple("moscow , capital", extract.RelIsA, "moscow", v, v))

	var buf bytes.Buffer
	if err := g.WriteGEXF(&buf); err != nil {
		t.Fatalf("WriteGEXF: %v", err)
	}
	out := buf.String()

	// Well-formed XML end to end.
	dec := xml.NewDecoder(strings.NewReader(out))
	nodes, edges := 0, 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("malformed XML: %v", err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			switch se.Name.Local {
			case "node":
				nodes++
			case "edge":
				edges++
			}
		}
	}

	// 3 argument nodes and 2 relation nodes, each relation contributing two
	// plain edges.
	if nodes != 5 {
		t.Errorf("nodes = %d, want 5", nodes)
	}
	if edges != 4 {
		t.Errorf("edges = %d, want 4", edges)
	}

	for _, want := range []string{
		`version="1.1"`,
		`value="argument"`,
		`value="relation"`,
		`r="255" g="0" b="0"`,     // verb relation
		`r="255" g="160" b="160"`, // is_a relation
		"stands in(",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestGEXFRelationNodeWeight(t *testing.T) {
	g := New(0)
	v := []float64{1, 0}
	addSentence(g, "s1", 0, vtuple("a1", "likes", "obj", "b1", v, v))
	addSentence(g, "s2", 0, vtuple("a1", "hates", "obj", "c1", v, v))

	// a1 has weight 2, b1 weight 1: the relation node takes the minimum.
	e := g.Edges()[0]
	if w := relationNodeWeight(g, e); w != 1 {
		t.Errorf("relation weight = %g, want 1", w)
	}
}
