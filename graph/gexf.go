package graph

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/vbazhin/relgraph/extract"
)

// GEXF export flattens relation edges into synthetic relation nodes
// (source→relation→target) so the persisted graph is node-typed, with color
// hints separating structural relations from verb relations. The live graph
// is never mutated; the flattened view is built per write.

const (
	gexfNS    = "http://www.gexf.net/1.1draft"
	gexfVizNS = "http://www.gexf.net/1.1draft/viz"
)

type gexfColor struct {
	XMLName xml.Name `xml:"viz:color"`
	R       int      `xml:"r,attr"`
	G       int      `xml:"g,attr"`
	B       int      `xml:"b,attr"`
}

type gexfAttValue struct {
	XMLName xml.Name `xml:"attvalue"`
	For     string   `xml:"for,attr"`
	Value   string   `xml:"value,attr"`
}

type gexfNode struct {
	XMLName   xml.Name       `xml:"node"`
	ID        string         `xml:"id,attr"`
	Label     string         `xml:"label,attr"`
	AttValues []gexfAttValue `xml:"attvalues>attvalue"`
	Color     *gexfColor     `xml:",omitempty"`
}

type gexfEdge struct {
	XMLName xml.Name `xml:"edge"`
	ID      string   `xml:"id,attr"`
	Source  string   `xml:"source,attr"`
	Target  string   `xml:"target,attr"`
}

type gexfAttribute struct {
	XMLName xml.Name `xml:"attribute"`
	ID      string   `xml:"id,attr"`
	Title   string   `xml:"title,attr"`
	Type    string   `xml:"type,attr"`
}

type gexfAttributes struct {
	XMLName    xml.Name        `xml:"attributes"`
	Class      string          `xml:"class,attr"`
	Attributes []gexfAttribute `xml:"attribute"`
}

type gexfGraph struct {
	XMLName         xml.Name         `xml:"graph"`
	DefaultEdgeType string           `xml:"defaultedgetype,attr"`
	Attributes      []gexfAttributes `xml:"attributes"`
	Nodes           []gexfNode       `xml:"nodes>node"`
	Edges           []gexfEdge       `xml:"edges>edge"`
}

type gexfDoc struct {
	XMLName xml.Name  `xml:"gexf"`
	NS      string    `xml:"xmlns,attr"`
	VizNS   string    `xml:"xmlns:viz,attr"`
	Version string    `xml:"version,attr"`
	Graph   gexfGraph `xml:"graph"`
}

var gexfNodeAttributes = []gexfAttribute{
	{ID: "node_type", Title: "node_type", Type: "string"},
	{ID: "lemmas", Title: "lemmas", Type: "string"},
	{ID: "description", Title: "description", Type: "string"},
	{ID: "weight", Title: "weight", Type: "double"},
	{ID: "feat_type", Title: "feat_type", Type: "string"},
	{ID: "deprel", Title: "deprel", Type: "string"},
	{ID: "vector", Title: "vector", Type: "string"},
}

// WriteGEXF serializes the graph in GEXF 1.1draft form.
func (g *Graph) WriteGEXF(w io.Writer) error {
	doc := gexfDoc{
		NS:      gexfNS,
		VizNS:   gexfVizNS,
		Version: "1.1",
		Graph: gexfGraph{
			DefaultEdgeType: "directed",
			Attributes:      []gexfAttributes{{Class: "node", Attributes: gexfNodeAttributes}},
		},
	}

	for _, n := range g.nodesBySeq() {
		doc.Graph.Nodes = append(doc.Graph.Nodes, gexfNode{
			ID:    n.ID,
			Label: n.Label(),
			AttValues: []gexfAttValue{
				{For: "node_type", Value: "argument"},
				{For: "lemmas", Value: n.Lemmas},
				{For: "description", Value: n.Provenance.Join(" | ")},
				{For: "weight", Value: fmt.Sprintf("%g", n.Weight)},
				{For: "feat_type", Value: n.Clusters.Join(" | ")},
				{For: "vector", Value: fmt.Sprint(n.Vector)},
			},
		})
	}

	edgeSeq := 0
	nextEdgeID := func() string {
		edgeSeq++
		return fmt.Sprintf("e%d", edgeSeq)
	}
	for _, e := range g.edgesBySeq() {
		relID := fmt.Sprintf("%s(%s; %s)", e.Label(), e.Source, e.Target)
		doc.Graph.Nodes = append(doc.Graph.Nodes, gexfNode{
			ID:    relID,
			Label: e.Label(),
			AttValues: []gexfAttValue{
				{For: "node_type", Value: "relation"},
				{For: "lemmas", Value: e.Lemmas.Join(" | ")},
				{For: "description", Value: e.Provenance.Join(" | ")},
				{For: "weight", Value: fmt.Sprintf("%g", relationNodeWeight(g, e))},
				{For: "feat_type", Value: e.Clusters.Join(" | ")},
				{For: "deprel", Value: e.DepRels.Join(" | ")},
			},
			Color: relationColor(e),
		})
		doc.Graph.Edges = append(doc.Graph.Edges,
			gexfEdge{ID: nextEdgeID(), Source: e.Source, Target: relID},
			gexfEdge{ID: nextEdgeID(), Source: relID, Target: e.Target},
		)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding gexf: %w", err)
	}
	return enc.Close()
}

// relationNodeWeight mirrors the display convention: a relation is at most
// as prominent as its weaker endpoint.
func relationNodeWeight(g *Graph, e *Edge) float64 {
	sw := g.nodes[e.Source].Weight
	tw := g.nodes[e.Target].Weight
	if sw < tw {
		return sw
	}
	return tw
}

func relationColor(e *Edge) *gexfColor {
	switch {
	case e.Key == extract.RelIsA:
		return &gexfColor{R: 255, G: 160, B: 160}
	case e.Key == extract.RelRelatesTo:
		return &gexfColor{R: 160, G: 255, B: 160}
	default:
		return &gexfColor{R: 255, G: 0, B: 0}
	}
}
