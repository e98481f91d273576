package graph

import (
	"log/slog"
	"sort"
)

// Filter prunes the graph to at most budget nodes. Nodes are ranked by
// weight (ties broken toward earlier creation); a tentatively kept node
// whose only connections to other kept nodes are structural is evicted and
// the next-ranked node promoted, until a full pass changes nothing. Removed
// nodes are spliced out: same-label incoming and outgoing edges are bridged
// into direct predecessor→successor edges.
func (g *Graph) Filter(budget int) {
	if budget <= 0 || len(g.nodes) <= budget {
		return
	}
	g.logCounts("filter start")

	ranked := g.nodesBySeq()
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Weight > ranked[j].Weight
	})

	kept := make(map[string]bool, budget)
	keepList := make([]string, 0, budget)
	for _, n := range ranked[:budget] {
		kept[n.ID] = true
		keepList = append(keepList, n.ID)
	}
	next := budget

	for changed := true; changed; {
		changed = false
		for i, id := range keepList {
			if g.hasVerbLinkWithin(id, kept) {
				continue
			}
			delete(kept, id)
			keepList = append(keepList[:i], keepList[i+1:]...)
			if next < len(ranked) {
				kept[ranked[next].ID] = true
				keepList = append(keepList, ranked[next].ID)
				next++
			}
			changed = true
			break
		}
	}

	// Physical removal in ascending creation order keeps the splice-edge
	// outcome deterministic when removed nodes chain together.
	var toRemove []*Node
	for _, n := range g.nodesBySeq() {
		if !kept[n.ID] {
			toRemove = append(toRemove, n)
		}
	}
	for _, n := range toRemove {
		g.spliceOut(n.ID)
	}
	g.logCounts("filter done")
}

// hasVerbLinkWithin reports whether the node has at least one non-structural
// edge to another kept node.
func (g *Graph) hasVerbLinkWithin(id string, kept map[string]bool) bool {
	for _, e := range g.edgesBySeq() {
		if e.Source == id && kept[e.Target] && !structuralLabel(e.Label()) {
			return true
		}
		if e.Target == id && kept[e.Source] && !structuralLabel(e.Label()) {
			return true
		}
	}
	return false
}

// spliceOut removes one node, bridging every incoming edge to every outgoing
// edge that carries the same relation label so paths through the removed
// node survive as direct edges.
func (g *Graph) spliceOut(id string) {
	in := g.inEdges(id)
	out := g.outEdges(id)
	for _, pred := range in {
		for _, succ := range out {
			if pred.Label() != succ.Label() {
				continue
			}
			if pred.Source == id || succ.Target == id {
				// Self-loops bridge to nothing.
				continue
			}
			g.upsertEdge(pred.Source, succ.Target, succ.Key,
				succ.Labels, succ.Lemmas, succ.DepRels, succ.Provenance, succ.Weight, succ.Clusters)
		}
	}
	for _, e := range append(in, out...) {
		delete(g.edges, edgeID{e.Source, e.Target, e.Key})
	}
	delete(g.nodes, id)
	slog.Debug("graph: pruned node", "node", id)
}
