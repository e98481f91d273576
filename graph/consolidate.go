package graph

import (
	"log/slog"
	"sort"

	"github.com/vbazhin/relgraph/embed"
)

// Consolidate merges duplicate realizations across the whole document until
// no merge applies. Selection runs in priority order: literally identical
// facts first, then embedding-similar arguments sharing a relation, then
// parallel edges within a topic cluster. Every merge strictly reduces node
// or edge count, so the loop terminates.
func (g *Graph) Consolidate() {
	g.logCounts("consolidation start")
	for {
		if sets := g.sameLabelMergeSets(); len(sets) > 0 {
			for _, set := range sets {
				g.mergeNodes(set)
			}
			continue
		}

		nodes, edges := g.findMergeCandidates()
		if len(nodes) > 1 {
			g.mergeNodes(nodes)
			continue
		}
		if len(edges) > 1 {
			g.mergeEdges(edges)
			continue
		}
		break
	}
	g.logCounts("consolidation done")
}

// sameLabelMergeSets groups edges by (source label, relation label, target
// label): several edges realizing the same displayed fact mean duplicate
// source or target nodes. Each node joins at most one merge set per pass.
func (g *Graph) sameLabelMergeSets() [][]string {
	type labelTriple struct{ source, relation, target string }

	groups := make(map[labelTriple][]*Edge)
	var order []labelTriple
	for _, e := range g.edgesBySeq() {
		lt := labelTriple{
			source:   g.nodes[e.Source].Label(),
			relation: e.Label(),
			target:   g.nodes[e.Target].Label(),
		}
		if _, ok := groups[lt]; !ok {
			order = append(order, lt)
		}
		groups[lt] = append(groups[lt], e)
	}

	var res [][]string
	seen := make(map[string]bool)
	for _, lt := range order {
		edges := groups[lt]
		if len(edges) <= 1 {
			continue
		}
		var sources, targets []string
		sourceSeen := make(map[string]bool)
		targetSeen := make(map[string]bool)
		for _, e := range edges {
			if !seen[e.Source] && !sourceSeen[e.Source] {
				sourceSeen[e.Source] = true
				sources = append(sources, e.Source)
			}
			if !seen[e.Target] && !targetSeen[e.Target] {
				targetSeen[e.Target] = true
				targets = append(targets, e.Target)
			}
		}
		if len(sources) > 1 {
			res = append(res, sources)
		}
		if len(targets) > 1 {
			res = append(res, targets)
		}
		if len(sources) > 1 || len(targets) > 1 {
			for _, n := range sources {
				seen[n] = true
			}
			for _, n := range targets {
				seen[n] = true
			}
		}
	}
	return res
}

// findMergeCandidates scans edges in creation order and returns the first
// applicable argument merge set or parallel-edge merge set.
func (g *Graph) findMergeCandidates() ([]string, []*Edge) {
	for _, e := range g.edgesBySeq() {
		if targets := g.argumentMergeSet(e.Source, e.Key, true); len(targets) > 1 {
			slog.Debug("graph: right arguments to merge",
				"shared_left", g.nodes[e.Source].Label(), "relation", e.Label(), "count", len(targets))
			return targets, nil
		}
		if sources := g.argumentMergeSet(e.Target, e.Key, false); len(sources) > 1 {
			slog.Debug("graph: left arguments to merge",
				"shared_right", g.nodes[e.Target].Label(), "relation", e.Label(), "count", len(sources))
			return sources, nil
		}
		if edges := g.parallelEdgeMergeSet(e.Source, e.Target); len(edges) > 1 {
			slog.Debug("graph: parallel edges to merge",
				"source", g.nodes[e.Source].Label(), "target", g.nodes[e.Target].Label(), "count", len(edges))
			return nil, edges
		}
	}
	return nil, nil
}

// argumentMergeSet collects the nodes reachable from the anchor by exactly
// the given relation key (targets when outgoing, sources otherwise). Only
// non-structural relations qualify, and a candidate must share a topic
// cluster with the anchor.
func (g *Graph) argumentMergeSet(anchor, key string, outgoing bool) []string {
	anchorNode := g.nodes[anchor]
	var candidates []string
	for _, e := range g.edgesBySeq() {
		if e.Key != key || structuralLabel(e.Label()) {
			continue
		}
		var other string
		if outgoing && e.Source == anchor {
			other = e.Target
		} else if !outgoing && e.Target == anchor {
			other = e.Source
		} else {
			continue
		}
		if !anchorNode.Clusters.Intersects(g.nodes[other].Clusters) {
			continue
		}
		candidates = append(candidates, other)
	}
	candidates = dedupe(candidates)
	if len(candidates) < 2 {
		return nil
	}
	return g.filterMergeCandidates(candidates)
}

// filterMergeCandidates removes pairs that must not merge: directly
// connected nodes and nodes sharing a provenance sentence (one sentence
// cannot justify collapsing two of its own arguments). The remaining
// candidates must fall within the cosine-distance threshold of the
// highest-weight representative.
func (g *Graph) filterMergeCandidates(candidates []string) []string {
	alive := make(map[string]bool, len(candidates))
	for _, id := range candidates {
		alive[id] = true
	}
	for _, a := range candidates {
		for _, b := range candidates {
			if a == b || !alive[a] || !alive[b] {
				continue
			}
			if g.anyEdgeBetween(a, b) || g.nodes[a].Provenance.Intersects(g.nodes[b].Provenance) {
				alive[a] = false
				alive[b] = false
			}
		}
	}

	var rest []string
	for _, id := range candidates {
		if alive[id] {
			rest = append(rest, id)
		}
	}
	if len(rest) < 2 {
		return rest
	}

	sortByWeight(g, rest)
	main := g.nodes[rest[0]]
	res := []string{rest[0]}
	for _, id := range rest[1:] {
		if g.nodesDistance(main, g.nodes[id]) <= g.threshold {
			res = append(res, id)
		}
	}
	return res
}

// parallelEdgeMergeSet selects parallel edges between one node pair that can
// collapse into a single relation. Edge keys are grouped by topic cluster;
// a cluster where two edges share a display label is ambiguous and skipped.
// The first eligible cluster's keys are then gathered graph-wide, minus any
// pair of edges justified by the same sentence.
func (g *Graph) parallelEdgeMergeSet(source, target string) []*Edge {
	type entry struct {
		key, label string
		cluster    int
	}
	var entries []entry
	for _, e := range g.edgesBySeq() {
		if e.Source != source || e.Target != target || structuralLabel(e.Label()) {
			continue
		}
		for _, c := range e.Clusters.Sorted() {
			entries = append(entries, entry{key: e.Key, label: e.Label(), cluster: c})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].cluster != entries[j].cluster {
			return entries[i].cluster < entries[j].cluster
		}
		if entries[i].label != entries[j].label {
			return entries[i].label < entries[j].label
		}
		return entries[i].key < entries[j].key
	})

	var keys StringSet
	cluster := -1
	for i := 0; i < len(entries); {
		j := i
		for j < len(entries) && entries[j].cluster == entries[i].cluster {
			j++
		}
		group := entries[i:j]
		i = j
		if len(group) == 1 {
			continue
		}
		ambiguous := false
		for k := 1; k < len(group); k++ {
			if group[k].label == group[k-1].label {
				ambiguous = true
				break
			}
		}
		if ambiguous {
			continue
		}
		keys = NewStringSet()
		for _, en := range group {
			keys.Add(en.key)
		}
		cluster = group[0].cluster
		break
	}
	if keys == nil {
		return nil
	}

	var edges []*Edge
	for _, e := range g.edgesBySeq() {
		if keys.Has(e.Key) && e.Clusters.Has(cluster) {
			edges = append(edges, e)
		}
	}

	// Relations extracted from the same sentence must stay distinct.
	alive := make(map[*Edge]bool, len(edges))
	for _, e := range edges {
		alive[e] = true
	}
	for _, a := range edges {
		for _, b := range edges {
			if a == b || !alive[a] || !alive[b] {
				continue
			}
			if a.Provenance.Intersects(b.Provenance) {
				alive[a] = false
				alive[b] = false
			}
		}
	}
	var res []*Edge
	pairCount := make(map[edgeID]int)
	for _, e := range edges {
		if alive[e] {
			res = append(res, e)
			pairCount[edgeID{source: e.Source, target: e.Target}]++
		}
	}
	// The merge must actually collapse parallel edges somewhere, or the
	// consolidation loop would re-select the same set forever.
	for _, n := range pairCount {
		if n > 1 {
			return res
		}
	}
	return nil
}

// mergeNodes folds the lower-weight nodes into the highest-weight survivor
// under the union of their cluster sets and re-points every edge touching a
// donor. Node identity keys are fixed at creation, so the survivor keeps its
// id while its attribute sets grow.
func (g *Graph) mergeNodes(ids []string) {
	var nodes []*Node
	for _, id := range dedupe(ids) {
		if n, ok := g.nodes[id]; ok {
			nodes = append(nodes, n)
		}
	}
	if len(nodes) < 2 {
		return
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Weight != nodes[j].Weight {
			return nodes[i].Weight > nodes[j].Weight
		}
		return nodes[i].ID > nodes[j].ID
	})
	survivor, donors := nodes[0], nodes[1:]

	slog.Debug("graph: merging nodes", "survivor", survivor.Label(), "donors", len(donors))

	clusters := survivor.Clusters.Clone()
	for _, d := range donors {
		clusters.Union(d.Clusters)
	}
	survivor.Clusters = clusters
	for _, d := range donors {
		survivor.Labels.Union(d.Labels)
		survivor.Provenance.Union(d.Provenance)
		survivor.Weight += d.Weight
		survivor.Vector = embed.Mean(survivor.Vector, d.Vector)
	}

	donorSet := make(map[string]bool, len(donors))
	for _, d := range donors {
		donorSet[d.ID] = true
	}
	for _, e := range g.edgesBySeq() {
		if !donorSet[e.Source] && !donorSet[e.Target] {
			continue
		}
		source, target := e.Source, e.Target
		if donorSet[source] {
			source = survivor.ID
		}
		if donorSet[target] {
			target = survivor.ID
		}
		delete(g.edges, edgeID{e.Source, e.Target, e.Key})
		g.upsertEdge(source, target, e.Key,
			e.Labels, e.Lemmas, e.DepRels, e.Provenance, e.Weight, clusters)
	}
	for _, d := range donors {
		delete(g.nodes, d.ID)
	}
}

// mergeEdges collapses the selected edges: label, lemma, and deprel sets are
// unioned across the whole selection, while weight, provenance, and clusters
// accumulate per node pair, so total edge weight is conserved.
func (g *Graph) mergeEdges(edges []*Edge) {
	labels := NewStringSet()
	lemmas := NewStringSet()
	deprels := NewStringSet()
	for _, e := range edges {
		labels.Union(e.Labels)
		lemmas.Union(e.Lemmas)
		deprels.Union(e.DepRels)
	}
	key := lemmas.Join(" | ") + " + " + deprels.Join(" | ")

	slog.Debug("graph: merging edges", "count", len(edges), "label", labels.Join(" | "))

	type pair struct{ source, target string }
	grouped := make(map[pair][]*Edge)
	var order []pair
	for _, e := range edges {
		p := pair{e.Source, e.Target}
		if _, ok := grouped[p]; !ok {
			order = append(order, p)
		}
		grouped[p] = append(grouped[p], e)
	}

	for _, p := range order {
		provenance := NewStringSet()
		clusters := NewIntSet()
		var weight float64
		for _, e := range grouped[p] {
			provenance.Union(e.Provenance)
			clusters.Union(e.Clusters)
			weight += e.Weight
			delete(g.edges, edgeID{e.Source, e.Target, e.Key})
		}
		g.upsertEdge(p.source, p.target, key, labels, lemmas, deprels, provenance, weight, clusters)
	}
}

func sortByWeight(g *Graph, ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := g.nodes[ids[i]], g.nodes[ids[j]]
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return a.ID > b.ID
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var res []string
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			res = append(res, id)
		}
	}
	return res
}
