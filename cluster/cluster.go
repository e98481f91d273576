// Package cluster assigns sentences to topical clusters by k-medoids over
// their embedding vectors, picking the cluster count whose silhouette score
// is best among a small set of size-driven candidates.
package cluster

import (
	"log/slog"
	"math"

	"github.com/vbazhin/relgraph/embed"
)

// Config bounds the average cluster size considered when choosing k.
type Config struct {
	MinSize int
	MaxSize int
	Step    int
}

// DefaultConfig returns the standard size sweep: average cluster sizes of
// 50 through 90 sentences.
func DefaultConfig() Config {
	return Config{MinSize: 50, MaxSize: 100, Step: 10}
}

// Assign labels every vector with a cluster id. Candidate cluster counts are
// n/size for each size in the configured sweep, MaxSize exclusive; the
// candidate with the best silhouette wins, later candidates taking ties.
// When no candidate yields at least two clusters the whole input is one
// cluster of zeros.
func Assign(vectors [][]float64, cfg Config) []int {
	if cfg.MinSize <= 0 || cfg.MaxSize < cfg.MinSize || cfg.Step <= 0 {
		cfg = DefaultConfig()
	}
	n := len(vectors)
	labels := make([]int, n)
	if n == 0 {
		return labels
	}

	dist := distanceMatrix(vectors)

	bestScore := math.Inf(-1)
	found := false
	for size := cfg.MinSize; size < cfg.MaxSize; size += cfg.Step {
		k := n / size
		if k < 2 {
			continue
		}
		candidate := kMedoids(dist, k)
		score := silhouette(dist, candidate, k)
		slog.Debug("cluster: candidate", "k", k, "silhouette", score)
		if score >= bestScore {
			bestScore = score
			copy(labels, candidate)
			found = true
		}
	}
	if !found {
		slog.Debug("cluster: input too small, single cluster", "sentences", n)
		for i := range labels {
			labels[i] = 0
		}
	}
	return labels
}

// distanceMatrix precomputes pairwise cosine distances. Unembeddable
// (all-zero) vectors sit at infinite distance from everything, which pushes
// them into whichever cluster claims them first without distorting medoids.
func distanceMatrix(vectors [][]float64) [][]float64 {
	n := len(vectors)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := embed.CosineDistance(vectors[i], vectors[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

// kMedoids runs a deterministic PAM-style alternation: farthest-first
// seeding from index 0, then repeat assignment and medoid recomputation
// until the medoid set stops moving.
func kMedoids(dist [][]float64, k int) []int {
	n := len(dist)
	medoids := seedMedoids(dist, k)
	labels := make([]int, n)

	for iter := 0; iter < 100; iter++ {
		assign(dist, medoids, labels)
		moved := false
		for c := 0; c < k; c++ {
			m := recomputeMedoid(dist, labels, c, medoids[c])
			if m != medoids[c] {
				medoids[c] = m
				moved = true
			}
		}
		if !moved {
			break
		}
	}
	assign(dist, medoids, labels)
	return labels
}

// seedMedoids picks index 0 and then repeatedly the point farthest from the
// chosen set. Infinite distances are capped so zero vectors never seed.
func seedMedoids(dist [][]float64, k int) []int {
	n := len(dist)
	medoids := make([]int, 1, k)
	medoids[0] = 0
	for len(medoids) < k {
		best, bestD := -1, -1.0
		for i := 0; i < n; i++ {
			if containsInt(medoids, i) {
				continue
			}
			d := math.Inf(1)
			for _, m := range medoids {
				if dist[i][m] < d {
					d = dist[i][m]
				}
			}
			if math.IsInf(d, 1) {
				d = 2 // beyond max cosine distance, but finite
			}
			if d > bestD {
				best, bestD = i, d
			}
		}
		if best < 0 {
			break
		}
		medoids = append(medoids, best)
	}
	return medoids
}

func assign(dist [][]float64, medoids []int, labels []int) {
	for i := range labels {
		bestC, bestD := 0, math.Inf(1)
		for c, m := range medoids {
			if dist[i][m] < bestD {
				bestC, bestD = c, dist[i][m]
			}
		}
		labels[i] = bestC
	}
}

// recomputeMedoid returns the member minimizing total distance to its
// cluster, keeping the current medoid on ties.
func recomputeMedoid(dist [][]float64, labels []int, c, current int) int {
	best, bestCost := current, math.Inf(1)
	for i := range labels {
		if labels[i] != c {
			continue
		}
		var cost float64
		for j := range labels {
			if labels[j] == c {
				cost += dist[i][j]
			}
		}
		if cost < bestCost || (cost == bestCost && i == current) {
			best, bestCost = i, cost
		}
	}
	return best
}

// silhouette is the mean silhouette coefficient: (b-a)/max(a,b) per point,
// where a is the mean distance within the point's cluster and b the smallest
// mean distance to another cluster. Singleton clusters score zero.
func silhouette(dist [][]float64, labels []int, k int) float64 {
	n := len(labels)
	sizes := make([]int, k)
	for _, l := range labels {
		sizes[l]++
	}

	var total float64
	for i := 0; i < n; i++ {
		li := labels[i]
		if sizes[li] <= 1 {
			continue
		}
		sums := make([]float64, k)
		for j := 0; j < n; j++ {
			if j != i {
				sums[labels[j]] += dist[i][j]
			}
		}
		a := sums[li] / float64(sizes[li]-1)
		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == li || sizes[c] == 0 {
				continue
			}
			if m := sums[c] / float64(sizes[c]); m < b {
				b = m
			}
		}
		if math.IsInf(b, 1) {
			continue
		}
		if d := math.Max(a, b); d > 0 {
			total += (b - a) / d
		}
	}
	return total / float64(n)
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
