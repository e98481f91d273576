package cluster

import (
	"reflect"
	"testing"
)

func TestAssignTwoBlobs(t *testing.T) {
	// Two tight direction blobs, interleaved.
	vectors := [][]float64{
		{1, 0.00}, {0.00, 1},
		{1, 0.01}, {0.01, 1},
		{1, 0.02}, {0.02, 1},
		{1, 0.03}, {0.03, 1},
	}
	labels := Assign(vectors, Config{MinSize: 2, MaxSize: 6, Step: 2})

	for i := 2; i < len(vectors); i += 2 {
		if labels[i] != labels[0] {
			t.Errorf("vector %d: label %d, want %d (first blob)", i, labels[i], labels[0])
		}
	}
	for i := 3; i < len(vectors); i += 2 {
		if labels[i] != labels[1] {
			t.Errorf("vector %d: label %d, want %d (second blob)", i, labels[i], labels[1])
		}
	}
	if labels[0] == labels[1] {
		t.Error("blobs share a label")
	}
}

func TestAssignUpperBoundExclusive(t *testing.T) {
	vectors := [][]float64{
		{1, 0.00}, {0.00, 1},
		{1, 0.01}, {0.01, 1},
		{1, 0.02}, {0.02, 1},
		{1, 0.03}, {0.03, 1},
	}
	// The sweep stops before MaxSize, so size 4 (k=2) is never evaluated
	// and the only candidate is k=4.
	labels := Assign(vectors, Config{MinSize: 2, MaxSize: 4, Step: 2})
	distinct := map[int]bool{}
	for _, l := range labels {
		distinct[l] = true
	}
	if len(distinct) != 4 {
		t.Errorf("got %d clusters, want 4: %v", len(distinct), labels)
	}
}

func TestAssignSmallInputSingleCluster(t *testing.T) {
	vectors := [][]float64{{1, 0}, {0, 1}, {1, 1}}
	labels := Assign(vectors, DefaultConfig())
	if !reflect.DeepEqual(labels, []int{0, 0, 0}) {
		t.Errorf("labels = %v, want all zeros", labels)
	}
}

func TestAssignEmpty(t *testing.T) {
	if labels := Assign(nil, DefaultConfig()); len(labels) != 0 {
		t.Errorf("labels = %v, want empty", labels)
	}
}

func TestAssignDeterministic(t *testing.T) {
	vectors := [][]float64{
		{1, 0}, {0.9, 0.1}, {0.8, 0.2},
		{0, 1}, {0.1, 0.9}, {0.2, 0.8},
	}
	cfg := Config{MinSize: 2, MaxSize: 3, Step: 1}
	first := Assign(vectors, cfg)
	second := Assign(vectors, cfg)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("runs differ: %v vs %v", first, second)
	}
}

func TestAssignInvalidConfigFallsBack(t *testing.T) {
	vectors := [][]float64{{1, 0}, {0, 1}}
	labels := Assign(vectors, Config{MinSize: -1})
	if !reflect.DeepEqual(labels, []int{0, 0}) {
		t.Errorf("labels = %v, want all zeros", labels)
	}
}

func TestSilhouettePerfectSplit(t *testing.T) {
	vectors := [][]float64{{1, 0}, {1, 0.01}, {0, 1}, {0.01, 1}}
	dist := distanceMatrix(vectors)
	good := silhouette(dist, []int{0, 0, 1, 1}, 2)
	bad := silhouette(dist, []int{0, 1, 0, 1}, 2)
	if good <= bad {
		t.Errorf("silhouette: good split %g not above bad split %g", good, bad)
	}
	if good <= 0.9 {
		t.Errorf("good split silhouette = %g, want near 1", good)
	}
}
