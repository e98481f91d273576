package embed

import (
	"math"
	"reflect"
	"testing"
)

func TestKey(t *testing.T) {
	if got := Key("store", "NOUN"); got != "store_NOUN" {
		t.Errorf("Key = %q", got)
	}
}

func TestStatic(t *testing.T) {
	p, err := NewStatic(2, map[string][]float64{"go_VERB": {1, 2}})
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	if p.Dim() != 2 {
		t.Errorf("Dim = %d", p.Dim())
	}
	v, ok := p.Vector("go", "VERB")
	if !ok || !reflect.DeepEqual(v, []float64{1, 2}) {
		t.Errorf("Vector = %v, %v", v, ok)
	}
	if _, ok := p.Vector("go", "NOUN"); ok {
		t.Error("expected miss for wrong tag")
	}
}

func TestStaticDimensionMismatch(t *testing.T) {
	if _, err := NewStatic(3, map[string][]float64{"a_X": {1, 2}}); err == nil {
		t.Fatal("expected dimension error")
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 1},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, 2},
		{"scaled", []float64{1, 1}, []float64{5, 5}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CosineDistance(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("CosineDistance = %g, want %g", got, tc.want)
			}
		})
	}
}

func TestCosineDistanceZeroVector(t *testing.T) {
	if got := CosineDistance([]float64{0, 0}, []float64{1, 0}); !math.IsInf(got, 1) {
		t.Errorf("distance to zero vector = %g, want +Inf", got)
	}
}

func TestMean(t *testing.T) {
	got := Mean([]float64{1, 2}, []float64{3, 4})
	if !reflect.DeepEqual(got, []float64{2, 3}) {
		t.Errorf("Mean = %v", got)
	}
}

func TestIsZero(t *testing.T) {
	if !IsZero([]float64{0, 0, 0}) || !IsZero(nil) {
		t.Error("IsZero false negative")
	}
	if IsZero([]float64{0, 1e-12}) {
		t.Error("IsZero false positive")
	}
}
