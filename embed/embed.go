// Package embed resolves lemma+tag keys to fixed-size word vectors and
// provides the vector arithmetic the rest of the pipeline shares: phrase
// averaging and cosine distance with the zero-vector convention.
package embed

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Provider looks up the embedding vector for a lemma with a given
// part-of-speech tag. The second return is false when the vocabulary has no
// entry; callers treat misses as zero contributions.
type Provider interface {
	Vector(lemma, upos string) ([]float64, bool)
	Dim() int
}

// Key is the vocabulary key for a lemma+tag pair, e.g. "магазин_NOUN".
func Key(lemma, upos string) string {
	return fmt.Sprintf("%s_%s", lemma, upos)
}

// Static is an in-memory Provider backed by a plain map keyed by Key.
type Static struct {
	dim     int
	vectors map[string][]float64
}

// NewStatic creates a Static provider. Vectors of the wrong length are
// rejected at construction so lookups never have to re-check.
func NewStatic(dim int, vectors map[string][]float64) (*Static, error) {
	for k, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %q has dimension %d, want %d", k, len(v), dim)
		}
	}
	return &Static{dim: dim, vectors: vectors}, nil
}

// Vector implements Provider.
func (s *Static) Vector(lemma, upos string) ([]float64, bool) {
	v, ok := s.vectors[Key(lemma, upos)]
	return v, ok
}

// Dim implements Provider.
func (s *Static) Dim() int { return s.dim }

// IsZero reports whether every component of v is zero. A zero vector marks
// a phrase whose words all missed the vocabulary.
func IsZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// CosineDistance returns 1 - cos(a, b). A zero vector carries no signal, so
// its distance to anything is +Inf: similarity-based merging must never be
// justified by a missing embedding.
func CosineDistance(a, b []float64) float64 {
	if IsZero(a) || IsZero(b) {
		return math.Inf(1)
	}
	return 1 - floats.Dot(a, b)/(floats.Norm(a, 2)*floats.Norm(b, 2))
}

// Mean averages a and b element-wise into a fresh slice.
func Mean(a, b []float64) []float64 {
	res := make([]float64, len(a))
	floats.AddTo(res, a, b)
	floats.Scale(0.5, res)
	return res
}
