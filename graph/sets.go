package graph

import (
	"sort"
	"strconv"
	"strings"
)

// StringSet is a set of strings for multi-valued attributes (labels,
// provenance). Set semantics live here; delimited joins happen only at the
// serialization boundary.
type StringSet map[string]struct{}

// NewStringSet builds a set from the given items.
func NewStringSet(items ...string) StringSet {
	s := make(StringSet, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Add inserts an item.
func (s StringSet) Add(item string) { s[item] = struct{}{} }

// Has reports membership.
func (s StringSet) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Union inserts every item of other.
func (s StringSet) Union(other StringSet) {
	for item := range other {
		s[item] = struct{}{}
	}
}

// Intersects reports whether the sets share an element.
func (s StringSet) Intersects(other StringSet) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for item := range small {
		if _, ok := large[item]; ok {
			return true
		}
	}
	return false
}

// Sorted returns the elements in lexicographic order.
func (s StringSet) Sorted() []string {
	items := make([]string, 0, len(s))
	for item := range s {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}

// Join renders the set as a deterministic delimited string.
func (s StringSet) Join(sep string) string {
	return strings.Join(s.Sorted(), sep)
}

// Clone returns an independent copy.
func (s StringSet) Clone() StringSet {
	c := make(StringSet, len(s))
	for item := range s {
		c[item] = struct{}{}
	}
	return c
}

// IntSet is a set of cluster ids.
type IntSet map[int]struct{}

// NewIntSet builds a set from the given items.
func NewIntSet(items ...int) IntSet {
	s := make(IntSet, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Add inserts an item.
func (s IntSet) Add(item int) { s[item] = struct{}{} }

// Has reports membership.
func (s IntSet) Has(item int) bool {
	_, ok := s[item]
	return ok
}

// Union inserts every item of other.
func (s IntSet) Union(other IntSet) {
	for item := range other {
		s[item] = struct{}{}
	}
}

// Intersects reports whether the sets share an element.
func (s IntSet) Intersects(other IntSet) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for item := range small {
		if _, ok := large[item]; ok {
			return true
		}
	}
	return false
}

// Sorted returns the elements in ascending order.
func (s IntSet) Sorted() []int {
	items := make([]int, 0, len(s))
	for item := range s {
		items = append(items, item)
	}
	sort.Ints(items)
	return items
}

// Key renders the set as a canonical string usable inside node identities.
func (s IntSet) Key() string {
	parts := make([]string, 0, len(s))
	for _, item := range s.Sorted() {
		parts = append(parts, strconv.Itoa(item))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Join renders the set as a deterministic delimited string.
func (s IntSet) Join(sep string) string {
	parts := make([]string, 0, len(s))
	for _, item := range s.Sorted() {
		parts = append(parts, strconv.Itoa(item))
	}
	return strings.Join(parts, sep)
}

// Clone returns an independent copy.
func (s IntSet) Clone() IntSet {
	c := make(IntSet, len(s))
	for item := range s {
		c[item] = struct{}{}
	}
	return c
}
