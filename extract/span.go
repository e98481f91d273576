package extract

import (
	"sort"
	"strings"
	"unicode"

	"github.com/vbazhin/relgraph/conllu"
	"github.com/vbazhin/relgraph/embed"
)

// allowedPunct is the punctuation kept by cleanString; everything else
// non-alphanumeric is stripped.
const allowedPunct = ",.;-—_/:%"

// trimSet is stripped from both ends of a rendered string.
const trimSet = " .,:;-"

// cleanString lowercases a rendered span and removes every rune that is not
// a letter, digit, whitespace, or allowed punctuation, then trims leading and
// trailing separator punctuation.
func cleanString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || strings.ContainsRune(allowedPunct, r) {
			b.WriteRune(r)
		}
	}
	return strings.Trim(strings.ToLower(b.String()), trimSet)
}

// renderSpan joins the chosen field of the span's words with spaces. Argument
// spans are rendered in ascending id order no matter how they were collected,
// so the output preserves the original word order.
func renderSpan(sent *conllu.Sentence, ids []int, lemmatized bool) string {
	sorted := make([]int, len(ids))
	copy(sorted, ids)
	sort.Ints(sorted)
	return renderIDs(sent, sorted, lemmatized)
}

// renderRelation joins relation words in span order: a relation span already
// encodes its reading order (chained governors first, detached case markers
// last) and must not be re-sorted.
func renderRelation(sent *conllu.Sentence, rel Relation, lemmatized bool) string {
	if rel.Symbol != "" {
		return rel.Symbol
	}
	return cleanString(renderIDsRaw(sent, rel.IDs, lemmatized))
}

func renderIDs(sent *conllu.Sentence, ids []int, lemmatized bool) string {
	return cleanString(renderIDsRaw(sent, ids, lemmatized))
}

func renderIDsRaw(sent *conllu.Sentence, ids []int, lemmatized bool) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		w := sent.Word(id)
		if lemmatized {
			parts = append(parts, strings.TrimSpace(w.Lemma))
		} else {
			parts = append(parts, strings.TrimSpace(w.Form))
		}
	}
	return strings.Join(parts, " ")
}

// phraseVector averages the embedding vectors of the span's words. Vocabulary
// misses contribute nothing; a span with no resolvable words yields the zero
// vector.
func phraseVector(sent *conllu.Sentence, ids []int, provider embed.Provider) []float64 {
	vector := make([]float64, provider.Dim())
	count := 0
	for _, id := range ids {
		w := sent.Word(id)
		v, ok := provider.Vector(w.Lemma, w.UPos)
		if !ok {
			continue
		}
		for i := range vector {
			vector[i] += v[i]
		}
		count++
	}
	if count > 0 {
		for i := range vector {
			vector[i] /= float64(count)
		}
	}
	return vector
}

// sentenceVector averages over every real word of the sentence.
func sentenceVector(sent *conllu.Sentence, provider embed.Provider) []float64 {
	ids := make([]int, 0, len(sent.Words)-1)
	for _, w := range sent.Words[1:] {
		ids = append(ids, w.ID)
	}
	return phraseVector(sent, ids, provider)
}

func containsID(ids []int, id int) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// intersectIDs keeps the elements of ids that are also in other, preserving
// the order of ids.
func intersectIDs(ids, other []int) []int {
	var res []int
	for _, id := range ids {
		if containsID(other, id) {
			res = append(res, id)
		}
	}
	return res
}

// subtractIDs removes the elements of other from ids, preserving order.
func subtractIDs(ids, other []int) []int {
	var res []int
	for _, id := range ids {
		if !containsID(other, id) {
			res = append(res, id)
		}
	}
	return res
}

func removeID(ids []int, id int) []int {
	var res []int
	for _, x := range ids {
		if x != id {
			res = append(res, x)
		}
	}
	return res
}
