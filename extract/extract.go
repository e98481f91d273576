// Package extract walks dependency trees and emits relation tuples:
// (left argument, relation, right argument) spans grounded in the syntax of
// one sentence. The rules target a Universal Dependencies style label
// inventory and handle coordination, open clausal complements, copulas, and
// case markers explicitly; shallow surface patterns are never consulted.
package extract

import (
	"fmt"
	"log/slog"
	"unicode"
	"unicode/utf8"

	"github.com/vbazhin/relgraph/conllu"
	"github.com/vbazhin/relgraph/embed"
)

// Symbolic relation labels for structural (non-verbal) relations produced by
// the additional-relations pass.
const (
	RelIsA       = "is_a"
	RelRelatesTo = "relates_to"
)

// Relation is either a span of word ids (a verb or copula with its
// satellites, in reading order) or a symbolic structural label.
type Relation struct {
	IDs    []int
	Symbol string
}

// Symbolic reports whether the relation is a structural label rather than a
// verb span.
func (r Relation) Symbolic() bool { return r.Symbol != "" }

// Tuple is one extracted relation with both its id spans and the rendered
// string forms the graph layer keys on.
type Tuple struct {
	LeftIDs  []int
	Rel      Relation
	RightIDs []int

	Left           string
	LeftLemmas     string
	LeftVector     []float64
	RelationText   string
	RelationLemmas string
	Right          string
	RightLemmas    string
	RightDepRel    string
	RightVector    []float64
}

// SentenceTuples holds every tuple extracted from one sentence plus the
// sentence's averaged embedding vector. Immutable once built.
type SentenceTuples struct {
	Sentence *conllu.Sentence
	Text     string
	Vector   []float64
	Tuples   []Tuple
}

// Triples returns the (left, relation, right) string triples of the sentence.
func (st *SentenceTuples) Triples() [][3]string {
	res := make([][3]string, 0, len(st.Tuples))
	for _, t := range st.Tuples {
		res = append(res, [3]string{t.Left, t.RelationText, t.Right})
	}
	return res
}

// Extractor turns parsed sentences into relation tuples.
type Extractor struct {
	provider   embed.Provider
	stopwords  map[string]struct{}
	additional bool
}

// New creates an Extractor. stopwords filters out tuples whose argument
// lemmas are all stopwords; additional enables the is_a/relates_to
// decomposition pass over argument spans.
func New(provider embed.Provider, stopwords []string, additional bool) *Extractor {
	set := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		set[w] = struct{}{}
	}
	return &Extractor{provider: provider, stopwords: set, additional: additional}
}

// rawTuple is a tuple before rendering: pure id spans.
type rawTuple struct {
	left  []int
	rel   Relation
	right []int
}

// Extract emits the relation tuples of one sentence. The input tree must be
// valid (conllu.Parse guarantees this); the walk does not defend against
// cycles.
func (e *Extractor) Extract(sent *conllu.Sentence) *SentenceTuples {
	w := walker{sent: sent}

	var raw []rawTuple
	for i := 1; i < len(sent.Words); i++ {
		word := sent.Word(i)
		switch {
		case word.DepRel == "cop":
			raw = append(raw, w.copulaTuples(word)...)
		case word.UPos == "VERB":
			raw = append(raw, w.verbTuples(word)...)
		}
	}

	if e.additional {
		raw = append(raw, w.additionalPass(raw)...)
	}

	st := &SentenceTuples{
		Sentence: sent,
		Text:     sent.Text,
		Vector:   sentenceVector(sent, e.provider),
	}
	for _, rt := range raw {
		if e.isStopwords(sent, rt.left) || e.isStopwords(sent, rt.right) {
			continue
		}
		t := e.render(sent, rt)
		if t.Left == t.Right {
			// Reflexive tuples carry no information.
			continue
		}
		st.Tuples = append(st.Tuples, t)
	}

	slog.Debug("extract: sentence done",
		"tuples", len(st.Tuples), "words", len(sent.Words)-1,
		"text", sent.Text)
	return st
}

func (e *Extractor) render(sent *conllu.Sentence, rt rawTuple) Tuple {
	t := Tuple{
		LeftIDs:  rt.left,
		Rel:      rt.rel,
		RightIDs: rt.right,

		Left:           renderSpan(sent, rt.left, false),
		LeftLemmas:     renderSpan(sent, rt.left, true),
		LeftVector:     phraseVector(sent, rt.left, e.provider),
		RelationText:   renderRelation(sent, rt.rel, false),
		RelationLemmas: renderRelation(sent, rt.rel, true),
		Right:          renderSpan(sent, rt.right, false),
		RightLemmas:    renderSpan(sent, rt.right, true),
		RightVector:    phraseVector(sent, rt.right, e.provider),
	}
	if root := spanRoot(sent, rt.right); root != nil {
		t.RightDepRel = root.DepRel
	}
	return t
}

// isStopwords reports whether the span should be dropped: every lemma is a
// stopword, or the span is a single one-letter alphabetic token.
func (e *Extractor) isStopwords(sent *conllu.Sentence, ids []int) bool {
	all := true
	for _, id := range ids {
		if _, ok := e.stopwords[sent.Word(id).Lemma]; !ok {
			all = false
			break
		}
	}
	if all {
		return true
	}
	if len(ids) == 1 {
		lemma := sent.Word(ids[0]).Lemma
		if utf8.RuneCountInString(lemma) == 1 {
			r, _ := utf8.DecodeRuneInString(lemma)
			return unicode.IsLetter(r)
		}
	}
	return false
}

// walker carries the per-sentence recursive extraction state.
type walker struct {
	sent *conllu.Sentence
}

func (w *walker) word(id int) *conllu.Word { return w.sent.Word(id) }

// verbTuples emits the cross product of a verb's subjects and right
// arguments. A verb governing an open clausal complement is skipped: its
// arguments surface through the embedded verb's chain instead, which avoids
// duplicate tuples for raising/control constructions.
func (w *walker) verbTuples(verb *conllu.Word) []rawTuple {
	for _, cid := range verb.Children {
		if w.word(cid).DepRel == "xcomp" {
			return nil
		}
	}
	subjects := w.subjects(verb)
	var out []rawTuple
	for _, arg := range w.verbRightArgs(verb) {
		rel, arg := w.relation(verb, arg)
		for _, subj := range subjects {
			out = append(out, rawTuple{left: subj, rel: rel, right: arg})
		}
	}
	return out
}

// copulaTuples links a subject to the copula's predicate: the governor's
// subtree minus copulas and subjects forms the right argument.
func (w *walker) copulaTuples(cop *conllu.Word) []rawTuple {
	right := w.copulaRightArg(cop)
	rel := Relation{IDs: w.copulaSpan(cop)}
	var out []rawTuple
	for _, subj := range w.subjects(w.word(cop.Head)) {
		out = append(out, rawTuple{left: subj, rel: rel, right: right})
	}
	return out
}

// subjects finds nsubj/nsubj:pass children expanded to subtrees. A verb with
// no subject of its own inherits the governor's subjects when it is attached
// by conj or xcomp: later coordinated verbs and controlled verbs borrow the
// shared subject.
func (w *walker) subjects(word *conllu.Word) [][]int {
	var subj [][]int
	for _, cid := range word.Children {
		child := w.word(cid)
		if child.DepRel == "nsubj" || child.DepRel == "nsubj:pass" {
			subj = append(subj, w.subtree(child))
		}
	}
	if len(subj) == 0 && (word.DepRel == "conj" || word.DepRel == "xcomp") {
		return w.subjects(w.word(word.Head))
	}
	return subj
}

func isRightArgDepRel(deprel string) bool {
	switch deprel {
	case "obj", "iobj", "obl", "obl:agent", "iobl":
		return true
	}
	return false
}

// verbRightArgs collects object/oblique children as subtrees. An
// xcomp-attached verb extends (never replaces) its arguments with the
// governor's, and a verb coordinated under an xcomp-attached verb extends
// with the grandparent's, so "wants to buy milk" attributes milk to the
// whole chain.
func (w *walker) verbRightArgs(word *conllu.Word) [][]int {
	var args [][]int
	for _, cid := range word.Children {
		child := w.word(cid)
		if isRightArgDepRel(child.DepRel) {
			args = append(args, w.subtree(child))
		}
	}
	parent := w.word(word.Head)
	if word.DepRel == "xcomp" {
		args = append(args, w.verbRightArgs(parent)...)
	}
	if word.DepRel == "conj" && parent.DepRel == "xcomp" {
		args = append(args, w.verbRightArgs(w.word(parent.Head))...)
	}
	return args
}

// copulaRightArg is the copula governor's subtree minus every copula span
// attached to it and minus the governor's subject subtrees.
func (w *walker) copulaRightArg(cop *conllu.Word) []int {
	parent := w.word(cop.Head)
	ids := w.subtree(parent)
	for _, cid := range parent.Children {
		if w.word(cid).DepRel == "cop" {
			ids = subtractIDs(ids, w.copulaSpan(w.word(cid)))
		}
	}
	for _, subj := range w.subjects(parent) {
		ids = subtractIDs(ids, subj)
	}
	return ids
}

// relation builds the verb's relation span: prefix of case/aux/PART
// satellites, the verb, matching postfix, and — when a right argument is
// supplied — the argument's leading case marker detached from the argument
// and appended to the span ("go to [the] store" reads as relation "go to").
// Returns the span and the argument with the case marker removed.
func (w *walker) relation(word *conllu.Word, rightArg []int) (Relation, []int) {
	prefix := w.relationPrefix(word)
	postfix, trimmed := w.relationPostfix(word, rightArg)

	ids := make([]int, 0, len(prefix)+1+len(postfix))
	ids = append(ids, prefix...)
	ids = append(ids, word.ID)
	ids = append(ids, postfix...)
	return Relation{IDs: ids}, trimmed
}

func isRelationSatellite(child *conllu.Word) bool {
	return child.DepRel == "case" || child.DepRel == "aux" ||
		child.DepRel == "aux:pass" || child.UPos == "PART"
}

// relationPrefix collects satellites before the head. An xcomp-attached verb
// prepends its governor's full relation span, and a conjunct of an
// xcomp-attached verb prepends the grandparent's, so chained control verbs
// render as one multi-word relation ("wants to buy").
func (w *walker) relationPrefix(word *conllu.Word) []int {
	var prefix []int
	for _, cid := range word.Children {
		child := w.word(cid)
		if isRelationSatellite(child) && child.ID < word.ID {
			prefix = append(prefix, child.ID)
		}
	}
	parent := w.word(word.Head)
	if word.DepRel == "xcomp" {
		chain, _ := w.relation(parent, nil)
		prefix = append(chain.IDs, prefix...)
	}
	if word.DepRel == "conj" && parent.DepRel == "xcomp" {
		chain, _ := w.relation(w.word(parent.Head), nil)
		prefix = append(chain.IDs, prefix...)
	}
	return prefix
}

func (w *walker) relationPostfix(word *conllu.Word, rightArg []int) (postfix, trimmed []int) {
	for _, cid := range word.Children {
		child := w.word(cid)
		if isRelationSatellite(child) && child.ID > word.ID {
			postfix = append(postfix, child.ID)
		}
	}
	trimmed = rightArg
	if rightArg != nil {
		if caseID, ok := w.firstCase(rightArg); ok {
			postfix = append(postfix, caseID)
			trimmed = removeID(rightArg, caseID)
		}
	}
	return postfix, trimmed
}

// firstCase finds the lowest-positioned case-labeled word preceding the
// span's syntactic root.
func (w *walker) firstCase(ids []int) (int, bool) {
	root := spanRoot(w.sent, ids)
	if root == nil {
		return 0, false
	}
	for _, id := range ids {
		if id < root.ID && w.word(id).DepRel == "case" {
			return id, true
		}
	}
	return 0, false
}

// copulaSpan walks the governor's children up to the copula; a contiguous
// run of PART-tagged children immediately before it is included, any other
// child resets the run.
func (w *walker) copulaSpan(cop *conllu.Word) []int {
	parent := w.word(cop.Head)
	var parts []int
	for _, sid := range parent.Children {
		sib := w.word(sid)
		if sib.ID == cop.ID {
			return append(parts, sib.ID)
		}
		if sib.UPos == "PART" {
			parts = append(parts, sib.ID)
		} else {
			parts = nil
		}
	}
	return nil
}

// subtree expands a word to its full subtree in original word order:
// lower-id children first, then the word, then higher-id children.
func (w *walker) subtree(word *conllu.Word) []int {
	if len(word.Children) == 0 {
		return []int{word.ID}
	}
	var ids []int
	for _, cid := range word.Children {
		if cid < word.ID {
			ids = append(ids, w.subtree(w.word(cid))...)
		}
	}
	ids = append(ids, word.ID)
	for _, cid := range word.Children {
		if cid > word.ID {
			ids = append(ids, w.subtree(w.word(cid))...)
		}
	}
	return ids
}

// spanRoot is the word of the span whose governor lies outside it.
func spanRoot(sent *conllu.Sentence, ids []int) *conllu.Word {
	var root *conllu.Word
	for _, id := range ids {
		w := sent.Word(id)
		if !containsID(ids, w.Head) {
			root = w
		}
	}
	return root
}

// additionalPass decomposes every distinct argument span of the base tuples
// into a shallow ontology of is_a and relates_to relations.
func (w *walker) additionalPass(base []rawTuple) []rawTuple {
	seen := make(map[string]struct{})
	var out []rawTuple
	for _, rt := range base {
		for _, span := range [][]int{rt.left, rt.right} {
			key := fmt.Sprint(span)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, w.additionalTuples(span)...)
		}
	}
	return out
}

// additionalTuples splits a span on appos/flat/conj children (is_a), then on
// nmod children (relates_to), recursing on both the split-off descendants and
// the residual phrase. A multi-word span with no split collapses to its
// syntactic root: "the residual phrase" is an instance of its head word.
func (w *walker) additionalTuples(ids []int) []rawTuple {
	root := spanRoot(w.sent, ids)
	if root == nil {
		return nil
	}

	var childrenInSpan []int
	for _, id := range ids {
		if containsID(root.Children, id) {
			childrenInSpan = append(childrenInSpan, id)
		}
	}

	var result []rawTuple
	mainPhrase := ids

	for _, cid := range childrenInSpan {
		switch w.word(cid).DepRel {
		case "appos", "flat", "flat:foreign", "flat:name", "conj":
			descendants := intersectIDs(ids, w.subtree(w.word(cid)))
			result = append(result, rawTuple{left: ids, rel: Relation{Symbol: RelIsA}, right: descendants})
			result = append(result, w.additionalTuples(descendants)...)
			mainPhrase = subtractIDs(mainPhrase, descendants)
		}
	}
	if len(ids) != len(mainPhrase) {
		result = append(result, rawTuple{left: ids, rel: Relation{Symbol: RelIsA}, right: mainPhrase})
		result = append(result, w.additionalTuples(mainPhrase)...)
		return result
	}

	before := len(mainPhrase)
	for _, cid := range childrenInSpan {
		if w.word(cid).DepRel == "nmod" {
			descendants := intersectIDs(ids, w.subtree(w.word(cid)))
			result = append(result, rawTuple{left: ids, rel: Relation{Symbol: RelRelatesTo}, right: descendants})
			result = append(result, w.additionalTuples(descendants)...)
			mainPhrase = subtractIDs(mainPhrase, descendants)
		}
	}
	if before != len(mainPhrase) {
		result = append(result, rawTuple{left: ids, rel: Relation{Symbol: RelIsA}, right: mainPhrase})
		result = append(result, w.additionalTuples(mainPhrase)...)
	} else if len(mainPhrase) > 1 {
		result = append(result, rawTuple{left: mainPhrase, rel: Relation{Symbol: RelIsA}, right: []int{root.ID}})
	}
	return result
}
