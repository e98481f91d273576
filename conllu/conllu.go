// Package conllu deserializes dependency-parsed sentences from the CoNLL-U
// format into an immutable, index-addressed tree model. Tagging and parsing
// themselves happen upstream; this package only consumes their output and
// validates its structural invariants.
package conllu

import (
	"fmt"
	"strconv"
	"strings"
)

// Root is the id of the artificial root word present in every sentence.
const Root = 0

// Word is one token of a parsed sentence. Words are stored in an ordered
// slice indexed by id, so head lookup and child expansion are plain slice
// indexing with no back-pointers.
type Word struct {
	ID       int
	Form     string
	Lemma    string
	UPos     string
	DepRel   string
	Head     int
	Children []int
}

// Sentence is a read-only view over one parsed sentence. Words[0] is the
// artificial root; real tokens occupy ids 1..n in surface order.
type Sentence struct {
	Text  string
	Words []Word
}

// Word returns the word with the given id.
func (s *Sentence) Word(id int) *Word {
	return &s.Words[id]
}

// Parse reads a CoNLL-U document and returns its sentences. Multiword-token
// ranges (3-4) and empty nodes (3.1) are skipped: the tree is defined over
// basic ids only. Each sentence is validated to form a single rooted tree.
func Parse(data string) ([]Sentence, error) {
	var sentences []Sentence
	for i, block := range strings.Split(data, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		sent, err := parseSentence(block)
		if err != nil {
			return nil, fmt.Errorf("sentence %d: %w", i+1, err)
		}
		if len(sent.Words) <= 1 {
			continue
		}
		sentences = append(sentences, sent)
	}
	return sentences, nil
}

func parseSentence(block string) (Sentence, error) {
	type row struct {
		id               int
		form, lemma      string
		upos, deprel     string
		head             int
	}

	var text string
	var rows []row

	for _, line := range strings.Split(block, "\n") {
		if strings.HasPrefix(line, "#") {
			if rest, ok := strings.CutPrefix(line, "# text ="); ok {
				text = strings.TrimSpace(rest)
			}
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 8 {
			continue
		}
		// Multiword tokens and empty nodes carry range/decimal ids.
		if strings.ContainsAny(fields[0], "-.") {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return Sentence{}, fmt.Errorf("bad token id %q", fields[0])
		}
		head, err := strconv.Atoi(fields[6])
		if err != nil {
			return Sentence{}, fmt.Errorf("token %d: bad head %q", id, fields[6])
		}
		rows = append(rows, row{
			id:     id,
			form:   fields[1],
			lemma:  fields[2],
			upos:   fields[3],
			deprel: fields[7],
			head:   head,
		})
	}

	words := make([]Word, len(rows)+1)
	words[Root] = Word{ID: Root}
	for i, r := range rows {
		if r.id != i+1 {
			return Sentence{}, fmt.Errorf("non-contiguous token id %d (want %d)", r.id, i+1)
		}
		words[r.id] = Word{
			ID:     r.id,
			Form:   r.form,
			Lemma:  r.lemma,
			UPos:   r.upos,
			DepRel: r.deprel,
			Head:   r.head,
		}
	}
	for id := 1; id < len(words); id++ {
		head := words[id].Head
		if head < 0 || head >= len(words) {
			return Sentence{}, fmt.Errorf("token %d: head %d does not resolve", id, head)
		}
		words[head].Children = append(words[head].Children, id)
	}

	sent := Sentence{Text: text, Words: words}
	if sent.Text == "" {
		sent.Text = joinForms(words)
	}
	if err := validateTree(words); err != nil {
		return Sentence{}, err
	}
	return sent, nil
}

func joinForms(words []Word) string {
	forms := make([]string, 0, len(words)-1)
	for _, w := range words[1:] {
		forms = append(forms, w.Form)
	}
	return strings.Join(forms, " ")
}

// validateTree checks that every real word is reachable from the artificial
// root exactly once: a single rooted tree with no cycles. The extractor
// recurses over this structure and assumes it holds.
func validateTree(words []Word) error {
	rootChildren := 0
	for _, w := range words[1:] {
		if w.Head == Root {
			rootChildren++
		}
	}
	if rootChildren != 1 {
		return fmt.Errorf("expected exactly one root-attached word, found %d", rootChildren)
	}

	seen := make([]bool, len(words))
	stack := []int{Root}
	visited := 0
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			return fmt.Errorf("cycle through token %d", id)
		}
		seen[id] = true
		visited++
		stack = append(stack, words[id].Children...)
	}
	if visited != len(words) {
		return fmt.Errorf("%d of %d tokens unreachable from root (cycle?)", len(words)-visited, len(words))
	}
	return nil
}
