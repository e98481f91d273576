// Package relgraph turns dependency-parsed text into a consolidated
// knowledge graph. Sentences in CoNLL-U form are mined for relation tuples,
// grouped into topical clusters, folded into a multigraph of canonical
// entities, and consolidated by label- and similarity-driven merging.
package relgraph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vbazhin/relgraph/cluster"
	"github.com/vbazhin/relgraph/conllu"
	"github.com/vbazhin/relgraph/embed"
	"github.com/vbazhin/relgraph/extract"
	"github.com/vbazhin/relgraph/graph"
)

// Pipeline runs the full extraction pipeline with a fixed configuration and
// embedding provider. It is safe for concurrent use; each Run builds an
// independent graph.
type Pipeline struct {
	cfg      Config
	provider embed.Provider
}

// Result is the outcome of one pipeline run.
type Result struct {
	// Graph is the consolidated relation graph.
	Graph *graph.Graph

	// Triples maps each sentence text to its extracted
	// (left, relation, right) string triples, in extraction order.
	Triples map[string][][3]string

	// Sentences and Tuples count the processed input.
	Sentences int
	Tuples    int
}

// New builds a pipeline. The provider supplies word vectors for phrase
// similarity; it is required.
func New(provider embed.Provider, cfg Config) (*Pipeline, error) {
	if provider == nil {
		return nil, ErrNoEmbeddings
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.ExtractConcurrency <= 0 {
		cfg.ExtractConcurrency = DefaultConfig().ExtractConcurrency
	}
	return &Pipeline{cfg: cfg, provider: provider}, nil
}

// Run parses the CoNLL-U input and produces the consolidated graph.
func (p *Pipeline) Run(ctx context.Context, conlluText string) (*Result, error) {
	start := time.Now()

	sentences, err := conllu.Parse(conlluText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTree, err)
	}
	if len(sentences) == 0 {
		return nil, ErrNoSentences
	}
	slog.Info("pipeline: parsed input", "sentences", len(sentences))

	extracted, err := p.extractAll(ctx, sentences)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors := make([][]float64, len(extracted))
	for i, st := range extracted {
		vectors[i] = st.Vector
	}
	labels := cluster.Assign(vectors, cluster.Config{
		MinSize: p.cfg.MinClusterSize,
		MaxSize: p.cfg.MaxClusterSize,
		Step:    p.cfg.ClusterSizeStep,
	})

	g := graph.New(p.cfg.NodeDistanceThreshold)
	triples := make(map[string][][3]string, len(extracted))
	tuples := 0
	for i, st := range extracted {
		g.AddSentenceTuples(st, labels[i])
		triples[st.Text] = st.Triples()
		tuples += len(st.Tuples)
	}

	g.Consolidate()
	if p.cfg.EntityLimit > 0 {
		g.Filter(p.cfg.EntityLimit)
	}

	slog.Info("pipeline: done",
		"sentences", len(extracted),
		"tuples", tuples,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &Result{
		Graph:     g,
		Triples:   triples,
		Sentences: len(extracted),
		Tuples:    tuples,
	}, nil
}

// extractAll mines every sentence for tuples in parallel, preserving input
// order in the result.
func (p *Pipeline) extractAll(ctx context.Context, sentences []conllu.Sentence) ([]*extract.SentenceTuples, error) {
	ex := extract.New(p.provider, p.cfg.Stopwords, p.cfg.AdditionalRelations)

	var (
		wg   sync.WaitGroup
		sem  = make(chan struct{}, p.cfg.ExtractConcurrency)
		out  = make([]*extract.SentenceTuples, len(sentences))
		mu   sync.Mutex
		errs []error
	)
	for i := range sentences {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				errs = append(errs, fmt.Errorf("sentence %d: %w", i, ctx.Err()))
				mu.Unlock()
				return
			}

			out[i] = ex.Extract(&sentences[i])
		}(i)
	}
	wg.Wait()

	if len(errs) > 0 {
		return nil, errs[0]
	}
	return out, nil
}
