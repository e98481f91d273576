package relgraph

import (
	"context"
	"errors"
	"testing"

	"github.com/vbazhin/relgraph/embed"
)

const testInput = `# text = Andrei went to the store and bought a coat
1	Andrei	andrei	PROPN	_	_	2	nsubj
2	went	go	VERB	_	_	0	root
3	to	to	ADP	_	_	5	case
4	the	the	DET	_	_	5	det
5	store	store	NOUN	_	_	2	obl
6	and	and	CCONJ	_	_	7	cc
7	bought	buy	VERB	_	_	2	conj
8	a	a	DET	_	_	9	det
9	coat	coat	NOUN	_	_	7	obj

# text = The sky is blue
1	The	the	DET	_	_	2	det
2	sky	sky	NOUN	_	_	4	nsubj
3	is	be	AUX	_	_	4	cop
4	blue	blue	ADJ	_	_	0	root
`

func newTestPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	provider, err := embed.NewStatic(4, nil)
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	p, err := New(provider, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestPipelineRun(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig())
	result, err := p.Run(context.Background(), testInput)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Sentences != 2 {
		t.Errorf("Sentences = %d, want 2", result.Sentences)
	}
	if result.Tuples != 3 {
		t.Errorf("Tuples = %d, want 3", result.Tuples)
	}
	if result.Graph.NodeCount() != 5 {
		t.Errorf("nodes = %d, want 5", result.Graph.NodeCount())
	}
	if result.Graph.EdgeCount() != 3 {
		t.Errorf("edges = %d, want 3", result.Graph.EdgeCount())
	}

	triples, ok := result.Triples["The sky is blue"]
	if !ok {
		t.Fatal("missing triples for copula sentence")
	}
	want := [3]string{"the sky", "is", "blue"}
	if len(triples) != 1 || triples[0] != want {
		t.Errorf("triples = %v, want [%v]", triples, want)
	}
}

func TestPipelineEntityLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EntityLimit = 2
	p := newTestPipeline(t, cfg)
	result, err := p.Run(context.Background(), testInput)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := result.Graph.NodeCount(); got > 2 {
		t.Errorf("nodes = %d, want at most 2", got)
	}
}

func TestPipelineNoSentences(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig())
	if _, err := p.Run(context.Background(), "\n\n"); !errors.Is(err, ErrNoSentences) {
		t.Fatalf("err = %v, want ErrNoSentences", err)
	}
}

func TestPipelineMalformedInput(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig())
	in := `1	a	a	VERB	_	_	0	root
2	b	b	NOUN	_	_	9	obj
`
	if _, err := p.Run(context.Background(), in); !errors.Is(err, ErrMalformedTree) {
		t.Fatalf("err = %v, want ErrMalformedTree", err)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, DefaultConfig()); !errors.Is(err, ErrNoEmbeddings) {
		t.Errorf("nil provider: err = %v", err)
	}

	provider, err := embed.NewStatic(2, nil)
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	cfg := DefaultConfig()
	cfg.EntityLimit = -1
	if _, err := New(provider, cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("negative entity limit: err = %v", err)
	}
	cfg = DefaultConfig()
	cfg.MaxClusterSize = cfg.MinClusterSize - 1
	if _, err := New(provider, cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("inverted cluster sizes: err = %v", err)
	}
}

func TestPipelineCancelledContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExtractConcurrency = 1
	p := newTestPipeline(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// A cancelled context may still win the semaphore race for early
	// sentences; the run must either finish or report the cancellation.
	if _, err := p.Run(ctx, testInput); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
