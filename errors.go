package relgraph

import "errors"

var (
	// ErrNoSentences is returned when the input contains no parseable sentences.
	ErrNoSentences = errors.New("relgraph: no sentences in input")

	// ErrMalformedTree is returned when a sentence is not a single rooted
	// dependency tree.
	ErrMalformedTree = errors.New("relgraph: malformed dependency tree")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("relgraph: invalid configuration")

	// ErrNoEmbeddings is returned when a pipeline is built without an
	// embedding provider.
	ErrNoEmbeddings = errors.New("relgraph: embedding provider required")
)
