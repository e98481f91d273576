package relgraph

// Config holds all configuration for the extraction pipeline.
type Config struct {
	// AdditionalRelations enables the second extraction pass that derives
	// symbolic is_a/relates_to tuples from appositions, names, and nominal
	// modifiers.
	AdditionalRelations bool `json:"additional_relations"`

	// EntityLimit caps the number of argument nodes kept after
	// consolidation. Zero disables pruning.
	EntityLimit int `json:"entity_limit"`

	// Clustering: candidate cluster counts are derived from average cluster
	// sizes swept from MinClusterSize to MaxClusterSize by ClusterSizeStep.
	MinClusterSize  int `json:"min_cluster_size"`
	MaxClusterSize  int `json:"max_cluster_size"`
	ClusterSizeStep int `json:"cluster_size_step"`

	// NodeDistanceThreshold is the cosine distance above which two argument
	// nodes are never merged.
	NodeDistanceThreshold float64 `json:"node_distance_threshold"`

	// ExtractConcurrency bounds parallel sentence extraction (default 16).
	ExtractConcurrency int `json:"extract_concurrency"`

	// Stopwords are lemmas dropped when they appear alone as an argument.
	Stopwords []string `json:"stopwords"`
}

// DefaultConfig returns a Config with the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MinClusterSize:        50,
		MaxClusterSize:        100,
		ClusterSizeStep:       10,
		NodeDistanceThreshold: 0.3,
		ExtractConcurrency:    16,
	}
}

func (c *Config) validate() error {
	if c.EntityLimit < 0 {
		return ErrInvalidConfig
	}
	if c.MinClusterSize < 0 || c.MaxClusterSize < c.MinClusterSize {
		return ErrInvalidConfig
	}
	if c.NodeDistanceThreshold < 0 {
		return ErrInvalidConfig
	}
	return nil
}
