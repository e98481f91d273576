package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vbazhin/relgraph"
	"github.com/vbazhin/relgraph/embed"
)

func main() {
	conlluDir := flag.String("conllu-dir", "", "Directory with *.conllu files (required)")
	saveDir := flag.String("save-dir", ".", "Directory for the JSON and GEXF outputs")
	dbPath := flag.String("db", "relgraph.db", "Path to the word-vector store")
	embeddings := flag.String("embeddings", "", "word2vec text file to load into the store before running")
	stopwordsPath := flag.String("stopwords", "", "File with one stopword lemma per line")
	configPath := flag.String("config", "", "Path to config file (JSON)")
	additional := flag.Bool("add", false, "Extract additional is_a/relates_to relations")
	entitiesLimit := flag.Int("entities-limit", 0, "Keep at most this many entities (0 = no limit)")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	// Structured JSON logging.
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))

	if *conlluDir == "" {
		slog.Error("missing required flag", "flag", "conllu-dir")
		os.Exit(1)
	}

	cfg := relgraph.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			slog.Error("opening config", "error", err)
			os.Exit(1)
		}
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			f.Close()
			slog.Error("parsing config", "error", err)
			os.Exit(1)
		}
		f.Close()
	}
	cfg.AdditionalRelations = cfg.AdditionalRelations || *additional
	if *entitiesLimit > 0 {
		cfg.EntityLimit = *entitiesLimit
	}
	if *stopwordsPath != "" {
		words, err := readLines(*stopwordsPath)
		if err != nil {
			slog.Error("reading stopwords", "error", err)
			os.Exit(1)
		}
		cfg.Stopwords = append(cfg.Stopwords, words...)
	}

	if err := run(context.Background(), cfg, *conlluDir, *saveDir, *dbPath, *embeddings); err != nil {
		slog.Error("pipeline failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg relgraph.Config, conlluDir, saveDir, dbPath, embeddings string) error {
	store, err := openStore(ctx, dbPath, embeddings)
	if err != nil {
		return err
	}
	defer store.Close()

	text, err := readConllu(conlluDir)
	if err != nil {
		return err
	}

	pipeline, err := relgraph.New(store, cfg)
	if err != nil {
		return err
	}
	result, err := pipeline.Run(ctx, text)
	if err != nil {
		return err
	}

	base := filepath.Base(filepath.Clean(conlluDir))
	if err := writeJSON(filepath.Join(saveDir, "relations_"+base+".json"), result.Triples); err != nil {
		return err
	}
	if err := writeGEXF(filepath.Join(saveDir, "graph_"+base+".gexf"), result); err != nil {
		return err
	}

	slog.Info("done",
		"sentences", result.Sentences,
		"tuples", result.Tuples,
		"nodes", result.Graph.NodeCount(),
		"edges", result.Graph.EdgeCount())
	return nil
}

// openStore opens the vector store, loading a word2vec file first when one
// is given.
func openStore(ctx context.Context, dbPath, embeddings string) (*embed.Store, error) {
	dim := 0
	if embeddings != "" {
		d, err := word2vecDim(embeddings)
		if err != nil {
			return nil, err
		}
		dim = d
	}
	store, err := embed.OpenStore(dbPath, dim)
	if err != nil {
		return nil, err
	}
	if embeddings != "" {
		f, err := os.Open(embeddings)
		if err != nil {
			store.Close()
			return nil, err
		}
		defer f.Close()
		n, err := store.LoadWord2Vec(ctx, f)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("loading embeddings: %w", err)
		}
		slog.Info("loaded embeddings", "words", n, "dim", store.Dim())
	}
	return store, nil
}

// word2vecDim reads enough of a word2vec text file to determine the vector
// dimension, from either the count-dim header or the first data row.
func word2vecDim(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	buf := make([]byte, 64*1024)
	n, _ := f.Read(buf)
	lines := strings.SplitN(string(buf[:n]), "\n", 3)
	if len(lines) < 2 {
		return 0, fmt.Errorf("embeddings file %s: no data rows", path)
	}
	first := strings.Fields(lines[0])
	if len(first) == 2 {
		var dim int
		if _, err := fmt.Sscanf(first[1], "%d", &dim); err == nil && dim > 0 {
			return dim, nil
		}
	}
	if len(first) > 2 {
		return len(first) - 1, nil
	}
	return 0, fmt.Errorf("embeddings file %s: unrecognized format", path)
}

// readConllu concatenates every *.conllu file in the directory, sorted by
// name, into one document.
func readConllu(dir string) (string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.conllu"))
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("no .conllu files in %s", dir)
	}
	var sb strings.Builder
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", err
		}
		sb.Write(data)
		if !strings.HasSuffix(sb.String(), "\n\n") {
			sb.WriteString("\n\n")
		}
	}
	slog.Info("read input", "files", len(paths), "dir", dir)
	return sb.String(), nil
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	slog.Info("wrote relations", "path", path)
	return nil
}

func writeGEXF(path string, result *relgraph.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := result.Graph.WriteGEXF(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	slog.Info("wrote graph", "path", path)
	return nil
}
