package embed

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// Store is a Provider backed by a SQLite database with a sqlite-vec virtual
// table. The vocabulary is bulk-loaded once from a text-format word2vec file
// and then served from disk with an in-memory read cache, so a full
// several-hundred-thousand-word model does not have to live in RAM.
// Lookups are safe for concurrent use.
type Store struct {
	db  *sql.DB
	dim int

	mu    sync.RWMutex
	cache map[string][]float64
}

// OpenStore opens (or creates) the vector store at dbPath with the given
// embedding dimension. Pass dim 0 to open an existing store with whatever
// dimension it was created with.
func OpenStore(dbPath string, dim int) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging vector store: %w", err)
	}

	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vector store schema: %w", err)
	}

	var stored int
	err = db.QueryRow("SELECT value FROM meta WHERE key = 'dim'").Scan(&stored)
	switch {
	case err == nil && dim > 0 && stored != dim:
		db.Close()
		return nil, fmt.Errorf("store %s has dimension %d, want %d", dbPath, stored, dim)
	case err == nil:
		dim = stored
	case err == sql.ErrNoRows && dim > 0:
		if _, err := db.Exec("INSERT INTO meta (key, value) VALUES ('dim', ?)", dim); err != nil {
			db.Close()
			return nil, err
		}
	case err == sql.ErrNoRows:
		db.Close()
		return nil, fmt.Errorf("store %s is empty and no dimension was given", dbPath)
	default:
		db.Close()
		return nil, fmt.Errorf("reading store dimension: %w", err)
	}

	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS vocab (
    id INTEGER PRIMARY KEY,
    token TEXT NOT NULL UNIQUE
);

CREATE VIRTUAL TABLE IF NOT EXISTS vec_words USING vec0(
    word_id INTEGER PRIMARY KEY,
    embedding float[%d]
);`, dim)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vector store schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	return &Store{db: db, dim: dim, cache: make(map[string][]float64)}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Dim implements Provider.
func (s *Store) Dim() int { return s.dim }

// Count returns the number of vocabulary entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vocab").Scan(&n)
	return n, err
}

// Vector implements Provider. Misses are cached as nil so repeated lookups
// of out-of-vocabulary lemmas stay cheap. The extraction phase calls this
// from many goroutines at once, so the cache sits behind a lock.
func (s *Store) Vector(lemma, upos string) ([]float64, bool) {
	key := Key(lemma, upos)
	s.mu.RLock()
	v, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return v, v != nil
	}

	var blob []byte
	err := s.db.QueryRow(`
		SELECT w.embedding FROM vec_words w
		JOIN vocab v ON v.id = w.word_id
		WHERE v.token = ?
	`, key).Scan(&blob)
	if err != nil {
		s.mu.Lock()
		s.cache[key] = nil
		s.mu.Unlock()
		return nil, false
	}

	v = deserializeFloat32(blob)
	s.mu.Lock()
	s.cache[key] = v
	s.mu.Unlock()
	return v, true
}

// Insert stores one vocabulary entry.
func (s *Store) Insert(ctx context.Context, token string, vector []float64) error {
	if len(vector) != s.dim {
		return fmt.Errorf("vector %q has dimension %d, want %d", token, len(vector), s.dim)
	}
	res, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO vocab (token) VALUES (?)", token)
	if err != nil {
		return fmt.Errorf("inserting token %q: %w", token, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if id == 0 {
		if err := s.db.QueryRowContext(ctx, "SELECT id FROM vocab WHERE token = ?", token).Scan(&id); err != nil {
			return err
		}
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO vec_words (word_id, embedding) VALUES (?, ?)",
		id, serializeFloat32(vector)); err != nil {
		return fmt.Errorf("inserting embedding for %q: %w", token, err)
	}
	return nil
}

// LoadWord2Vec bulk-loads a text-format word2vec model ("token v1 … vD" per
// line; an optional "count dim" header line is skipped). Returns the number
// of vectors loaded. Lines with the wrong dimension are rejected.
func (s *Store) LoadWord2Vec(ctx context.Context, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting load transaction: %w", err)
	}
	defer tx.Rollback()

	vocabStmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO vocab (token) VALUES (?)")
	if err != nil {
		return 0, err
	}
	defer vocabStmt.Close()
	vecStmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO vec_words (word_id, embedding) VALUES (?, ?)")
	if err != nil {
		return 0, err
	}
	defer vecStmt.Close()

	loaded := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if lineNo == 1 && len(fields) == 2 {
			// "count dim" header
			continue
		}
		if len(fields)-1 != s.dim {
			return loaded, fmt.Errorf("line %d: %d components, want %d", lineNo, len(fields)-1, s.dim)
		}
		vector := make([]float64, s.dim)
		for i, f := range fields[1:] {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return loaded, fmt.Errorf("line %d: bad component %q: %w", lineNo, f, err)
			}
			vector[i] = x
		}

		res, err := vocabStmt.ExecContext(ctx, fields[0])
		if err != nil {
			return loaded, fmt.Errorf("line %d: %w", lineNo, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return loaded, err
		}
		if id == 0 {
			if err := tx.QueryRowContext(ctx, "SELECT id FROM vocab WHERE token = ?", fields[0]).Scan(&id); err != nil {
				return loaded, err
			}
		}
		if _, err := vecStmt.ExecContext(ctx, id, serializeFloat32(vector)); err != nil {
			return loaded, fmt.Errorf("line %d: %w", lineNo, err)
		}
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return loaded, fmt.Errorf("reading word2vec input: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return loaded, fmt.Errorf("committing load transaction: %w", err)
	}
	return loaded, nil
}

func serializeFloat32(v []float64) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(f)))
	}
	return buf
}

func deserializeFloat32(buf []byte) []float64 {
	v := make([]float64, len(buf)/4)
	for i := range v {
		v[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
	}
	return v
}
