// Package index builds, persists and queries the passage embedding index.
// The index lives in a SQLite database under a named directory; rebuilding
// at the same location replaces the previous index.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"docchat/internal/llm"
	"docchat/internal/utils"
)

var (
	// ErrNotFound means no index has been built at the storage location.
	ErrNotFound = errors.New("no index found at storage location")
	// ErrCorrupt means persisted index data is unreadable or does not match
	// the configured embedding model.
	ErrCorrupt = errors.New("index data is corrupt or mismatched")
	// ErrEmpty means the index holds no passages.
	ErrEmpty = errors.New("index contains no passages")
)

const dbFileName = "passages.db"

// Passage is one indexed retrieval unit.
type Passage struct {
	Position  int
	Content   string
	Embedding []float32
}

// Result is a retrieved passage with its similarity to the query.
type Result struct {
	Position   int
	Content    string
	Similarity float32
}

// Builder embeds passages and persists them as a loadable index.
type Builder struct {
	embedder llm.Embedder
}

func NewBuilder(embedder llm.Embedder) *Builder {
	return &Builder{embedder: embedder}
}

// Build embeds every passage and writes the index to location, replacing any
// index already stored there.
func (b *Builder) Build(ctx context.Context, location string, passages []string) error {
	if err := os.MkdirAll(location, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(location, dbFileName)
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing previous index: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open index database: %w", err)
	}
	defer db.Close()

	schema := `
	CREATE TABLE meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE passages (
		position INTEGER PRIMARY KEY,
		content TEXT NOT NULL,
		embedding_json TEXT NOT NULL
	);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize index schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting index transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO passages (position, content, embedding_json) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing passage insert: %w", err)
	}
	defer stmt.Close()

	dimension := 0
	for i, content := range passages {
		embedding, err := b.embedder.Embed(ctx, content)
		if err != nil {
			return fmt.Errorf("embedding passage %d: %w", i, err)
		}
		if dimension == 0 {
			dimension = len(embedding)
		} else if len(embedding) != dimension {
			return fmt.Errorf("embedding dimension changed mid-build (%d vs %d)", len(embedding), dimension)
		}

		embeddingJSON, err := json.Marshal(embedding)
		if err != nil {
			return fmt.Errorf("encoding embedding %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, i, content, string(embeddingJSON)); err != nil {
			return fmt.Errorf("inserting passage %d: %w", i, err)
		}
	}

	metaStmt, err := tx.PrepareContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("preparing meta insert: %w", err)
	}
	defer metaStmt.Close()
	for key, value := range map[string]string{
		"embedding_model": b.embedder.ModelName(),
		"dimension":       fmt.Sprintf("%d", dimension),
	} {
		if _, err := metaStmt.ExecContext(ctx, key, value); err != nil {
			return fmt.Errorf("writing index metadata: %w", err)
		}
	}

	return tx.Commit()
}

// Load reconstructs a queryable index from location.
func (b *Builder) Load(ctx context.Context, location string) (*Index, error) {
	dbPath := filepath.Join(location, dbFileName)
	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("checking index location: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	defer db.Close()

	var model string
	if err := db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'embedding_model'").Scan(&model); err != nil {
		return nil, fmt.Errorf("%w: reading index metadata: %v", ErrCorrupt, err)
	}
	if model != b.embedder.ModelName() {
		return nil, fmt.Errorf("%w: index built with embedding model %q, configured model is %q",
			ErrCorrupt, model, b.embedder.ModelName())
	}

	rows, err := db.QueryContext(ctx, "SELECT position, content, embedding_json FROM passages ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("%w: querying passages: %v", ErrCorrupt, err)
	}
	defer rows.Close()

	var passages []Passage
	dimension := 0
	for rows.Next() {
		var p Passage
		var embeddingJSON string
		if err := rows.Scan(&p.Position, &p.Content, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("%w: scanning passage row: %v", ErrCorrupt, err)
		}
		if err := json.Unmarshal([]byte(embeddingJSON), &p.Embedding); err != nil {
			return nil, fmt.Errorf("%w: decoding embedding for passage %d: %v", ErrCorrupt, p.Position, err)
		}
		if dimension == 0 {
			dimension = len(p.Embedding)
		} else if len(p.Embedding) != dimension {
			return nil, fmt.Errorf("%w: inconsistent embedding dimensions", ErrCorrupt)
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading passages: %v", ErrCorrupt, err)
	}

	return &Index{passages: passages}, nil
}

// Index is a loaded, in-memory similarity-searchable set of passages.
type Index struct {
	passages []Passage
}

// Len reports the number of indexed passages.
func (idx *Index) Len() int {
	return len(idx.passages)
}

// Search returns up to k passages ranked by descending cosine similarity to
// the query vector. Ties break on ascending passage position, so results are
// deterministic for a fixed query.
func (idx *Index) Search(query []float32, k int) ([]Result, error) {
	if len(idx.passages) == 0 {
		return nil, ErrEmpty
	}
	if k <= 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(idx.passages))
	for _, p := range idx.passages {
		similarity, err := utils.CosineSimilarity(query, p.Embedding)
		if err != nil {
			return nil, fmt.Errorf("scoring passage %d: %w", p.Position, err)
		}
		results = append(results, Result{Position: p.Position, Content: p.Content, Similarity: similarity})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Position < results[j].Position
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}
