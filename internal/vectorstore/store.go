// Package vectorstore persists embedded content chunks in PostgreSQL
// and serves cosine-similarity search over them via pgvector.
package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/oceanward/reefguide/internal/log"
)

// ErrDimensionMismatch is returned when a vector's length does not
// match the store's configured dimension.
var ErrDimensionMismatch = errors.New("vectorstore: dimension mismatch")

// Querier is the subset of pgxpool.Pool the store needs. Defined here
// so tests can substitute a fake.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EmbeddedChunk is a chunk ready for insertion: its text, source
// position, vector, and metadata.
type EmbeddedChunk struct {
	Content     string
	ContentPath string
	ChunkIndex  int
	Embedding   []float32
	Metadata    map[string]any
}

// Match is one search hit. Similarity is cosine similarity in [-1, 1],
// higher is closer.
type Match struct {
	ID         int64
	Content    string
	Similarity float64
	Metadata   map[string]any
}

// Filter narrows a search to chunks whose metadata matches. Zero-value
// fields are ignored.
type Filter struct {
	// DocTypes matches metadata->>'docType' against any listed value.
	DocTypes []string
	// Destination matches metadata->>'destination' exactly.
	Destination string
	// Tags matches chunks whose metadata 'tags' array contains at
	// least one listed tag.
	Tags []string
}

// Store reads and writes the chunks table.
type Store struct {
	db        Querier
	dimension int
	logger    log.Logger
}

// New creates a Store. dimension must match the vector column width.
func New(db Querier, dimension int, logger log.Logger) *Store {
	return &Store{db: db, dimension: dimension, logger: logger}
}

// Insert stores chunks, replacing any existing row with the same
// (content_path, chunk_index). Vectors are validated against the
// store's dimension before any row is written.
func (s *Store) Insert(ctx context.Context, chunks []EmbeddedChunk) error {
	for i, c := range chunks {
		if len(c.Embedding) != s.dimension {
			return fmt.Errorf("%w: chunk %d has %d, want %d",
				ErrDimensionMismatch, i, len(c.Embedding), s.dimension)
		}
	}

	for _, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshal chunk metadata: %w", err)
		}

		_, err = s.db.Exec(ctx, `
			INSERT INTO chunks (content, content_path, chunk_index, embedding, metadata)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (content_path, chunk_index)
			DO UPDATE SET content = EXCLUDED.content,
			              embedding = EXCLUDED.embedding,
			              metadata = EXCLUDED.metadata,
			              created_at = now()`,
			c.Content, c.ContentPath, c.ChunkIndex,
			pgvector.NewVector(c.Embedding), meta)
		if err != nil {
			return fmt.Errorf("insert chunk %s[%d]: %w", c.ContentPath, c.ChunkIndex, err)
		}
	}

	s.logger.Debug("inserted chunks", "count", len(chunks))
	return nil
}

// Search returns up to topK chunks nearest to vec by cosine
// similarity, most similar first. The optional filter is applied in
// SQL so the limit counts only matching rows.
func (s *Store) Search(ctx context.Context, vec []float32, topK int, filter Filter) ([]Match, error) {
	if len(vec) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d, want %d",
			ErrDimensionMismatch, len(vec), s.dimension)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("vectorstore: topK must be positive, got %d", topK)
	}

	query := strings.Builder{}
	query.WriteString(`
		SELECT id, content, 1 - (embedding <=> $1) AS similarity, metadata
		FROM chunks`)

	args := []any{pgvector.NewVector(vec)}
	var conds []string
	if len(filter.DocTypes) > 0 {
		args = append(args, filter.DocTypes)
		conds = append(conds, fmt.Sprintf("metadata->>'docType' = ANY($%d)", len(args)))
	}
	if filter.Destination != "" {
		args = append(args, filter.Destination)
		conds = append(conds, fmt.Sprintf("metadata->>'destination' = $%d", len(args)))
	}
	if len(filter.Tags) > 0 {
		args = append(args, filter.Tags)
		conds = append(conds, fmt.Sprintf("metadata->'tags' ?| $%d", len(args)))
	}
	if len(conds) > 0 {
		query.WriteString("\n\t\tWHERE " + strings.Join(conds, " AND "))
	}

	args = append(args, topK)
	query.WriteString(fmt.Sprintf("\n\t\tORDER BY embedding <=> $1\n\t\tLIMIT $%d", len(args)))

	rows, err := s.db.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var meta []byte
		if err := rows.Scan(&m.ID, &m.Content, &m.Similarity, &meta); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &m.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
			}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}

	return matches, nil
}

// DeleteByPath removes all chunks from one source document and
// reports how many rows were deleted.
func (s *Store) DeleteByPath(ctx context.Context, contentPath string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM chunks WHERE content_path = $1`, contentPath)
	if err != nil {
		return 0, fmt.Errorf("delete chunks for %s: %w", contentPath, err)
	}
	return tag.RowsAffected(), nil
}

// HasPath reports whether any chunk exists for the given source path.
func (s *Store) HasPath(ctx context.Context, contentPath string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chunks WHERE content_path = $1)`,
		contentPath).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check path %s: %w", contentPath, err)
	}
	return exists, nil
}

// Count returns the total number of stored chunks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// Purge deletes every chunk. Used when rebuilding the knowledge base
// from scratch.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM chunks`)
	if err != nil {
		return 0, fmt.Errorf("purge chunks: %w", err)
	}
	return tag.RowsAffected(), nil
}
