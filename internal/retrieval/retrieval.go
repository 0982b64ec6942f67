// Package retrieval turns a user query into ranked knowledge-base
// context: embed the query, search the vector store, and apply the
// similarity floor.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oceanward/reefguide/internal/embed"
	"github.com/oceanward/reefguide/internal/log"
	"github.com/oceanward/reefguide/internal/vectorstore"
)

// ErrEmptyQuery is returned when the query is blank.
var ErrEmptyQuery = errors.New("retrieval: empty query")

// Searcher is the vector-store surface the service needs.
type Searcher interface {
	Search(ctx context.Context, vec []float32, topK int, filter vectorstore.Filter) ([]vectorstore.Match, error)
}

// Result is one retrieved chunk with its relevance score.
type Result struct {
	ChunkID    int64
	Text       string
	Similarity float64
	Metadata   map[string]any
}

// Options bounds a retrieval request.
type Options struct {
	TopK int
	// MinSimilarity drops matches scoring below this cosine
	// similarity. Zero keeps everything non-negative providers return.
	MinSimilarity float64
	Filter        vectorstore.Filter
}

// Service retrieves relevant chunks for a query.
type Service struct {
	embedder embed.Provider
	searcher Searcher
	logger   log.Logger
}

// New creates a retrieval service.
func New(embedder embed.Provider, searcher Searcher, logger log.Logger) *Service {
	return &Service{embedder: embedder, searcher: searcher, logger: logger}
}

// Retrieve embeds query and returns up to opts.TopK matches above the
// similarity floor, ordered most similar first.
func (s *Service) Retrieve(ctx context.Context, query string, opts Options) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("retrieval: topK must be positive, got %d", opts.TopK)
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.searcher.Search(ctx, vec, opts.TopK, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		if m.Similarity < opts.MinSimilarity {
			continue
		}
		results = append(results, Result{
			ChunkID:    m.ID,
			Text:       m.Content,
			Similarity: m.Similarity,
			Metadata:   m.Metadata,
		})
	}

	s.logger.Debug("retrieved context",
		"matches", len(matches),
		"kept", len(results),
		"top_k", opts.TopK)

	return results, nil
}
