// Package embed converts text into vector representations for
// similarity search.
package embed

import (
	"context"
	"errors"
)

var (
	// ErrEmptyInput is returned when the text to embed is empty or
	// whitespace-only.
	ErrEmptyInput = errors.New("embed: empty input")
	// ErrDimensionMismatch is returned when the upstream service
	// produces a vector of unexpected length.
	ErrDimensionMismatch = errors.New("embed: dimension mismatch")
	// ErrRateLimited is returned when retries against the upstream
	// service were exhausted on rate-limit responses.
	ErrRateLimited = errors.New("embed: rate limited")
)

// Provider produces embeddings with a fixed dimension.
type Provider interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension reports the length of vectors this provider produces.
	Dimension() int
}
