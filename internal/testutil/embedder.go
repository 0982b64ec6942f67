package testutil

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// FakeEmbedder produces deterministic unit-length vectors derived from
// the input text. Identical texts embed identically, so similarity
// comparisons behave predictably in tests without any network calls.
type FakeEmbedder struct {
	Dim int
	// Err, when set, is returned by every call.
	Err error
	// Calls records every embedded text in order.
	Calls []string
}

// NewFakeEmbedder returns a fake producing dim-length vectors.
func NewFakeEmbedder(dim int) *FakeEmbedder {
	return &FakeEmbedder{Dim: dim}
}

// Dimension implements the embedding provider contract.
func (f *FakeEmbedder) Dimension() int { return f.Dim }

// Embed returns a deterministic vector seeded from text.
func (f *FakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("fake embedder: empty input")
	}
	f.Calls = append(f.Calls, text)
	return deterministicVector(text, f.Dim), nil
}

// EmbedBatch embeds each text via Embed.
func (f *FakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func deterministicVector(text string, dim int) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float64(int64(seed>>33)) / float64(1<<30)
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
