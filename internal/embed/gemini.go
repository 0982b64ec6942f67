package embed

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/oceanward/reefguide/internal/log"
)

// batchRequestsPerSecond throttles batch embedding so large ingestion
// runs stay under upstream quota.
const batchRequestsPerSecond = 5

// Gemini embeds text via the Gemini embedding API with a fixed output
// dimensionality.
type Gemini struct {
	client    *genai.Client
	model     string
	dimension int
	limiter   *rate.Limiter
	logger    log.Logger
}

// NewGemini creates a Gemini embedding provider. The model's output is
// truncated server-side to dimension via OutputDimensionality.
func NewGemini(ctx context.Context, apiKey, model string, dimension int, logger log.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embed: gemini api key required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("embed: invalid dimension %d", dimension)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("embed: create gemini client: %w", err)
	}

	return &Gemini{
		client:    client,
		model:     model,
		dimension: dimension,
		limiter:   rate.NewLimiter(rate.Limit(batchRequestsPerSecond), 1),
		logger:    logger,
	}, nil
}

// Dimension reports the configured vector length.
func (g *Gemini) Dimension() int { return g.dimension }

// Embed returns the vector for text. Rate-limit responses are retried
// with exponential backoff; other failures surface immediately.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	var vec []float32
	err := withRetry(ctx, func() error {
		resp, err := g.client.Models.EmbedContent(ctx, g.model,
			genai.Text(text),
			&genai.EmbedContentConfig{
				OutputDimensionality: genai.Ptr(int32(g.dimension)),
			})
		if err != nil {
			return err
		}
		if len(resp.Embeddings) == 0 {
			return fmt.Errorf("embed: no embedding in response")
		}
		vec = resp.Embeddings[0].Values
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(vec) != g.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), g.dimension)
	}
	return vec, nil
}

// EmbedBatch embeds texts sequentially behind a rate limiter and
// returns one vector per input, in order. Any empty input or failed
// item aborts the whole batch so callers never receive a partially
// aligned result.
func (g *Gemini) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		vec, err := g.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed: batch item %d: %w", i, err)
		}
		vectors = append(vectors, vec)

		if (i+1)%50 == 0 {
			g.logger.Debug("batch embedding progress", "done", i+1, "total", len(texts))
		}
	}
	return vectors, nil
}
