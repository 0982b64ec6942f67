package config

import (
	"fmt"
	"strings"
)

// Valid PostgreSQL SSL modes accepted by the pgx driver.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks the configuration for consistency and completeness.
// Returns a sentinel-wrapped error for the first violation found so callers
// can match with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateEmbedder(); err != nil {
		return err
	}
	if err := c.validateRAG(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	return c.validatePostgres()
}

func (c *Config) validateLLM() error {
	switch c.Provider {
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			return fmt.Errorf("%w: GROQ_API_KEY must be set when provider is %q", ErrMissingAPIKey, ProviderGroq)
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY must be set when provider is %q", ErrMissingAPIKey, ProviderGemini)
		}
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)", ErrInvalidProvider, c.Provider, ProviderGroq, ProviderGemini)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (expected 0.0-2.0)", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens < 1 || c.MaxTokens > 65536 {
		return fmt.Errorf("%w: %d (expected 1-65536)", ErrInvalidMaxTokens, c.MaxTokens)
	}
	if c.TopP <= 0 || c.TopP > 1 {
		return fmt.Errorf("%w: %v (expected (0.0, 1.0])", ErrInvalidTopP, c.TopP)
	}
	return nil
}

func (c *Config) validateEmbedder() error {
	// The embedder is always Gemini, regardless of which chat provider is
	// selected, so its key is required unconditionally.
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY must be set (embeddings use Gemini)", ErrMissingAPIKey)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model must not be empty", ErrInvalidEmbedderModel)
	}
	// The vector(768) column fixes the dimension; a provider producing any
	// other dimension cannot share the store.
	if c.EmbedderDimension != DefaultEmbedderDimension {
		return fmt.Errorf("%w: %d (schema requires %d)",
			ErrInvalidEmbedderDimension, c.EmbedderDimension, DefaultEmbedderDimension)
	}
	return nil
}

func (c *Config) validateRAG() error {
	if c.ChunkMinTokens < 1 || c.ChunkTargetTokens < c.ChunkMinTokens || c.ChunkMaxTokens < c.ChunkTargetTokens {
		return fmt.Errorf("%w: min=%d target=%d max=%d (expected 1 <= min <= target <= max)",
			ErrInvalidChunkBudget, c.ChunkMinTokens, c.ChunkTargetTokens, c.ChunkMaxTokens)
	}
	if c.RetrievalTopK < 1 || c.RetrievalTopK > 100 {
		return fmt.Errorf("%w: top_k=%d (expected 1-100)", ErrInvalidRetrieval, c.RetrievalTopK)
	}
	if c.RetrievalMinSimilarity < -1 || c.RetrievalMinSimilarity > 1 {
		return fmt.Errorf("%w: min_similarity=%v (cosine similarity range is [-1, 1])",
			ErrInvalidRetrieval, c.RetrievalMinSimilarity)
	}
	return nil
}

func (c *Config) validateSession() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("%w: ttl=%v (must be positive)", ErrInvalidSession, c.SessionTTL)
	}
	if c.MaxHistoryEntries < 2 {
		return fmt.Errorf("%w: max_history_entries=%d (must hold at least one exchange)",
			ErrInvalidSession, c.MaxHistoryEntries)
	}
	if c.MaxMessageLength < 1 || c.MaxMessageLength > 100000 {
		return fmt.Errorf("%w: max_message_length=%d (expected 1-100000)",
			ErrInvalidSession, c.MaxMessageLength)
	}
	return nil
}

func (c *Config) validatePostgres() error {
	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d (expected 1-65535)", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}
	return nil
}
