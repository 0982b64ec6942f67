package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/oceanward/reefguide/internal/config"
	"github.com/oceanward/reefguide/internal/log"
)

// Registry caches provider instances so each backend is constructed
// once per process. Clients are expensive to build and safe for
// concurrent use after construction. The registry is created at
// startup and passed down explicitly; there is no package-level
// instance.
type Registry struct {
	mu        sync.Mutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Provider returns the backend selected by cfg, constructing it on
// first use and reusing it afterwards.
func (r *Registry) Provider(ctx context.Context, cfg *config.Config, logger log.Logger) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[cfg.Provider]; ok {
		return p, nil
	}

	temperature := float64(cfg.Temperature)
	maxTokens := cfg.MaxTokens
	topP := float64(cfg.TopP)
	defaults := Config{
		Model:       cfg.ModelName,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		TopP:        &topP,
	}

	var p Provider
	var err error
	switch cfg.Provider {
	case config.ProviderGroq:
		p, err = NewGroq(cfg.GroqAPIKey, defaults, logger)
	case config.ProviderGemini:
		p, err = NewGemini(ctx, cfg.GeminiAPIKey, defaults, logger)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	r.providers[cfg.Provider] = p
	return p, nil
}
