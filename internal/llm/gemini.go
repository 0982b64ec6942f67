package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/oceanward/reefguide/internal/log"
)

// GeminiProvider generates completions via the Gemini API. Gemini has
// no native system role in the message list, so a leading system
// message is folded into the first user turn.
type GeminiProvider struct {
	client   *genai.Client
	defaults Config
	logger   log.Logger
}

// NewGemini creates a Gemini chat provider with defaults as the
// provider-level config.
func NewGemini(ctx context.Context, apiKey string, defaults Config, logger log.Logger) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: gemini api key required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}

	return &GeminiProvider{client: client, defaults: defaults, logger: logger}, nil
}

// Name implements Provider.
func (p *GeminiProvider) Name() string { return "gemini" }

// Generate implements Provider.
func (p *GeminiProvider) Generate(ctx context.Context, messages []Message, override *Config) (*Completion, error) {
	if err := validateMessages(messages); err != nil {
		return nil, err
	}
	cfg := p.defaults.merge(override)

	contents := foldSystemMessage(messages)

	genCfg := &genai.GenerateContentConfig{}
	if cfg.Temperature != nil {
		genCfg.Temperature = genai.Ptr(float32(*cfg.Temperature))
	}
	if cfg.MaxTokens != nil {
		genCfg.MaxOutputTokens = int32(*cfg.MaxTokens)
	}
	if cfg.TopP != nil {
		genCfg.TopP = genai.Ptr(float32(*cfg.TopP))
	}

	resp, err := p.client.Models.GenerateContent(ctx, cfg.Model, contents, genCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: empty response")
	}

	candidate := resp.Candidates[0]
	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	if candidate.FinishReason == genai.FinishReasonSafety ||
		candidate.FinishReason == genai.FinishReasonProhibitedContent {
		p.logger.Warn("completion blocked by safety filter", "model", cfg.Model)
		return &Completion{
			Content:      deflectionMessage,
			TokensUsed:   tokens,
			Model:        cfg.Model,
			FinishReason: FinishReasonContentFiltered,
		}, nil
	}

	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			text.WriteString(part.Text)
		}
	}

	return &Completion{
		Content:      text.String(),
		TokensUsed:   tokens,
		Model:        cfg.Model,
		FinishReason: string(candidate.FinishReason),
	}, nil
}

// foldSystemMessage converts messages into Gemini contents, prefixing
// the first user turn with any leading system message.
func foldSystemMessage(messages []Message) []*genai.Content {
	var system string
	contents := make([]*genai.Content, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case RoleUser:
			text := m.Content
			if system != "" {
				text = system + "\n\n" + text
				system = ""
			}
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		}
	}

	// System message with no user turn after it still has to reach
	// the model.
	if system != "" {
		contents = append(contents, genai.NewContentFromText(system, genai.RoleUser))
	}
	return contents
}
