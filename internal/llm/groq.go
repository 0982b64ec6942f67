package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/oceanward/reefguide/internal/log"
)

// groqBaseURL is Groq's OpenAI-compatible endpoint.
const groqBaseURL = "https://api.groq.com/openai/v1"

// GroqProvider generates completions via Groq's OpenAI-compatible
// chat API.
type GroqProvider struct {
	client   openai.Client
	defaults Config
	logger   log.Logger
}

// NewGroq creates a Groq chat provider with defaults as the
// provider-level config.
func NewGroq(apiKey string, defaults Config, logger log.Logger) (*GroqProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: groq api key required")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(groqBaseURL),
	)
	return &GroqProvider{client: client, defaults: defaults, logger: logger}, nil
}

// Name implements Provider.
func (p *GroqProvider) Name() string { return "groq" }

// Generate implements Provider.
func (p *GroqProvider) Generate(ctx context.Context, messages []Message, override *Config) (*Completion, error) {
	if err := validateMessages(messages); err != nil {
		return nil, err
	}
	cfg := p.defaults.merge(override)

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(cfg.Model),
		Messages: toOpenAIMessages(messages),
	}
	if cfg.Temperature != nil {
		params.Temperature = openai.Float(*cfg.Temperature)
	}
	if cfg.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*cfg.MaxTokens))
	}
	if cfg.TopP != nil {
		params.TopP = openai.Float(*cfg.TopP)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("groq: generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("groq: empty response")
	}

	choice := resp.Choices[0]
	tokens := int(resp.Usage.TotalTokens)

	if choice.FinishReason == "content_filter" {
		p.logger.Warn("completion blocked by content filter", "model", cfg.Model)
		return &Completion{
			Content:      deflectionMessage,
			TokensUsed:   tokens,
			Model:        resp.Model,
			FinishReason: FinishReasonContentFiltered,
		}, nil
	}

	return &Completion{
		Content:      choice.Message.Content,
		TokensUsed:   tokens,
		Model:        resp.Model,
		FinishReason: choice.FinishReason,
	}, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
