// Package llm abstracts chat-completion backends behind a single
// Provider interface with shared validation and config merging.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Message roles accepted by every backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrInvalidMessages is returned when a message list fails validation.
// Validation runs before any network call.
var ErrInvalidMessages = errors.New("llm: invalid messages")

// FinishReasonContentFiltered marks a completion that was deflected
// because the backend refused the content on safety grounds. It is a
// normal completion, not an error.
const FinishReasonContentFiltered = "content_filtered"

// deflectionMessage replaces refused completions.
const deflectionMessage = "I can't help with that request. Is there something else about diving I can help you with?"

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config holds generation parameters. Pointer fields distinguish "not
// set" so per-call overrides only shadow what they specify.
type Config struct {
	Model       string
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
}

// merge overlays set fields of override onto c.
func (c Config) merge(override *Config) Config {
	if override == nil {
		return c
	}
	out := c
	if override.Model != "" {
		out.Model = override.Model
	}
	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}
	if override.MaxTokens != nil {
		out.MaxTokens = override.MaxTokens
	}
	if override.TopP != nil {
		out.TopP = override.TopP
	}
	return out
}

// Completion is the result of one generation call.
type Completion struct {
	Content      string
	TokensUsed   int
	Model        string
	FinishReason string
}

// Provider generates chat completions.
type Provider interface {
	// Generate produces a completion for messages. override, when
	// non-nil, shadows the provider's default config for this call.
	Generate(ctx context.Context, messages []Message, override *Config) (*Completion, error)
	// Name identifies the backend for logging and error tagging.
	Name() string
}

// validateMessages enforces the cross-backend contract: a non-empty
// list where every message has a known role and non-blank content.
func validateMessages(messages []Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("%w: empty message list", ErrInvalidMessages)
	}
	for i, m := range messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("%w: message %d has unknown role %q", ErrInvalidMessages, i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%w: message %d has empty content", ErrInvalidMessages, i)
		}
	}
	return nil
}
