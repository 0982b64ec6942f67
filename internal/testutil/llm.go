package testutil

import (
	"context"

	"github.com/oceanward/reefguide/internal/llm"
)

// FakeLLM is a canned chat-completion provider for tests.
type FakeLLM struct {
	// Response is returned from every Generate call unless Err is set.
	Response llm.Completion
	// Err, when set, is returned by every call.
	Err error
	// Requests records the message lists passed to Generate.
	Requests [][]llm.Message
}

// NewFakeLLM returns a fake that answers every call with content.
func NewFakeLLM(content string) *FakeLLM {
	return &FakeLLM{Response: llm.Completion{
		Content:      content,
		TokensUsed:   10,
		Model:        "fake-model",
		FinishReason: "stop",
	}}
}

// Name implements llm.Provider.
func (f *FakeLLM) Name() string { return "fake" }

// Generate implements llm.Provider.
func (f *FakeLLM) Generate(_ context.Context, messages []llm.Message, _ *llm.Config) (*llm.Completion, error) {
	f.Requests = append(f.Requests, messages)
	if f.Err != nil {
		return nil, f.Err
	}
	resp := f.Response
	return &resp, nil
}
