// Package chat orchestrates one conversational turn: validate the
// message, resolve a session, retrieve knowledge-base context, route
// the prompt, generate a completion, and persist the exchange.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/oceanward/reefguide/internal/llm"
	"github.com/oceanward/reefguide/internal/log"
	"github.com/oceanward/reefguide/internal/prompt"
	"github.com/oceanward/reefguide/internal/retrieval"
	"github.com/oceanward/reefguide/internal/session"
)

var (
	// ErrValidation marks malformed user input. Surfaced immediately,
	// never retried.
	ErrValidation = errors.New("chat: validation failed")
	// ErrUpstreamUnavailable marks a model-backend failure.
	ErrUpstreamUnavailable = errors.New("chat: upstream unavailable")
	// ErrStorage marks a session-store failure.
	ErrStorage = errors.New("chat: storage failure")
)

// Sessions is the session-store surface the orchestrator needs.
type Sessions interface {
	Create(ctx context.Context, profile session.DiverProfile) (*session.Data, error)
	Get(ctx context.Context, id string) (*session.Data, error)
	UpdateHistory(ctx context.Context, id uuid.UUID, userMessage, assistantMessage string) error
}

// Retriever fetches knowledge-base context for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts retrieval.Options) ([]retrieval.Result, error)
}

// Options bounds orchestrator behavior.
type Options struct {
	MaxMessageLength int
	TopK             int
	MinSimilarity    float64
}

// Request is one inbound chat turn. SessionID is optional; an
// unusable id silently resolves to a fresh session.
type Request struct {
	SessionID string
	Message   string
}

// Metadata describes how a response was produced.
type Metadata struct {
	TokensUsed    int         `json:"tokensUsed,omitempty"`
	ContextChunks int         `json:"contextChunks"`
	Model         string      `json:"model,omitempty"`
	PromptMode    prompt.Mode `json:"promptMode"`
}

// Response is the outcome of one turn.
type Response struct {
	SessionID string   `json:"sessionId"`
	Response  string   `json:"response"`
	Metadata  Metadata `json:"metadata"`
}

// Orchestrator runs chat turns.
type Orchestrator struct {
	sessions  Sessions
	retriever Retriever
	provider  llm.Provider
	opts      Options
	logger    log.Logger
}

// New creates an orchestrator.
func New(sessions Sessions, retriever Retriever, provider llm.Provider, opts Options, logger log.Logger) *Orchestrator {
	return &Orchestrator{
		sessions:  sessions,
		retriever: retriever,
		provider:  provider,
		opts:      opts,
		logger:    logger,
	}
}

// Handle runs one turn end to end. Retrieval failures degrade to an
// empty context; session, generation, and persistence failures fail
// the turn with their error class.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Response, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: empty message", ErrValidation)
	}
	// The limit is in characters, not bytes, so multibyte text is not
	// penalized.
	if utf8.RuneCountInString(message) > o.opts.MaxMessageLength {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrValidation, o.opts.MaxMessageLength)
	}

	sess, err := o.resolveSession(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve session: %v", ErrStorage, err)
	}

	contextTexts := o.retrieveContext(ctx, message)

	historyTexts := make([]string, len(sess.History))
	for i, e := range sess.History {
		historyTexts[i] = e.Content
	}
	mode := prompt.DetectMode(message, historyTexts)
	systemPrompt := prompt.BuildSystemPrompt(mode, contextTexts)

	messages := make([]llm.Message, 0, len(sess.History)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	for _, e := range sess.History {
		messages = append(messages, llm.Message{Role: e.Role, Content: e.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	completion, err := o.provider.Generate(ctx, messages, nil)
	if err != nil {
		if errors.Is(err, llm.ErrInvalidMessages) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if err := o.sessions.UpdateHistory(ctx, sess.ID, message, completion.Content); err != nil {
		return nil, fmt.Errorf("%w: persist history: %v", ErrStorage, err)
	}

	o.logger.Info("chat turn completed",
		"session_id", sess.ID,
		"prompt_mode", mode,
		"context_chunks", len(contextTexts),
		"tokens_used", completion.TokensUsed)

	return &Response{
		SessionID: sess.ID.String(),
		Response:  completion.Content,
		Metadata: Metadata{
			TokensUsed:    completion.TokensUsed,
			ContextChunks: len(contextTexts),
			Model:         completion.Model,
			PromptMode:    mode,
		},
	}, nil
}

// resolveSession returns the live session for id, or a fresh one when
// id is absent, malformed, unknown, or expired.
func (o *Orchestrator) resolveSession(ctx context.Context, id string) (*session.Data, error) {
	if id != "" {
		sess, err := o.sessions.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			return sess, nil
		}
		o.logger.Debug("session id unusable, creating fresh session", "supplied_id", id)
	}
	return o.sessions.Create(ctx, session.DiverProfile{})
}

// retrieveContext fetches context chunks, degrading to none on
// failure. Lookup failure and no-results are deliberately
// indistinguishable downstream.
func (o *Orchestrator) retrieveContext(ctx context.Context, message string) []string {
	results, err := o.retriever.Retrieve(ctx, message, retrieval.Options{
		TopK:          o.opts.TopK,
		MinSimilarity: o.opts.MinSimilarity,
	})
	if err != nil {
		o.logger.Warn("retrieval failed, continuing without context", "error", err)
		return nil
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return texts
}
