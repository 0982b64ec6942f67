package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/oceanward/reefguide/internal/llm"
	"github.com/oceanward/reefguide/internal/log"
	"github.com/oceanward/reefguide/internal/retrieval"
	"github.com/oceanward/reefguide/internal/session"
	"github.com/oceanward/reefguide/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSessions struct {
	stored     map[uuid.UUID]*session.Data
	created    int
	getErr     error
	createErr  error
	updateErr  error
	lastUpdate [2]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{stored: make(map[uuid.UUID]*session.Data)}
}

func (f *fakeSessions) Create(_ context.Context, profile session.DiverProfile) (*session.Data, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created++
	data := &session.Data{
		ID:        uuid.New(),
		Profile:   profile,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	f.stored[data.ID] = data
	return data, nil
}

func (f *fakeSessions) Get(_ context.Context, id string) (*session.Data, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}
	return f.stored[parsed], nil
}

func (f *fakeSessions) UpdateHistory(_ context.Context, id uuid.UUID, userMessage, assistantMessage string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.lastUpdate = [2]string{userMessage, assistantMessage}
	return nil
}

type fakeRetriever struct {
	results []retrieval.Result
	err     error
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, _ retrieval.Options) ([]retrieval.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func testOptions() Options {
	return Options{MaxMessageLength: 2000, TopK: 5, MinSimilarity: 0.3}
}

func newOrchestrator(sessions *fakeSessions, retriever *fakeRetriever, provider llm.Provider) *Orchestrator {
	return New(sessions, retriever, provider, testOptions(), log.NewNop())
}

func TestHandleValidation(t *testing.T) {
	o := newOrchestrator(newFakeSessions(), &fakeRetriever{}, testutil.NewFakeLLM("ok"))

	tests := []struct {
		name    string
		message string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t"},
		{"too long", strings.Repeat("a", 2001)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Handle(context.Background(), Request{Message: tt.message})
			if !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}

	provider := o.provider.(*testutil.FakeLLM)
	if len(provider.Requests) != 0 {
		t.Error("validation failures must reject before any provider call")
	}
}

func TestHandleNewConversation(t *testing.T) {
	o := newOrchestrator(newFakeSessions(), &fakeRetriever{}, testutil.NewFakeLLM("Open Water is the entry-level certification."))

	resp, err := o.Handle(context.Background(), Request{Message: "What is Open Water certification?"})
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if _, err := uuid.Parse(resp.SessionID); err != nil {
		t.Errorf("SessionID %q is not a UUID", resp.SessionID)
	}
	if resp.Response == "" {
		t.Error("empty response")
	}
	if resp.Metadata.PromptMode != "certification" {
		t.Errorf("PromptMode = %q, want certification", resp.Metadata.PromptMode)
	}
}

func TestHandleMaxLengthBoundary(t *testing.T) {
	o := newOrchestrator(newFakeSessions(), &fakeRetriever{}, testutil.NewFakeLLM("ok"))

	resp, err := o.Handle(context.Background(), Request{Message: strings.Repeat("a", 2000)})
	if err != nil {
		t.Fatalf("Handle() at exact limit error: %v", err)
	}
	if resp.Response != "ok" {
		t.Errorf("Response = %q", resp.Response)
	}
}

func TestHandleMaxLengthCountsRunes(t *testing.T) {
	o := newOrchestrator(newFakeSessions(), &fakeRetriever{}, testutil.NewFakeLLM("ok"))

	// 2000 runes but 6000 bytes must pass the limit.
	if _, err := o.Handle(context.Background(), Request{Message: strings.Repeat("潜", 2000)}); err != nil {
		t.Fatalf("Handle() with 2000 multibyte runes error: %v", err)
	}

	_, err := o.Handle(context.Background(), Request{Message: strings.Repeat("潜", 2001)})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation for 2001 runes", err)
	}
}

func TestHandleCreatesSessionWhenIDUnusable(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"no id", ""},
		{"malformed id", "garbage"},
		{"unknown id", uuid.NewString()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := newFakeSessions()
			o := newOrchestrator(sessions, &fakeRetriever{}, testutil.NewFakeLLM("ok"))

			resp, err := o.Handle(context.Background(), Request{SessionID: tt.id, Message: "hello"})
			if err != nil {
				t.Fatalf("Handle() error: %v", err)
			}
			if sessions.created != 1 {
				t.Errorf("created %d sessions, want 1", sessions.created)
			}
			if resp.SessionID == tt.id {
				t.Error("response must carry the fresh session id")
			}
		})
	}
}

func TestHandleReusesLiveSession(t *testing.T) {
	sessions := newFakeSessions()
	existing, _ := sessions.Create(context.Background(), session.DiverProfile{})
	existing.History = []session.Entry{
		{Role: session.RoleUser, Content: "tell me about the open water course"},
		{Role: session.RoleAssistant, Content: "it is the entry-level certification"},
	}
	sessions.created = 0

	provider := testutil.NewFakeLLM("ok")
	o := newOrchestrator(sessions, &fakeRetriever{}, provider)

	resp, err := o.Handle(context.Background(), Request{SessionID: existing.ID.String(), Message: "how many dives does it need?"})
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if sessions.created != 0 {
		t.Errorf("created %d sessions for a live id, want 0", sessions.created)
	}
	if resp.SessionID != existing.ID.String() {
		t.Errorf("SessionID = %q, want existing", resp.SessionID)
	}

	// [system, history user, history assistant, current user]
	msgs := provider.Requests[0]
	if len(msgs) != 4 {
		t.Fatalf("provider got %d messages, want 4", len(msgs))
	}
	if msgs[0].Role != llm.RoleSystem {
		t.Errorf("first message role = %q, want system", msgs[0].Role)
	}
	if msgs[3].Content != "how many dives does it need?" {
		t.Errorf("last message = %q", msgs[3].Content)
	}
	if resp.Metadata.PromptMode != "certification" {
		t.Errorf("PromptMode = %q, history should route to certification", resp.Metadata.PromptMode)
	}
}

func TestHandleInjectsRetrievedContext(t *testing.T) {
	retriever := &fakeRetriever{results: []retrieval.Result{
		{Text: "Palancar reef drift profile", Similarity: 0.9},
		{Text: "Cozumel seasonality", Similarity: 0.8},
	}}
	provider := testutil.NewFakeLLM("ok")
	o := newOrchestrator(newFakeSessions(), retriever, provider)

	resp, err := o.Handle(context.Background(), Request{Message: "planning a trip to cozumel"})
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if resp.Metadata.ContextChunks != 2 {
		t.Errorf("ContextChunks = %d, want 2", resp.Metadata.ContextChunks)
	}
	system := provider.Requests[0][0].Content
	if !strings.Contains(system, "Palancar reef drift profile") {
		t.Error("system prompt missing retrieved context")
	}
}

func TestHandleDegradesOnRetrievalFailure(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("vector store down")}
	provider := testutil.NewFakeLLM("ok")
	o := newOrchestrator(newFakeSessions(), retriever, provider)

	resp, err := o.Handle(context.Background(), Request{Message: "what causes vertigo underwater?"})
	if err != nil {
		t.Fatalf("Handle() must not fail on retrieval error, got: %v", err)
	}
	if resp.Metadata.ContextChunks != 0 {
		t.Errorf("ContextChunks = %d, want 0", resp.Metadata.ContextChunks)
	}
	if strings.Contains(provider.Requests[0][0].Content, "Reference information") {
		t.Error("system prompt must not carry a reference block on degraded retrieval")
	}
}

func TestHandleUpstreamFailure(t *testing.T) {
	provider := testutil.NewFakeLLM("")
	provider.Err = errors.New("model overloaded")
	o := newOrchestrator(newFakeSessions(), &fakeRetriever{}, provider)

	_, err := o.Handle(context.Background(), Request{Message: "hello"})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestHandlePersistFailure(t *testing.T) {
	sessions := newFakeSessions()
	sessions.updateErr = errors.New("disk full")
	o := newOrchestrator(sessions, &fakeRetriever{}, testutil.NewFakeLLM("ok"))

	_, err := o.Handle(context.Background(), Request{Message: "hello"})
	if !errors.Is(err, ErrStorage) {
		t.Errorf("err = %v, want ErrStorage", err)
	}
}

func TestHandleSessionStorageFailure(t *testing.T) {
	sessions := newFakeSessions()
	sessions.getErr = errors.New("connection refused")
	o := newOrchestrator(sessions, &fakeRetriever{}, testutil.NewFakeLLM("ok"))

	_, err := o.Handle(context.Background(), Request{SessionID: uuid.NewString(), Message: "hello"})
	if !errors.Is(err, ErrStorage) {
		t.Errorf("err = %v, want ErrStorage", err)
	}
}

func TestHandlePersistsExchange(t *testing.T) {
	sessions := newFakeSessions()
	o := newOrchestrator(sessions, &fakeRetriever{}, testutil.NewFakeLLM("stay above 30 meters"))

	_, err := o.Handle(context.Background(), Request{Message: "  how deep can I go?  "})
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if sessions.lastUpdate[0] != "how deep can I go?" {
		t.Errorf("persisted user message = %q, want trimmed", sessions.lastUpdate[0])
	}
	if sessions.lastUpdate[1] != "stay above 30 meters" {
		t.Errorf("persisted assistant message = %q", sessions.lastUpdate[1])
	}
}
