package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cynqhq/cynq/internal/llm"
	"github.com/cynqhq/cynq/internal/sessions"
	"github.com/cynqhq/cynq/internal/tools"
	"github.com/cynqhq/cynq/pkg/models"
)

type stubClient struct {
	mu         sync.Mutex
	completeFn func(req *llm.Request) (*llm.Response, error)
	streamFn   func(req *llm.Request) []*llm.Chunk
	requests   []*llm.Request
}

func (s *stubClient) Name() string { return "stub" }

func (s *stubClient) Complete(_ context.Context, req *llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.completeFn == nil {
		return &llm.Response{Content: "ok"}, nil
	}
	return s.completeFn(req)
}

func (s *stubClient) Stream(_ context.Context, req *llm.Request) (<-chan *llm.Chunk, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.streamFn == nil {
		return nil, errors.New("no stream scripted")
	}
	scripted := s.streamFn(req)
	chunks := make(chan *llm.Chunk, len(scripted))
	for _, chunk := range scripted {
		chunks <- chunk
	}
	close(chunks)
	return chunks, nil
}

func (s *stubClient) recorded() []*llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*llm.Request(nil), s.requests...)
}

func newTestManager(t *testing.T, client llm.Client) (*Manager, *sessions.Controller) {
	t.Helper()
	store, err := sessions.OpenSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSnapshotStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	controller := sessions.NewController(store, nil, nil)
	manager := NewManager(ManagerConfig{
		Client:       client,
		Registry:     tools.NewRegistry(),
		Controller:   controller,
		DefaultModel: "gemini-2.5-flash",
	})
	return manager, controller
}

func TestProcessChatAppendsUserAndAssistantMessages(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{
		completeFn: func(*llm.Request) (*llm.Response, error) {
			return &llm.Response{Content: "Hello there"}, nil
		},
	}
	manager, controller := newTestManager(t, client)
	if err := controller.AddSession(ctx, "s1", "Planning"); err != nil {
		t.Fatalf("AddSession() error = %v", err)
	}

	a := manager.GetOrCreate("s1")
	state := a.ProcessChat(ctx, ChatRequest{Message: "  hi  "}, nil)

	if len(state.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(state.Messages))
	}
	if state.Messages[0].Role != models.RoleUser || state.Messages[0].Content != "hi" {
		t.Errorf("unexpected user message: %+v", state.Messages[0])
	}
	if state.Messages[1].Role != models.RoleAssistant || state.Messages[1].Content != "Hello there" {
		t.Errorf("unexpected assistant message: %+v", state.Messages[1])
	}
	if state.IsProcessing {
		t.Error("isProcessing must be reset after the turn")
	}
	if state.Messages[0].ID == "" || state.Messages[0].ID == state.Messages[1].ID {
		t.Error("messages must get distinct ids")
	}
}

func TestProcessChatHistoryExcludesCurrentMessage(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{
		completeFn: func(*llm.Request) (*llm.Response, error) {
			return &llm.Response{Content: "reply"}, nil
		},
	}
	manager, controller := newTestManager(t, client)
	if err := controller.AddSession(ctx, "s1", "Planning"); err != nil {
		t.Fatalf("AddSession() error = %v", err)
	}

	a := manager.GetOrCreate("s1")
	a.ProcessChat(ctx, ChatRequest{Message: "first"}, nil)
	a.ProcessChat(ctx, ChatRequest{Message: "second"}, nil)

	requests := client.recorded()
	if len(requests) != 2 {
		t.Fatalf("expected 2 completion requests, got %d", len(requests))
	}
	last := requests[1]
	// History plus the new user message: first/reply/second, no duplicate.
	if len(last.Messages) != 3 {
		t.Fatalf("expected 3 messages on second turn, got %d", len(last.Messages))
	}
	if last.Messages[2].Content != "second" || last.Messages[1].Content != "reply" {
		t.Errorf("unexpected message order: %+v", last.Messages)
	}
}

func TestProcessChatStreamingAccumulates(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{
		streamFn: func(*llm.Request) []*llm.Chunk {
			return []*llm.Chunk{{Text: "str"}, {Text: "eam"}, {Done: true}}
		},
	}
	manager, controller := newTestManager(t, client)
	if err := controller.AddSession(ctx, "s1", "Planning"); err != nil {
		t.Fatalf("AddSession() error = %v", err)
	}

	var streamed strings.Builder
	a := manager.GetOrCreate("s1")
	state := a.ProcessChat(ctx, ChatRequest{Message: "hi", Stream: true}, func(s string) {
		streamed.WriteString(s)
	})

	if streamed.String() != "stream" {
		t.Errorf("sink saw %q", streamed.String())
	}
	if state.Messages[1].Content != "stream" {
		t.Errorf("assistant message stored %q", state.Messages[1].Content)
	}
	if state.StreamingMessage != "" {
		t.Errorf("streaming buffer must be cleared, got %q", state.StreamingMessage)
	}
}

func TestProcessChatFailureSubstitutesApology(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{
		streamFn: func(*llm.Request) []*llm.Chunk {
			return []*llm.Chunk{{Text: "partial"}, {Error: errors.New("boom")}}
		},
	}
	manager, controller := newTestManager(t, client)
	if err := controller.AddSession(ctx, "s1", "Planning"); err != nil {
		t.Fatalf("AddSession() error = %v", err)
	}

	var streamed strings.Builder
	a := manager.GetOrCreate("s1")
	state := a.ProcessChat(ctx, ChatRequest{Message: "hi", Stream: true}, func(s string) {
		streamed.WriteString(s)
	})

	if len(state.Messages) != 2 {
		t.Fatalf("expected user + apology messages, got %d", len(state.Messages))
	}
	if state.Messages[1].Content != apologyMessage {
		t.Errorf("expected apology, got %q", state.Messages[1].Content)
	}
	if !strings.HasSuffix(streamed.String(), apologyMessage) {
		t.Errorf("apology must reach the stream, sink saw %q", streamed.String())
	}
	if state.IsProcessing {
		t.Error("isProcessing must be reset after a failed turn")
	}
}

func TestProcessChatFailureNonStreaming(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{
		completeFn: func(*llm.Request) (*llm.Response, error) {
			return nil, errors.New("provider down")
		},
	}
	manager, controller := newTestManager(t, client)
	if err := controller.AddSession(ctx, "s1", "Planning"); err != nil {
		t.Fatalf("AddSession() error = %v", err)
	}

	a := manager.GetOrCreate("s1")
	state := a.ProcessChat(ctx, ChatRequest{Message: "hi"}, nil)

	if state.Messages[1].Content != apologyMessage {
		t.Errorf("expected apology, got %q", state.Messages[1].Content)
	}
}

func TestProcessChatSwitchesModel(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{
		completeFn: func(*llm.Request) (*llm.Response, error) {
			return &llm.Response{Content: "ok"}, nil
		},
	}
	manager, controller := newTestManager(t, client)
	if err := controller.AddSession(ctx, "s1", "Planning"); err != nil {
		t.Fatalf("AddSession() error = %v", err)
	}

	a := manager.GetOrCreate("s1")
	state := a.ProcessChat(ctx, ChatRequest{Message: "hi", Model: "claude-sonnet-4-5"}, nil)
	if state.Model != "claude-sonnet-4-5" {
		t.Errorf("state model = %q", state.Model)
	}
	if got := client.recorded()[0].Model; got != "claude-sonnet-4-5" {
		t.Errorf("request model = %q", got)
	}
}

func TestProcessChatEnrichesContextWithCommunityData(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{
		completeFn: func(*llm.Request) (*llm.Response, error) {
			return &llm.Response{Content: "ok"}, nil
		},
	}
	manager, controller := newTestManager(t, client)
	if err := controller.AddSession(ctx, "s1", "Planning"); err != nil {
		t.Fatalf("AddSession() error = %v", err)
	}

	a := manager.GetOrCreate("s1")
	a.ProcessChat(ctx, ChatRequest{
		Message: "hi",
		Context: &models.UserProfileContext{Background: "engineer"},
	}, nil)

	system := client.recorded()[0].System
	if !strings.Contains(system, "# Community Intelligence") {
		t.Error("system prompt must carry the seeded community data")
	}
	if !strings.Contains(system, "engineer") {
		t.Error("system prompt must carry the caller profile")
	}
}

func TestAutoTitleReplacesPlaceholder(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{
		completeFn: func(req *llm.Request) (*llm.Response, error) {
			if strings.Contains(req.System, "expert summarizer") {
				return &llm.Response{Content: "Go Modules"}, nil
			}
			return &llm.Response{Content: "ok"}, nil
		},
	}
	manager, controller := newTestManager(t, client)
	if err := controller.AddSession(ctx, "s1", ""); err != nil {
		t.Fatalf("AddSession() error = %v", err)
	}

	a := manager.GetOrCreate("s1")
	a.ProcessChat(ctx, ChatRequest{Message: "tell me about go modules"}, nil)

	deadline := time.Now().Add(2 * time.Second)
	for {
		session, err := controller.GetSession(ctx, "s1")
		if err != nil {
			t.Fatalf("GetSession() error = %v", err)
		}
		if session.Title == "Go Modules" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("title never replaced, still %q", session.Title)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAutoTitleSkipsCustomTitle(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{
		completeFn: func(req *llm.Request) (*llm.Response, error) {
			if strings.Contains(req.System, "expert summarizer") {
				t.Error("title generation must not run for custom titles")
			}
			return &llm.Response{Content: "ok"}, nil
		},
	}
	manager, controller := newTestManager(t, client)
	if err := controller.AddSession(ctx, "s1", "Custom"); err != nil {
		t.Fatalf("AddSession() error = %v", err)
	}

	a := manager.GetOrCreate("s1")
	a.ProcessChat(ctx, ChatRequest{Message: "hi"}, nil)
	time.Sleep(50 * time.Millisecond)

	session, _ := controller.GetSession(ctx, "s1")
	if session.Title != "Custom" {
		t.Errorf("custom title must be kept, got %q", session.Title)
	}
}

func TestClearMessages(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{
		completeFn: func(*llm.Request) (*llm.Response, error) {
			return &llm.Response{Content: "ok"}, nil
		},
	}
	manager, controller := newTestManager(t, client)
	if err := controller.AddSession(ctx, "s1", "Planning"); err != nil {
		t.Fatalf("AddSession() error = %v", err)
	}

	a := manager.GetOrCreate("s1")
	a.ProcessChat(ctx, ChatRequest{Message: "hi"}, nil)

	state := a.ClearMessages()
	if len(state.Messages) != 0 {
		t.Errorf("expected empty conversation, got %d messages", len(state.Messages))
	}
	if state.Model == "" || state.SessionID != "s1" {
		t.Errorf("clear must keep session identity and model: %+v", state)
	}
}

func TestSummarizeRenamesSession(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{
		completeFn: func(req *llm.Request) (*llm.Response, error) {
			if strings.Contains(req.System, "expert summarizer") {
				return &llm.Response{Content: `"Career Advice"`}, nil
			}
			return &llm.Response{Content: "ok"}, nil
		},
	}
	manager, controller := newTestManager(t, client)
	if err := controller.AddSession(ctx, "s1", "Custom"); err != nil {
		t.Fatalf("AddSession() error = %v", err)
	}

	a := manager.GetOrCreate("s1")
	a.ProcessChat(ctx, ChatRequest{Message: "hi"}, nil)

	title, err := a.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if title != "Career Advice" {
		t.Errorf("unexpected title %q", title)
	}
	session, _ := controller.GetSession(ctx, "s1")
	if session.Title != "Career Advice" {
		t.Errorf("session title = %q", session.Title)
	}
}

func TestManagerReusesAgents(t *testing.T) {
	client := &stubClient{}
	manager, _ := newTestManager(t, client)

	a := manager.GetOrCreate("s1")
	if manager.GetOrCreate("s1") != a {
		t.Error("expected the same agent for the same session id")
	}
	if manager.GetOrCreate("s2") == a {
		t.Error("expected distinct agents per session")
	}
	if manager.Get("s3") != nil {
		t.Error("Get must not create agents")
	}

	manager.Remove("s1")
	if manager.Get("s1") != nil {
		t.Error("expected agent to be removed")
	}
}
