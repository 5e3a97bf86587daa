package chat

import (
	"context"
	"encoding/json"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/cynqhq/cynq/internal/llm"
	"github.com/cynqhq/cynq/internal/observability"
	"github.com/cynqhq/cynq/internal/tools"
	"github.com/cynqhq/cynq/pkg/models"
)

func TestProcessMessageEmitsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer provider.Shutdown(context.Background())

	calls := 0
	client := &stubClient{
		completeFn: func(*llm.Request) (*llm.Response, error) {
			calls++
			if calls == 1 {
				return &llm.Response{ToolCalls: []models.ToolCall{{
					ID:        "call_1",
					Name:      "get_contact_email",
					Arguments: json.RawMessage(`{"name":"Ada"}`),
				}}}, nil
			}
			return &llm.Response{Content: "done"}, nil
		},
	}

	reg := tools.NewRegistry()
	if err := reg.Register(tools.NewContactEmailTool()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	h := NewHandler(Config{
		Client:   client,
		Registry: reg,
		Model:    "gemini-2.5-flash",
		Tracer:   observability.NewTracerWithProvider(provider),
	})

	if _, err := h.ProcessMessage(context.Background(), "email Ada", nil, nil, false, nil); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}

	names := map[string]bool{}
	for _, span := range exporter.GetSpans() {
		names[span.Name] = true
	}
	if !names["chat.turn"] {
		t.Error("expected a chat.turn span")
	}
	if !names["chat.tool"] {
		t.Error("expected a chat.tool span")
	}
}

func TestProcessMessageWorksWithoutTracer(t *testing.T) {
	client := &stubClient{
		completeFn: func(*llm.Request) (*llm.Response, error) {
			return &llm.Response{Content: "hi"}, nil
		},
	}
	h := newTestHandler(t, client)
	result, err := h.ProcessMessage(context.Background(), "hello", nil, nil, false, nil)
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if result.Content != "hi" {
		t.Errorf("unexpected content %q", result.Content)
	}
}
