// Package llm implements completion clients for the chat orchestrator.
//
// Two adapters are provided: an OpenAI-compatible client (which also covers
// gateways that front Gemini and other models behind the OpenAI wire format)
// and a native Anthropic client. Both expose the same Client interface with
// a buffered Complete call and a channel-based Stream call.
package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cynqhq/cynq/pkg/models"
)

// Client is the provider-agnostic completion interface.
//
// Complete returns the full assistant response in one shot. Stream returns a
// channel of incremental chunks; the channel is closed when the response is
// finished or an error chunk has been sent.
type Client interface {
	// Name returns the stable lowercase provider identifier used in
	// metrics and logs.
	Name() string

	Complete(ctx context.Context, req *Request) (*Response, error)
	Stream(ctx context.Context, req *Request) (<-chan *Chunk, error)
}

// Request is a single completion request.
type Request struct {
	Model    string
	System   string
	Messages []Message
	Tools    []ToolDef

	// MaxTokens caps the response length; zero means provider default.
	MaxTokens int

	// Temperature of zero means provider default. Use a small positive
	// value explicitly for near-deterministic output.
	Temperature float32

	// JSONResponse asks the provider to constrain output to a single JSON
	// object, where supported.
	JSONResponse bool
}

// Message is one turn of conversation history in provider-neutral form.
type Message struct {
	// Role is "user", "assistant" or "tool".
	Role    string
	Content string

	// ToolCalls carries the tool invocations an assistant message
	// requested. Only set on assistant messages.
	ToolCalls []models.ToolCall

	// ToolCallID links a tool-role result message back to the assistant
	// tool call it answers.
	ToolCallID string
}

// ToolDef describes a tool the model may invoke.
type ToolDef struct {
	Name        string
	Description string

	// Schema is the JSON Schema for the tool arguments.
	Schema json.RawMessage
}

// Chunk is one increment of a streaming response.
type Chunk struct {
	// Text is a fragment of assistant prose, emitted as it arrives.
	Text string

	// ToolCall is a fully accumulated tool invocation. Tool calls are
	// only emitted once their arguments are complete.
	ToolCall *models.ToolCall

	// Done marks the final chunk of a successful stream.
	Done bool

	// Error terminates the stream when set.
	Error error
}

// Response is a buffered completion result.
type Response struct {
	Content   string
	ToolCalls []models.ToolCall
}

// Collect drains a stream into a buffered Response. It is used by adapters
// whose native API is stream-only, and by callers that want non-streaming
// semantics over a streaming client.
func Collect(ctx context.Context, chunks <-chan *Chunk) (*Response, error) {
	var text strings.Builder
	resp := &Response{}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				resp.Content = text.String()
				return resp, nil
			}
			if chunk.Error != nil {
				return nil, chunk.Error
			}
			if chunk.Text != "" {
				text.WriteString(chunk.Text)
			}
			if chunk.ToolCall != nil {
				resp.ToolCalls = append(resp.ToolCalls, *chunk.ToolCall)
			}
		}
	}
}

// isRetryableError classifies transient provider failures worth retrying:
// rate limits, server errors and timeouts. Authentication and validation
// failures are not retryable.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{
		"rate limit", "429",
		"500", "502", "503", "504",
		"timeout", "deadline exceeded",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
