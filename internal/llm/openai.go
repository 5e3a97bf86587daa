package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cynqhq/cynq/pkg/models"
)

// OpenAIClient implements Client over the OpenAI chat completions API. It
// also serves any OpenAI-compatible gateway (set BaseURL), which is how
// Gemini models are reached in the default deployment.
//
// Each Stream call creates an independent SSE stream and goroutine, so the
// client is safe for concurrent use.
type OpenAIClient struct {
	client     *openai.Client
	maxRetries int
	retryDelay time.Duration
}

// OpenAIConfig configures the OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey string

	// BaseURL overrides the API endpoint for compatible gateways.
	BaseURL string

	// MaxRetries and RetryDelay control the linear backoff retry loop.
	// Zero values default to 3 attempts with a 1 second base delay.
	MaxRetries int
	RetryDelay time.Duration
}

// NewOpenAIClient creates a client for the OpenAI chat completions API.
// An empty API key is allowed so configuration can be deferred; calls will
// fail until a key is set.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	c := &OpenAIClient{
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
	if cfg.APIKey == "" {
		return c
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	c.client = openai.NewClientWithConfig(clientCfg)
	return c
}

func (c *OpenAIClient) Name() string {
	return "openai"
}

// Complete sends a buffered (non-streaming) completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	if c.client == nil {
		return nil, errors.New("openai API key not configured")
	}

	chatReq := c.buildRequest(req, false)

	var resp openai.ChatCompletionResponse
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		resp, lastErr = c.client.CreateChatCompletion(ctx, chatReq)
		if lastErr == nil {
			break
		}
		if !isRetryableError(lastErr) {
			return nil, fmt.Errorf("openai: %w", lastErr)
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("openai: max retries exceeded: %w", lastErr)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty completion response")
	}

	choice := resp.Choices[0].Message
	result := &Response{Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, toolCallFromOpenAI(tc))
	}
	return result, nil
}

// Stream sends a streaming completion request and returns a channel of
// chunks. Text deltas are emitted as they arrive; tool calls are
// accumulated across deltas and emitted once complete.
func (c *OpenAIClient) Stream(ctx context.Context, req *Request) (<-chan *Chunk, error) {
	if c.client == nil {
		return nil, errors.New("openai API key not configured")
	}

	chatReq := c.buildRequest(req, true)

	var stream *openai.ChatCompletionStream
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		stream, lastErr = c.client.CreateChatCompletionStream(ctx, chatReq)
		if lastErr == nil {
			break
		}
		if !isRetryableError(lastErr) {
			return nil, fmt.Errorf("openai: %w", lastErr)
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("openai: max retries exceeded: %w", lastErr)
	}

	chunks := make(chan *Chunk)
	go c.processStream(ctx, stream, chunks)
	return chunks, nil
}

func (c *OpenAIClient) processStream(ctx context.Context, stream *openai.ChatCompletionStream, chunks chan<- *Chunk) {
	defer close(chunks)
	defer stream.Close()

	acc := newToolCallAccumulator()

	emitToolCalls := func() {
		for _, tc := range acc.complete() {
			call := tc
			chunks <- &Chunk{ToolCall: &call}
		}
	}

	for {
		select {
		case <-ctx.Done():
			chunks <- &Chunk{Error: ctx.Err(), Done: true}
			return
		default:
		}

		response, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Some gateways end the stream without a tool_calls
				// finish reason, so flush anything still pending.
				emitToolCalls()
				chunks <- &Chunk{Done: true}
				return
			}
			chunks <- &Chunk{Error: err, Done: true}
			return
		}

		if len(response.Choices) == 0 {
			continue
		}
		choice := response.Choices[0]

		if choice.Delta.Content != "" {
			chunks <- &Chunk{Text: choice.Delta.Content}
		}

		for _, tc := range choice.Delta.ToolCalls {
			index := 0
			if tc.Index != nil {
				index = *tc.Index
			}
			acc.add(index, tc.ID, tc.Function.Name, tc.Function.Arguments)
		}

		if choice.FinishReason == openai.FinishReasonToolCalls {
			emitToolCalls()
		}
	}
}

func (c *OpenAIClient) buildRequest(req *Request, stream bool) openai.ChatCompletionRequest {
	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: convertToOpenAIMessages(req.Messages, req.System),
		Stream:   stream,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		chatReq.Temperature = req.Temperature
	}
	if req.JSONResponse {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = convertToOpenAITools(req.Tools)
	}
	return chatReq
}

// convertToOpenAIMessages maps neutral messages to the OpenAI wire format.
// The system prompt becomes the first message; assistant tool calls ride on
// the assistant message; tool results become role "tool" messages linked by
// ToolCallID.
func convertToOpenAIMessages(messages []Message, system string) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)

	if system != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}

		switch msg.Role {
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				oaiMsg.ToolCalls = make([]openai.ToolCall, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					oaiMsg.ToolCalls[i] = openai.ToolCall{
						ID:   tc.ID,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      tc.Name,
							Arguments: string(tc.Arguments),
						},
					}
				}
			}
		case "tool":
			oaiMsg.ToolCallID = msg.ToolCallID
		}

		result = append(result, oaiMsg)
	}

	return result
}

func convertToOpenAITools(tools []ToolDef) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, tool := range tools {
		var schemaMap map[string]any
		if err := json.Unmarshal(tool.Schema, &schemaMap); err != nil {
			// One bad schema should not break the rest of the tools.
			schemaMap = map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			}
		}
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  schemaMap,
			},
		}
	}
	return result
}

func toolCallFromOpenAI(tc openai.ToolCall) models.ToolCall {
	return models.ToolCall{
		ID:        tc.ID,
		Name:      tc.Function.Name,
		Arguments: json.RawMessage(tc.Function.Arguments),
	}
}
