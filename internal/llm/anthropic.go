package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/cynqhq/cynq/pkg/models"
)

// maxEmptyStreamEvents bounds consecutive empty SSE events before the
// stream is treated as malformed.
const maxEmptyStreamEvents = 300

// AnthropicClient implements Client over the Anthropic Messages API.
// The native API is stream-only here; Complete drains a stream internally.
type AnthropicClient struct {
	client     anthropic.Client
	maxRetries int
	retryDelay time.Duration
}

// AnthropicConfig configures the Anthropic client.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string

	// MaxRetries and RetryDelay control the exponential backoff retry
	// loop. Zero values default to 3 attempts with a 1 second base delay.
	MaxRetries int
	RetryDelay time.Duration
}

// NewAnthropicClient creates a client for the Anthropic Messages API.
func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicClient{
		client:     anthropic.NewClient(options...),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Complete drains a streaming request into a buffered response.
func (c *AnthropicClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	chunks, err := c.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	return Collect(ctx, chunks)
}

// Stream sends a streaming Messages request and returns a channel of
// chunks. Tool input JSON arrives as partial fragments and is accumulated
// until the content block closes.
func (c *AnthropicClient) Stream(ctx context.Context, req *Request) (<-chan *Chunk, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}

	chunks := make(chan *Chunk)
	go func() {
		defer close(chunks)

		var stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
		var lastErr error
		for attempt := 0; attempt <= c.maxRetries; attempt++ {
			if attempt > 0 {
				backoff := c.retryDelay * time.Duration(math.Pow(2, float64(attempt-1)))
				select {
				case <-ctx.Done():
					chunks <- &Chunk{Error: ctx.Err(), Done: true}
					return
				case <-time.After(backoff):
				}
			}

			stream = c.client.Messages.NewStreaming(ctx, params)
			if lastErr = stream.Err(); lastErr == nil {
				break
			}
			if !isRetryableError(lastErr) {
				chunks <- &Chunk{Error: fmt.Errorf("anthropic: %w", lastErr), Done: true}
				return
			}
		}
		if lastErr != nil {
			chunks <- &Chunk{Error: fmt.Errorf("anthropic: max retries exceeded: %w", lastErr), Done: true}
			return
		}

		c.processStream(stream, chunks)
	}()

	return chunks, nil
}

func (c *AnthropicClient) processStream(stream *ssestream.Stream[anthropic.MessageStreamEventUnion], chunks chan<- *Chunk) {
	var currentToolCall *models.ToolCall
	var currentToolInput strings.Builder
	emptyEventCount := 0

	for stream.Next() {
		event := stream.Current()
		eventProcessed := false

		switch event.Type {
		case "content_block_start":
			contentBlock := event.AsContentBlockStart().ContentBlock
			if contentBlock.Type == "tool_use" {
				toolUse := contentBlock.AsToolUse()
				currentToolCall = &models.ToolCall{
					ID:   toolUse.ID,
					Name: toolUse.Name,
				}
				currentToolInput.Reset()
				eventProcessed = true
			}

		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					chunks <- &Chunk{Text: delta.Text}
					eventProcessed = true
				}
			case "input_json_delta":
				if delta.PartialJSON != "" {
					currentToolInput.WriteString(delta.PartialJSON)
					eventProcessed = true
				}
			}

		case "content_block_stop":
			if currentToolCall != nil {
				currentToolCall.Arguments = json.RawMessage(currentToolInput.String())
				chunks <- &Chunk{ToolCall: currentToolCall}
				currentToolCall = nil
				eventProcessed = true
			}

		case "message_stop":
			chunks <- &Chunk{Done: true}
			return

		case "error":
			chunks <- &Chunk{Error: errors.New("anthropic: stream error"), Done: true}
			return
		}

		if eventProcessed {
			emptyEventCount = 0
		} else {
			emptyEventCount++
			if emptyEventCount >= maxEmptyStreamEvents {
				chunks <- &Chunk{
					Error: fmt.Errorf("anthropic: stream appears malformed: %d consecutive empty events", emptyEventCount),
					Done:  true,
				}
				return
			}
		}
	}

	if err := stream.Err(); err != nil {
		chunks <- &Chunk{Error: fmt.Errorf("anthropic: %w", err), Done: true}
	}
}

func (c *AnthropicClient) buildParams(req *Request) (anthropic.MessageNewParams, error) {
	messages, err := convertToAnthropicMessages(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(req.Temperature))
	}
	if len(req.Tools) > 0 {
		tools, err := convertToAnthropicTools(req.Tools)
		if err != nil {
			return anthropic.MessageNewParams{}, err
		}
		params.Tools = tools
	}
	return params, nil
}

// convertToAnthropicMessages maps neutral messages to Anthropic content
// blocks. Tool-role results become tool_result blocks on a user message;
// assistant tool calls become tool_use blocks.
func convertToAnthropicMessages(messages []Message) ([]anthropic.MessageParam, error) {
	var result []anthropic.MessageParam

	for _, msg := range messages {
		if msg.Role == "system" {
			continue
		}

		var content []anthropic.ContentBlockParamUnion

		if msg.Role == "tool" {
			content = append(content, anthropic.NewToolResultBlock(
				msg.ToolCallID,
				msg.Content,
				false,
			))
			result = append(result, anthropic.NewUserMessage(content...))
			continue
		}

		if msg.Content != "" {
			content = append(content, anthropic.NewTextBlock(msg.Content))
		}
		for _, toolCall := range msg.ToolCalls {
			var input map[string]any
			if err := json.Unmarshal(toolCall.Arguments, &input); err != nil {
				return nil, fmt.Errorf("anthropic: invalid tool call input: %w", err)
			}
			content = append(content, anthropic.NewToolUseBlock(toolCall.ID, input, toolCall.Name))
		}
		if len(content) == 0 {
			continue
		}

		if msg.Role == "assistant" {
			result = append(result, anthropic.NewAssistantMessage(content...))
		} else {
			result = append(result, anthropic.NewUserMessage(content...))
		}
	}

	return result, nil
}

func convertToAnthropicTools(tools []ToolDef) ([]anthropic.ToolUnionParam, error) {
	var result []anthropic.ToolUnionParam
	for _, tool := range tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(tool.Schema, &schema); err != nil {
			return nil, fmt.Errorf("anthropic: invalid tool schema for %s: %w", tool.Name, err)
		}
		toolParam := anthropic.ToolUnionParamOfTool(schema, tool.Name)
		if toolParam.OfTool == nil {
			return nil, fmt.Errorf("anthropic: invalid tool schema for %s: missing tool definition", tool.Name)
		}
		toolParam.OfTool.Description = anthropic.String(tool.Description)
		result = append(result, toolParam)
	}
	return result, nil
}
