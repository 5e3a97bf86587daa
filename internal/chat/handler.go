// Package chat implements the conversational core: system prompt assembly,
// single-turn orchestration with tool calling, session title generation and
// the JSON-producing insight and takeaway calls.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cynqhq/cynq/internal/llm"
	"github.com/cynqhq/cynq/internal/observability"
	"github.com/cynqhq/cynq/internal/tools"
	"github.com/cynqhq/cynq/pkg/models"
)

const (
	// defaultHistoryWindow is how many prior messages ride along on the
	// first completion of a turn.
	defaultHistoryWindow = 5

	// followUpHistoryWindow is the smaller window used on the follow-up
	// completion that folds tool results back in.
	followUpHistoryWindow = 3

	// titleHistoryWindow is how many leading messages feed title
	// generation.
	titleHistoryWindow = 4

	// takeawayHistoryWindow is how many trailing messages feed takeaway
	// extraction.
	takeawayHistoryWindow = 6
)

const summarizationPrompt = "You are an expert summarizer. Based on the following conversation, generate a concise and descriptive title of 5 words or less. The title should capture the main topic or question. Do not add any prefix like 'Title:' or use quotation marks."

const insightsPrompt = `Provide 2-3 generic professional growth suggestions.
Respond ONLY with a JSON object matching this structure: { "insights": [{ "icon": "string", "title": "string", "description": "string" }] }.
The "icon" value must be one of: "connections", "learning", "opportunities".`

// TurnResult is the outcome of one conversational turn.
type TurnResult struct {
	Content   string
	ToolCalls []models.ToolCall
}

// Handler drives completions for a single configured model. It is safe for
// concurrent use; the model can be swapped at runtime.
type Handler struct {
	client    llm.Client
	registry  *tools.Registry
	logger    *observability.Logger
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	maxTokens int

	mu    sync.RWMutex
	model string
}

// Config assembles a Handler.
type Config struct {
	Client   llm.Client
	Registry *tools.Registry
	Model    string

	// MaxTokens caps turn completions; zero defaults to 16000.
	MaxTokens int

	Logger *observability.Logger

	// Metrics is optional; nil disables instrumentation.
	Metrics *observability.Metrics

	// Tracer is optional; nil means spans are not recorded.
	Tracer *observability.Tracer
}

// NewHandler creates a chat handler.
func NewHandler(cfg Config) *Handler {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 16000
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger(observability.LogConfig{})
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NopTracer()
	}
	return &Handler{
		client:    cfg.Client,
		registry:  cfg.Registry,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		tracer:    cfg.Tracer,
		maxTokens: cfg.MaxTokens,
		model:     cfg.Model,
	}
}

// Model returns the currently configured model.
func (h *Handler) Model() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.model
}

// UpdateModel swaps the model used for subsequent completions.
func (h *Handler) UpdateModel(model string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.model = model
}

// ProcessMessage runs one conversational turn. When sink is non-nil the
// turn streams: each content fragment is forwarded to the sink as it
// arrives while being accumulated for the returned result. Tool calls
// requested by the model are executed and folded back via a follow-up
// completion.
//
// Any failure is returned as an error; no partial answer is committed
// without an explicit completion.
func (h *Handler) ProcessMessage(ctx context.Context, message string, history []models.Message, profile *models.UserProfileContext, proactive bool, sink func(string)) (*TurnResult, error) {
	req := &llm.Request{
		Model:     h.Model(),
		System:    BuildSystemPrompt(profile, proactive),
		Messages:  append(historyMessages(history, defaultHistoryWindow), llm.Message{Role: "user", Content: message}),
		Tools:     h.registry.Definitions(),
		MaxTokens: h.maxTokens,
	}

	ctx, span := h.tracer.Start(ctx, "chat.turn",
		trace.WithAttributes(
			attribute.String("llm.model", req.Model),
			attribute.Bool("chat.streaming", sink != nil),
		))
	defer span.End()

	var result *TurnResult
	var err error
	if sink == nil {
		result, err = h.completeTurn(ctx, req, message, history, profile, proactive)
	} else {
		result, err = h.streamTurn(ctx, req, message, history, profile, proactive, sink)
	}
	if err != nil {
		h.tracer.RecordError(span, err)
	}
	return result, err
}

func (h *Handler) streamTurn(ctx context.Context, req *llm.Request, message string, history []models.Message, profile *models.UserProfileContext, proactive bool, sink func(string)) (*TurnResult, error) {
	chunks, err := h.client.Stream(ctx, req)
	if err != nil {
		return nil, err
	}

	var content strings.Builder
	var requested []models.ToolCall
	for chunk := range chunks {
		if chunk.Error != nil {
			return nil, fmt.Errorf("stream processing failed: %w", chunk.Error)
		}
		if chunk.Text != "" {
			content.WriteString(chunk.Text)
			sink(chunk.Text)
		}
		if chunk.ToolCall != nil {
			requested = append(requested, *chunk.ToolCall)
		}
	}

	if len(requested) > 0 {
		return h.resolveToolCalls(ctx, message, history, profile, proactive, requested)
	}
	return &TurnResult{Content: content.String()}, nil
}

func (h *Handler) completeTurn(ctx context.Context, req *llm.Request, message string, history []models.Message, profile *models.UserProfileContext, proactive bool) (*TurnResult, error) {
	resp, err := h.client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(resp.ToolCalls) > 0 {
		return h.resolveToolCalls(ctx, message, history, profile, proactive, resp.ToolCalls)
	}

	content := resp.Content
	if content == "" {
		content = "I apologize, but I encountered an issue."
	}
	return &TurnResult{Content: content}, nil
}

// resolveToolCalls executes the requested tools in parallel and issues the
// follow-up completion that folds their results into the final answer.
func (h *Handler) resolveToolCalls(ctx context.Context, message string, history []models.Message, profile *models.UserProfileContext, proactive bool, requested []models.ToolCall) (*TurnResult, error) {
	executed := h.executeToolCalls(ctx, requested, profile)

	followUp := &llm.Request{
		Model:     h.Model(),
		System:    BuildSystemPrompt(profile, proactive),
		MaxTokens: h.maxTokens,
	}
	followUp.Messages = append(historyMessages(history, followUpHistoryWindow),
		llm.Message{Role: "user", Content: message},
		llm.Message{Role: "assistant", ToolCalls: requested},
	)
	for _, call := range executed {
		followUp.Messages = append(followUp.Messages, llm.Message{
			Role:       "tool",
			Content:    string(call.Result),
			ToolCallID: call.ID,
		})
	}

	resp, err := h.client.Complete(ctx, followUp)
	if err != nil {
		return nil, err
	}
	content := resp.Content
	if content == "" {
		content = "Tool results processed successfully."
	}
	return &TurnResult{Content: content, ToolCalls: executed}, nil
}

// executeToolCalls runs every requested call in parallel, preserving the
// request order so results stay correlated with call IDs. Failures never
// escape a call; they become structured error payloads.
func (h *Handler) executeToolCalls(ctx context.Context, requested []models.ToolCall, profile *models.UserProfileContext) []models.ToolCall {
	executed := make([]models.ToolCall, len(requested))
	var wg sync.WaitGroup
	for i, call := range requested {
		wg.Add(1)
		go func(i int, call models.ToolCall) {
			defer wg.Done()
			executed[i] = h.executeOne(ctx, call, profile)
		}(i, call)
	}
	wg.Wait()
	return executed
}

func (h *Handler) executeOne(ctx context.Context, call models.ToolCall, profile *models.UserProfileContext) models.ToolCall {
	ctx, span := h.tracer.Start(ctx, "chat.tool",
		trace.WithAttributes(attribute.String("tool.name", call.Name)))
	defer span.End()

	params := call.Arguments
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}

	result, err := h.registry.Execute(ctx, call.Name, params, profile)
	if err != nil {
		h.tracer.RecordError(span, err)
		h.logger.Error(ctx, "tool execution failed", "tool", call.Name, "error", err)
		h.countToolExecution(call.Name, "error")
		payload, _ := json.Marshal(map[string]string{
			"error": fmt.Sprintf("Failed to execute %s: %v", call.Name, err),
		})
		call.Result = payload
		return call
	}

	if result.IsError {
		h.countToolExecution(call.Name, "error")
	} else {
		h.countToolExecution(call.Name, "ok")
	}
	call.Result = toolResultPayload(result)
	return call
}

// toolResultPayload normalizes a tool result into JSON for the tool-result
// message. Tools emit JSON by convention but plain-text registry errors are
// wrapped rather than passed through invalid.
func toolResultPayload(result *tools.Result) json.RawMessage {
	if json.Valid([]byte(result.Content)) {
		return json.RawMessage(result.Content)
	}
	if result.IsError {
		payload, _ := json.Marshal(map[string]string{"error": result.Content})
		return payload
	}
	payload, _ := json.Marshal(result.Content)
	return payload
}

// GenerateTitle derives a short session title from the opening messages.
// It never fails: provider errors and empty responses fall back to fixed
// titles.
func (h *Handler) GenerateTitle(ctx context.Context, history []models.Message) string {
	if len(history) == 0 {
		return "New Consultation"
	}

	window := history
	if len(window) > titleHistoryWindow {
		window = window[:titleHistoryWindow]
	}
	req := &llm.Request{
		Model:       h.Model(),
		System:      summarizationPrompt,
		Messages:    roleContentMessages(window),
		MaxTokens:   20,
		Temperature: 0.2,
	}

	resp, err := h.client.Complete(ctx, req)
	if err != nil {
		h.logger.Error(ctx, "failed to generate title", "error", err)
		return "Consultation"
	}

	title := strings.TrimSpace(resp.Content)
	if title == "" {
		return "Consultation Summary"
	}
	title = strings.TrimPrefix(title, `"`)
	title = strings.TrimSuffix(title, `"`)

	if h.metrics != nil {
		h.metrics.TitlesGeneratedTotal.Inc()
	}
	return title
}

// GenerateEcosystemInsights asks the model for growth suggestions as JSON.
// Malformed JSON that survives extraction and repair is a hard error.
func (h *Handler) GenerateEcosystemInsights(ctx context.Context) ([]models.EcosystemInsight, error) {
	req := &llm.Request{
		Model:       h.Model(),
		Messages:    []llm.Message{{Role: "user", Content: insightsPrompt}},
		MaxTokens:   1024,
		Temperature: 0.8,
	}

	resp, err := h.client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return []models.EcosystemInsight{}, nil
	}

	jsonString, err := extractJSONObject(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON response from AI: no valid object found")
	}

	var parsed struct {
		Insights []models.EcosystemInsight `json:"insights"`
	}
	if err := json.Unmarshal([]byte(jsonString), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON from AI response")
	}
	if parsed.Insights == nil {
		return []models.EcosystemInsight{}, nil
	}
	return parsed.Insights, nil
}

// GenerateTakeaways extracts new actionable items from a conversation.
// Unlike insights, every failure here is soft: the caller gets an empty
// list rather than an error.
func (h *Handler) GenerateTakeaways(ctx context.Context, history []models.Message, profile *models.UserProfileContext) []models.ChatTakeaway {
	if len(history) < 3 {
		return []models.ChatTakeaway{}
	}

	window := history
	if len(window) > takeawayHistoryWindow {
		window = window[len(window)-takeawayHistoryWindow:]
	}
	req := &llm.Request{
		Model:        h.Model(),
		System:       buildTakeawayPrompt(profile),
		Messages:     roleContentMessages(window),
		MaxTokens:    500,
		Temperature:  0.3,
		JSONResponse: true,
	}

	resp, err := h.client.Complete(ctx, req)
	if err != nil {
		h.logger.Error(ctx, "failed to generate takeaways", "error", err)
		return []models.ChatTakeaway{}
	}

	jsonString, err := extractJSONObject(resp.Content)
	if err != nil {
		return []models.ChatTakeaway{}
	}

	var parsed struct {
		Takeaways []models.ChatTakeaway `json:"takeaways"`
	}
	if err := json.Unmarshal([]byte(jsonString), &parsed); err != nil {
		h.logger.Error(ctx, "failed to parse takeaways", "error", err, "response", resp.Content)
		return []models.ChatTakeaway{}
	}

	takeaways := parsed.Takeaways
	if takeaways == nil {
		return []models.ChatTakeaway{}
	}
	for i := range takeaways {
		takeaways[i].Value = collapseDoubledValue(takeaways[i].Value)
	}
	return takeaways
}

func buildTakeawayPrompt(profile *models.UserProfileContext) string {
	contacts, events, communities := "None", "None", "None"
	if profile != nil {
		if len(profile.Contacts) > 0 {
			contacts = joinNames(len(profile.Contacts), func(i int) string { return profile.Contacts[i].Name })
		}
		if len(profile.Events) > 0 {
			events = joinNames(len(profile.Events), func(i int) string { return profile.Events[i].Name })
		}
		if len(profile.Communities) > 0 {
			communities = joinNames(len(profile.Communities), func(i int) string { return profile.Communities[i].Name })
		}
	}

	return fmt.Sprintf(`TASK: Analyze the conversation and extract key takeaways.
CONTEXT: The user has the following items in their ecosystem:
- Existing Contacts: %s
- Existing Events: %s
- Existing Communities: %s
INSTRUCTIONS:
1. Review the last 6 messages of the conversation provided below.
2. Identify up to 2 important, actionable takeaways that are **NEW** and **NOT** in the existing context lists.
3. A takeaway can be a new 'contact', 'event', 'goal', or 'community'.
4. **CRITICAL:** Do not duplicate names. If "Lancie" is mentioned, the value must be "Lancie", not "LancieLancie".
5. If no new takeaways are found, return an empty array.
6. **RESPONSE FORMAT:** Respond ONLY with a single, valid JSON object. Do not include any other text, greetings, or explanations. The object must have a key "takeaways" containing an array of objects.
JSON STRUCTURE:
{
  "takeaways": [
    {
      "type": "contact" | "event" | "goal" | "community",
      "value": "string",
      "description": "string"
    }
  ]
}`, contacts, events, communities)
}

func (h *Handler) countToolExecution(tool, status string) {
	if h.metrics != nil {
		h.metrics.ToolExecutionsTotal.WithLabelValues(tool, status).Inc()
	}
}

// historyMessages converts the trailing window of stored messages to
// role/content completion messages.
func historyMessages(history []models.Message, window int) []llm.Message {
	if len(history) > window {
		history = history[len(history)-window:]
	}
	return roleContentMessages(history)
}

func roleContentMessages(history []models.Message) []llm.Message {
	result := make([]llm.Message, 0, len(history))
	for _, msg := range history {
		result = append(result, llm.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return result
}
