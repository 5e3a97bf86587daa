// Package agent hosts the per-session chat state machines. Each session id
// maps to exactly one Agent owning that session's conversation; a Manager
// creates agents on demand and serializes turns per session.
package agent

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cynqhq/cynq/internal/chat"
	"github.com/cynqhq/cynq/internal/observability"
	"github.com/cynqhq/cynq/internal/sessions"
	"github.com/cynqhq/cynq/pkg/models"
)

// apologyMessage is the fixed user-visible reply when a turn fails. The
// raw error stays in the logs; partial stream output already flushed is
// never retracted.
const apologyMessage = "Sorry, I encountered an error processing your request."

// Agent owns one session's conversation. The mutex serializes turns so a
// session processes one message at a time.
type Agent struct {
	sessionID  string
	handler    *chat.Handler
	controller *sessions.Controller
	logger     *observability.Logger
	metrics    *observability.Metrics

	mu    sync.Mutex
	state models.ChatState
}

// ChatRequest is one incoming chat turn.
type ChatRequest struct {
	Message       string                     `json:"message"`
	Model         string                     `json:"model,omitempty"`
	Stream        bool                       `json:"stream,omitempty"`
	Context       *models.UserProfileContext `json:"context,omitempty"`
	ProactiveMode bool                       `json:"proactiveMode,omitempty"`
}

func newAgent(sessionID string, handler *chat.Handler, controller *sessions.Controller, logger *observability.Logger, metrics *observability.Metrics) *Agent {
	return &Agent{
		sessionID:  sessionID,
		handler:    handler,
		controller: controller,
		logger:     logger,
		metrics:    metrics,
		state: models.ChatState{
			SessionID: sessionID,
			Messages:  []models.Message{},
			Model:     handler.Model(),
		},
	}
}

// State returns a copy of the current chat state.
func (a *Agent) State() models.ChatState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cloneStateLocked()
}

func (a *Agent) cloneStateLocked() models.ChatState {
	clone := a.state
	clone.Messages = append([]models.Message(nil), a.state.Messages...)
	return clone
}

// ProcessChat runs one turn. When sink is non-nil, content fragments are
// forwarded to it as they arrive. A failed turn substitutes the fixed
// apology as the assistant's message instead of surfacing the raw error;
// isProcessing is always reset.
func (a *Agent) ProcessChat(ctx context.Context, req ChatRequest, sink func(string)) models.ChatState {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	mode := "complete"
	if sink != nil {
		mode = "stream"
	}

	if req.Model != "" && req.Model != a.state.Model {
		a.state.Model = req.Model
		a.handler.UpdateModel(req.Model)
	}

	profile := a.enrichContext(ctx, req.Context)

	history := append([]models.Message(nil), a.state.Messages...)
	userMessage := newMessage(models.RoleUser, strings.TrimSpace(req.Message), nil)
	a.state.Messages = append(a.state.Messages, userMessage)
	a.state.IsProcessing = true
	a.state.StreamingMessage = ""

	wrappedSink := sink
	if sink != nil {
		wrappedSink = func(fragment string) {
			a.state.StreamingMessage += fragment
			sink(fragment)
		}
	}

	result, err := a.handler.ProcessMessage(ctx, userMessage.Content, history, profile, req.ProactiveMode, wrappedSink)
	if err != nil {
		a.logger.Error(ctx, "chat turn failed", "session_id", a.sessionID, "error", err)
		a.recordTurn(mode, "error", start)
		if sink != nil {
			sink(apologyMessage)
		}
		a.state.Messages = append(a.state.Messages, newMessage(models.RoleAssistant, apologyMessage, nil))
		a.state.IsProcessing = false
		a.state.StreamingMessage = ""
		return a.cloneStateLocked()
	}

	a.state.Messages = append(a.state.Messages, newMessage(models.RoleAssistant, result.Content, result.ToolCalls))
	a.state.IsProcessing = false
	a.state.StreamingMessage = ""
	a.recordTurn(mode, "ok", start)

	if err := a.controller.TouchSession(ctx, a.sessionID); err != nil {
		a.logger.Error(ctx, "failed to touch session", "session_id", a.sessionID, "error", err)
	}
	a.maybeGenerateTitle(ctx)

	return a.cloneStateLocked()
}

// maybeGenerateTitle replaces the dated placeholder title with a derived
// one after the first exchange. Runs in the background; a failed
// generation leaves the placeholder in place.
func (a *Agent) maybeGenerateTitle(ctx context.Context) {
	if len(a.state.Messages) != 2 {
		return
	}
	session, err := a.controller.GetSession(ctx, a.sessionID)
	if err != nil || session == nil || !strings.HasPrefix(session.Title, "Chat ") {
		return
	}

	history := append([]models.Message(nil), a.state.Messages...)
	go func() {
		bg := context.Background()
		title := a.handler.GenerateTitle(bg, history)
		if _, err := a.controller.RenameSession(bg, a.sessionID, title); err != nil {
			a.logger.Error(bg, "failed to store generated title", "session_id", a.sessionID, "error", err)
		}
	}()
}

// enrichContext folds the shared community data into the caller-supplied
// profile so every turn sees the same community intelligence.
func (a *Agent) enrichContext(ctx context.Context, profile *models.UserProfileContext) *models.UserProfileContext {
	enriched := models.UserProfileContext{}
	if profile != nil {
		enriched = *profile
	}

	resources, err := a.controller.ListResources(ctx)
	if err != nil {
		a.logger.Error(ctx, "failed to list community resources", "error", err)
	} else {
		enriched.CommunityResources = resources
	}
	insights, err := a.controller.ListInsights(ctx)
	if err != nil {
		a.logger.Error(ctx, "failed to list community insights", "error", err)
	} else {
		enriched.AnonymizedInsights = insights
	}
	return &enriched
}

// ClearMessages replaces the conversation with an empty one.
func (a *Agent) ClearMessages() models.ChatState {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Messages = []models.Message{}
	a.state.StreamingMessage = ""
	return a.cloneStateLocked()
}

// UpdateModel switches the model for subsequent turns.
func (a *Agent) UpdateModel(model string) models.ChatState {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Model = model
	a.handler.UpdateModel(model)
	return a.cloneStateLocked()
}

// Summarize generates a title from the conversation and stores it on the
// session record.
func (a *Agent) Summarize(ctx context.Context) (string, error) {
	a.mu.Lock()
	history := append([]models.Message(nil), a.state.Messages...)
	a.mu.Unlock()

	title := a.handler.GenerateTitle(ctx, history)
	if _, err := a.controller.RenameSession(ctx, a.sessionID, title); err != nil {
		return "", err
	}
	return title, nil
}

// EcosystemInsights generates growth suggestions.
func (a *Agent) EcosystemInsights(ctx context.Context) ([]models.EcosystemInsight, error) {
	return a.handler.GenerateEcosystemInsights(ctx)
}

// Takeaways extracts new actionable items from the conversation, with the
// profile enriched by community data.
func (a *Agent) Takeaways(ctx context.Context, profile *models.UserProfileContext) []models.ChatTakeaway {
	a.mu.Lock()
	history := append([]models.Message(nil), a.state.Messages...)
	a.mu.Unlock()

	return a.handler.GenerateTakeaways(ctx, history, a.enrichContext(ctx, profile))
}

func (a *Agent) recordTurn(mode, status string, start time.Time) {
	if a.metrics == nil {
		return
	}
	a.metrics.ChatTurnsTotal.WithLabelValues(mode, status).Inc()
	a.metrics.ChatTurnDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

func newMessage(role models.Role, content string, toolCalls []models.ToolCall) models.Message {
	return models.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		ToolCalls: toolCalls,
	}
}
