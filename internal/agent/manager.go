package agent

import (
	"sync"

	"github.com/cynqhq/cynq/internal/chat"
	"github.com/cynqhq/cynq/internal/llm"
	"github.com/cynqhq/cynq/internal/observability"
	"github.com/cynqhq/cynq/internal/sessions"
	"github.com/cynqhq/cynq/internal/tools"
)

// Manager hands out one Agent per session id. Agents are created lazily on
// first use and removed when their session is deleted. Each agent gets its
// own chat handler because the model is per-session state.
type Manager struct {
	client       llm.Client
	registry     *tools.Registry
	controller   *sessions.Controller
	defaultModel string
	maxTokens    int
	logger       *observability.Logger
	metrics      *observability.Metrics
	tracer       *observability.Tracer

	mu     sync.Mutex
	agents map[string]*Agent
}

// ManagerConfig assembles a Manager.
type ManagerConfig struct {
	Client       llm.Client
	Registry     *tools.Registry
	Controller   *sessions.Controller
	DefaultModel string
	MaxTokens    int
	Logger       *observability.Logger
	Metrics      *observability.Metrics
	Tracer       *observability.Tracer
}

// NewManager creates an agent manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger(observability.LogConfig{})
	}
	return &Manager{
		client:       cfg.Client,
		registry:     cfg.Registry,
		controller:   cfg.Controller,
		defaultModel: cfg.DefaultModel,
		maxTokens:    cfg.MaxTokens,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		tracer:       cfg.Tracer,
		agents:       make(map[string]*Agent),
	}
}

// GetOrCreate returns the agent owning sessionID, creating it if needed.
func (m *Manager) GetOrCreate(sessionID string) *Agent {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.agents[sessionID]; ok {
		return a
	}
	handler := chat.NewHandler(chat.Config{
		Client:    m.client,
		Registry:  m.registry,
		Model:     m.defaultModel,
		MaxTokens: m.maxTokens,
		Logger:    m.logger,
		Metrics:   m.metrics,
		Tracer:    m.tracer,
	})
	a := newAgent(sessionID, handler, m.controller, m.logger, m.metrics)
	m.agents[sessionID] = a
	return a
}

// Get returns the agent for sessionID, or nil when none exists yet.
func (m *Manager) Get(sessionID string) *Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.agents[sessionID]
}

// Remove discards the agent for sessionID along with its in-memory
// conversation.
func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.agents, sessionID)
}

// RemoveAll discards every live agent.
func (m *Manager) RemoveAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents = make(map[string]*Agent)
}
