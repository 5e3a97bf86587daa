// Package tools implements the closed tool registry the chat orchestrator
// dispatches into. Tool failures are error-shaped results, never propagated
// errors, so a failed call still produces a valid tool-result message for
// the follow-up completion.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/cynqhq/cynq/internal/llm"
	"github.com/cynqhq/cynq/pkg/models"
)

// MaxParamsSize caps tool argument JSON to guard against pathological
// model output.
const MaxParamsSize = 1 << 20

// Tool is a single model-invokable function. Implementations receive the
// caller's profile context alongside the validated arguments.
type Tool interface {
	// Name returns the function name exposed to the model.
	// Must be alphanumeric with underscores.
	Name() string

	// Description tells the model when to use the tool.
	Description() string

	// Schema returns the JSON Schema for the tool arguments.
	Schema() json.RawMessage

	// Execute runs the tool. Domain-level failures (no match, missing
	// data) are reported through Result.IsError; only infrastructure
	// failures return an error.
	Execute(ctx context.Context, params json.RawMessage, profile *models.UserProfileContext) (*Result, error)
}

// Result is the outcome of one tool execution.
type Result struct {
	// Content is the payload handed back to the model, JSON-serialized
	// by convention.
	Content string

	// IsError marks error-shaped results so the model can recover.
	IsError bool
}

// Registry is a closed, thread-safe mapping of tool name to handler.
// Arguments are validated against the tool's declared schema before
// dispatch.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool, replacing any previous tool of the same name.
// An invalid schema is rejected at registration time rather than at call
// time.
func (r *Registry) Register(tool Tool) error {
	compiler := jsonschema.NewCompiler()
	url := "tool://" + tool.Name() + ".json"
	if err := compiler.AddResource(url, strings.NewReader(string(tool.Schema()))); err != nil {
		return fmt.Errorf("invalid schema for tool %s: %w", tool.Name(), err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return fmt.Errorf("invalid schema for tool %s: %w", tool.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
	r.schemas[tool.Name()] = schema
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Definitions returns the registered tools as completion-client tool
// definitions, sorted by name for a stable wire order.
func (r *Registry) Definitions() []llm.ToolDef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]llm.ToolDef, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, llm.ToolDef{
			Name:        tool.Name(),
			Description: tool.Description(),
			Schema:      tool.Schema(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute dispatches a tool call by name. Unknown names, oversized or
// schema-invalid arguments all yield error-shaped results so the turn can
// continue.
func (r *Registry) Execute(ctx context.Context, name string, params json.RawMessage, profile *models.UserProfileContext) (*Result, error) {
	if len(params) > MaxParamsSize {
		return &Result{
			Content: fmt.Sprintf("tool arguments exceed maximum size of %d bytes", MaxParamsSize),
			IsError: true,
		}, nil
	}

	r.mu.RLock()
	tool, ok := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return &Result{Content: "unknown tool: " + name, IsError: true}, nil
	}

	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	var decoded any
	if err := json.Unmarshal(params, &decoded); err != nil {
		return &Result{Content: "invalid tool arguments: " + err.Error(), IsError: true}, nil
	}
	if err := schema.Validate(decoded); err != nil {
		return &Result{Content: "invalid tool arguments: " + err.Error(), IsError: true}, nil
	}

	return tool.Execute(ctx, params, profile)
}

// errorResult serializes a structured error payload for the model.
func errorResult(msg string) *Result {
	payload, _ := json.Marshal(map[string]string{"error": msg})
	return &Result{Content: string(payload), IsError: true}
}
