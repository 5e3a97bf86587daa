package models

import (
	"encoding/json"
	"time"
)

// Role indicates the message author type.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single entry in a session's conversation history.
// Messages are append-only within a session; a cleared session replaces
// the whole slice rather than mutating entries.
type Message struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
}

// ToolCall records one model-requested tool invocation and its outcome.
// Result is always set after execution: either the tool's JSON output or
// an {"error": "..."} object describing the failure.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Result    json.RawMessage `json:"result,omitempty"`
}

// ChatState is the full conversational state for one session. Exactly one
// instance exists per live session id, owned by that session's agent and
// mutated only while the agent's turn lock is held.
type ChatState struct {
	SessionID        string    `json:"sessionId"`
	Messages         []Message `json:"messages"`
	IsProcessing     bool      `json:"isProcessing"`
	Model            string    `json:"model"`
	StreamingMessage string    `json:"streamingMessage,omitempty"`
}

// SessionInfo is the durable metadata record for a session.
type SessionInfo struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
}
