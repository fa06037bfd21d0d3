package model

import (
	"time"

	"github.com/google/uuid"
)

// Message represents a single entry in a conversation. Messages are
// immutable once appended to a conversation history.
type Message struct {
	ID         string
	Role       string // "system", "user", "assistant" or "tool"
	Content    string
	ToolCall   *ToolCall   // set on assistant messages that requested a tool
	ToolResult *ToolResult // set on tool messages carrying a result
	Timestamp  time.Time
}

// ToolCall is a provider-agnostic tool invocation request from the LLM.
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

// ToolResult carries the outcome of one tool call back into the
// conversation. Payload holds the rendered result text; IsError marks
// results that describe a failure the model should reason about.
type ToolResult struct {
	Name    string
	Payload string
	IsError bool
}

// NewUserMessage creates a user message with a fresh ID and timestamp.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      "user",
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage creates an assistant message with a fresh ID and timestamp.
func NewAssistantMessage(content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      "assistant",
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewToolResultMessage creates a tool message wrapping one tool result.
func NewToolResultMessage(result ToolResult) Message {
	return Message{
		ID:         uuid.New().String(),
		Role:       "tool",
		Content:    result.Payload,
		ToolResult: &result,
		Timestamp:  time.Now(),
	}
}
