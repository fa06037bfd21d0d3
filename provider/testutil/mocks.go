// Package testutil provides a scriptable mock provider and conversation
// fixtures for agent and provider tests.
package testutil

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"supportagent/model"
)

// MockProvider implements model.Provider for testing. Each behavior is a
// swappable func field with an echoing default.
type MockProvider struct {
	ChatFunc          func(ctx context.Context, messages []model.Message, callback model.StreamCallback) error
	ChatWithToolsFunc func(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error
	PingFunc          func(ctx context.Context) error

	currentModel string

	// Calls counts ChatWithTools invocations, useful for asserting loop
	// round counts.
	Calls int
}

// NewMockProvider creates a mock with default implementations.
func NewMockProvider(modelName string) *MockProvider {
	mock := &MockProvider{
		currentModel: modelName,
	}
	mock.ChatFunc = mock.defaultChat
	mock.ChatWithToolsFunc = mock.defaultChatWithTools
	mock.PingFunc = mock.defaultPing
	return mock
}

func (m *MockProvider) defaultChat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	if len(messages) > 0 && callback != nil {
		return callback("Mock response", nil)
	}
	return nil
}

func (m *MockProvider) defaultChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
	if callback != nil {
		return callback("Mock response with tools", nil)
	}
	return nil
}

func (m *MockProvider) defaultPing(ctx context.Context) error {
	return nil
}

func (m *MockProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	return m.ChatFunc(ctx, messages, callback)
}

func (m *MockProvider) ChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
	m.Calls++
	return m.ChatWithToolsFunc(ctx, messages, tools, callback)
}

func (m *MockProvider) GetModel() string {
	return m.currentModel
}

func (m *MockProvider) SetModel(model string) {
	m.currentModel = model
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}

// ScriptedProvider returns a mock whose ChatWithTools works through the
// given responses in order, one per call. A response with tool calls emits
// them through the callback; otherwise the text is streamed as one chunk.
func ScriptedProvider(modelName string, responses []ScriptedResponse) *MockProvider {
	mock := NewMockProvider(modelName)
	call := 0
	mock.ChatWithToolsFunc = func(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
		if call >= len(responses) {
			return callback("", nil)
		}
		resp := responses[call]
		call++

		if len(resp.ToolCalls) > 0 {
			return callback("", resp.ToolCalls)
		}
		return callback(resp.Text, nil)
	}
	return mock
}

// ScriptedResponse is one turn of a scripted provider conversation.
type ScriptedResponse struct {
	Text      string
	ToolCalls []model.ToolCall
}
