package provider

import (
	"testing"
	"time"

	"github.com/ollama/ollama/api"

	"supportagent/model"
	"supportagent/provider/testutil"
)

func TestConvertToOllamaMessages(t *testing.T) {
	tests := []struct {
		name     string
		input    []model.Message
		expected []api.Message
	}{
		{
			name:     "empty slice",
			input:    []model.Message{},
			expected: []api.Message{},
		},
		{
			name: "single message",
			input: []model.Message{
				{Role: "user", Content: "Hello"},
			},
			expected: []api.Message{
				{Role: "user", Content: "Hello"},
			},
		},
		{
			name: "conversation with system prompt",
			input: []model.Message{
				{Role: "system", Content: "You are a support agent.", Timestamp: time.Now()},
				{Role: "user", Content: "Is db1 up?", Timestamp: time.Now()},
				{Role: "assistant", Content: "Checking now.", Timestamp: time.Now()},
			},
			expected: []api.Message{
				{Role: "system", Content: "You are a support agent."},
				{Role: "user", Content: "Is db1 up?"},
				{Role: "assistant", Content: "Checking now."},
			},
		},
		{
			name: "tool result carries tool name",
			input: []model.Message{
				{
					Role:    "tool",
					Content: `{"stdout":"up 3 days"}`,
					ToolResult: &model.ToolResult{
						Name:    "run_on_jump_host",
						Payload: `{"stdout":"up 3 days"}`,
					},
				},
			},
			expected: []api.Message{
				{Role: "tool", Content: `{"stdout":"up 3 days"}`, ToolName: "run_on_jump_host"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertToOllamaMessages(tt.input)

			if len(result) != len(tt.expected) {
				t.Fatalf("length mismatch: got %d, want %d", len(result), len(tt.expected))
			}

			for i, msg := range result {
				if msg.Role != tt.expected[i].Role {
					t.Errorf("message %d role: got %q, want %q", i, msg.Role, tt.expected[i].Role)
				}
				if msg.Content != tt.expected[i].Content {
					t.Errorf("message %d content: got %q, want %q", i, msg.Content, tt.expected[i].Content)
				}
				if msg.ToolName != tt.expected[i].ToolName {
					t.Errorf("message %d tool name: got %q, want %q", i, msg.ToolName, tt.expected[i].ToolName)
				}
			}
		})
	}
}

func TestConvertToOpenAIMessages(t *testing.T) {
	messages := append([]model.Message{testutil.SystemMessage("Be helpful.")}, testutil.TestMessages()...)

	result := ConvertToOpenAIMessages(messages)
	if len(result) != len(messages) {
		t.Fatalf("length mismatch: got %d, want %d", len(result), len(messages))
	}
	if result[0].OfSystem == nil {
		t.Error("first message should be a system message")
	}
	if result[1].OfUser == nil {
		t.Error("second message should be a user message")
	}
	if result[2].OfAssistant == nil {
		t.Error("third message should be an assistant message")
	}
}

func TestConvertToOpenAIMessagesToolResult(t *testing.T) {
	messages := append(testutil.SingleUserMessage("check db1"), model.Message{
		Role: "tool",
		ToolResult: &model.ToolResult{
			Name:    "run_on_named_server",
			Payload: `{"stdout":"up"}`,
		},
	})

	result := ConvertToOpenAIMessages(messages)
	if len(result) != 2 {
		t.Fatalf("length mismatch: got %d, want 2", len(result))
	}
	// Tool results travel as labeled user messages.
	if result[1].OfUser == nil {
		t.Fatal("tool result should convert to a user message")
	}
}

func TestConvertToProviderToolCalls(t *testing.T) {
	tests := []struct {
		name  string
		input []api.ToolCall
		want  []model.ToolCall
	}{
		{
			name:  "nil input",
			input: nil,
			want:  nil,
		},
		{
			name: "single call",
			input: []api.ToolCall{
				{Function: api.ToolCallFunction{
					Name:      "run_on_named_server",
					Arguments: map[string]any{"server_name": "db1", "command": "uptime"},
				}},
			},
			want: []model.ToolCall{
				{Name: "run_on_named_server", Arguments: map[string]any{"server_name": "db1", "command": "uptime"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertToProviderToolCalls(tt.input)

			if len(result) != len(tt.want) {
				t.Fatalf("length mismatch: got %d, want %d", len(result), len(tt.want))
			}
			for i, call := range result {
				if call.Name != tt.want[i].Name {
					t.Errorf("call %d name: got %q, want %q", i, call.Name, tt.want[i].Name)
				}
				if len(call.Arguments) != len(tt.want[i].Arguments) {
					t.Errorf("call %d arguments: got %v, want %v", i, call.Arguments, tt.want[i].Arguments)
				}
			}
		})
	}
}

func TestParseToolArguments(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKeys int
	}{
		{"valid json", `{"command": "uptime"}`, 1},
		{"empty object", `{}`, 0},
		{"malformed json", `{command: uptime`, 0},
		{"empty string", ``, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := ParseToolArguments(tt.input)
			if args == nil {
				t.Fatal("ParseToolArguments returned nil map")
			}
			if len(args) != tt.wantKeys {
				t.Errorf("got %d keys, want %d", len(args), tt.wantKeys)
			}
		})
	}
}

func TestToolResultText(t *testing.T) {
	tests := []struct {
		name string
		msg  model.Message
		want string
	}{
		{
			name: "no tool result falls back to content",
			msg:  model.Message{Role: "tool", Content: "raw"},
			want: "raw",
		},
		{
			name: "success result",
			msg: model.Message{
				Role:       "tool",
				ToolResult: &model.ToolResult{Name: "get_system_status", Payload: `{"cpu":1}`},
			},
			want: `[tool get_system_status result] {"cpu":1}`,
		},
		{
			name: "error result",
			msg: model.Message{
				Role:       "tool",
				ToolResult: &model.ToolResult{Name: "query_database", Payload: "connection refused", IsError: true},
			},
			want: "[tool query_database failed] connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toolResultText(tt.msg)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
