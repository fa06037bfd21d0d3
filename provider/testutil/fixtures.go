package testutil

import (
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"supportagent/model"
)

// TestMessages returns a short sample conversation.
func TestMessages() []model.Message {
	return []model.Message{
		{
			Role:      "user",
			Content:   "Is the web server up?",
			Timestamp: time.Now(),
		},
		{
			Role:      "assistant",
			Content:   "Let me check for you.",
			Timestamp: time.Now(),
		},
		{
			Role:      "user",
			Content:   "Thanks, also check disk space.",
			Timestamp: time.Now(),
		},
	}
}

// SingleUserMessage returns a one-message history.
func SingleUserMessage(content string) []model.Message {
	return []model.Message{
		{
			Role:      "user",
			Content:   content,
			Timestamp: time.Now(),
		},
	}
}

// SystemMessage returns a system message.
func SystemMessage(content string) model.Message {
	return model.Message{
		Role:      "system",
		Content:   content,
		Timestamp: time.Now(),
	}
}

// TestCatalogue returns sample tool schemas.
func TestCatalogue() []mcptypes.Tool {
	return []mcptypes.Tool{
		{
			Name:        "run_on_jump_host",
			Description: "Execute a shell command on the jump host",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"command": map[string]any{
						"type":        "string",
						"description": "Shell command to execute",
					},
				},
				Required: []string{"command"},
			},
		},
		{
			Name:        "run_on_named_server",
			Description: "Execute a shell command on a named server",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"server_name": map[string]any{
						"type":        "string",
						"description": "Server name from the directory",
					},
					"command": map[string]any{
						"type":        "string",
						"description": "Shell command to execute",
					},
				},
				Required: []string{"server_name", "command"},
			},
		},
	}
}
