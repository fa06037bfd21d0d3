package provider

import (
	"encoding/json"
	"fmt"

	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"

	"supportagent/model"
)

// ConvertToOllamaMessages converts agent messages to Ollama api.Message.
// Ollama accepts the "tool" role natively, so tool results map straight
// through.
func ConvertToOllamaMessages(messages []model.Message) []api.Message {
	result := make([]api.Message, len(messages))
	for i, msg := range messages {
		result[i] = api.Message{
			Role:    msg.Role,
			Content: msg.Content,
		}
		if msg.Role == "tool" && msg.ToolResult != nil {
			result[i].ToolName = msg.ToolResult.Name
		}
	}
	return result
}

// ConvertToOpenAIMessages converts agent messages to the OpenAI chat format.
func ConvertToOpenAIMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, len(messages))

	for i, msg := range messages {
		switch msg.Role {
		case "system":
			result[i] = openai.SystemMessage(msg.Content)
		case "user":
			result[i] = openai.UserMessage(msg.Content)
		case "assistant":
			result[i] = openai.AssistantMessage(msg.Content)
		case "tool":
			// Without per-call IDs tool results travel as user messages,
			// labeled so the model can attribute them.
			result[i] = openai.UserMessage(toolResultText(msg))
		default:
			result[i] = openai.UserMessage(msg.Content)
		}
	}

	return result
}

// toolResultText renders a tool message for providers without a native
// tool-result role in our request path.
func toolResultText(msg model.Message) string {
	if msg.ToolResult == nil {
		return msg.Content
	}
	if msg.ToolResult.IsError {
		return fmt.Sprintf("[tool %s failed] %s", msg.ToolResult.Name, msg.ToolResult.Payload)
	}
	return fmt.Sprintf("[tool %s result] %s", msg.ToolResult.Name, msg.ToolResult.Payload)
}

// ParseToolArguments parses a JSON arguments string into a map. Used by the
// OpenAI provider for tool call parsing; malformed JSON yields an empty map.
func ParseToolArguments(argsJSON string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return make(map[string]any)
	}
	return args
}

// ConvertToProviderToolCalls converts Ollama tool calls to the
// provider-agnostic form. Returns nil for empty input.
func ConvertToProviderToolCalls(ollamaCalls []api.ToolCall) []model.ToolCall {
	if len(ollamaCalls) == 0 {
		return nil
	}

	result := make([]model.ToolCall, len(ollamaCalls))
	for i, call := range ollamaCalls {
		result[i] = model.ToolCall{
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		}
	}
	return result
}
