package provider

import (
	"encoding/json"
	"strings"

	"supportagent/model"
)

// Some models emit tool calls as plain text instead of using the native
// tool-call channel, especially smaller open models behind OpenAI-compatible
// endpoints. The parsers below recover those leaked calls from the
// accumulated response text so a turn does not silently end with a JSON
// blob shown to the user.

type leakedCall struct {
	Name       string         `json:"name"`
	Arguments  map[string]any `json:"arguments"`
	Parameters map[string]any `json:"parameters"`
}

func (l leakedCall) toToolCall() (model.ToolCall, bool) {
	if l.Name == "" {
		return model.ToolCall{}, false
	}
	args := l.Arguments
	if args == nil {
		args = l.Parameters
	}
	if args == nil {
		args = make(map[string]any)
	}
	return model.ToolCall{Name: l.Name, Arguments: args}, true
}

// ParseLeakedJSONToolCalls extracts tool calls written as bare JSON objects
// of the form {"name": ..., "arguments": {...}}, either as the whole
// response or inside a fenced code block.
func ParseLeakedJSONToolCalls(content string) []model.ToolCall {
	var calls []model.ToolCall

	for _, candidate := range jsonCandidates(content) {
		var leaked leakedCall
		if err := json.Unmarshal([]byte(candidate), &leaked); err != nil {
			continue
		}
		if call, ok := leaked.toToolCall(); ok {
			calls = append(calls, call)
		}
	}

	return calls
}

func jsonCandidates(content string) []string {
	var candidates []string

	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		candidates = append(candidates, trimmed)
	}

	// Fenced blocks: ```json ... ``` or bare ``` ... ```
	rest := content
	for {
		start := strings.Index(rest, "```")
		if start < 0 {
			break
		}
		rest = rest[start+3:]

		end := strings.Index(rest, "```")
		if end < 0 {
			break
		}
		block := rest[:end]
		rest = rest[end+3:]

		// Drop a language tag on the first line.
		if nl := strings.Index(block, "\n"); nl >= 0 {
			firstLine := strings.TrimSpace(block[:nl])
			if firstLine != "" && !strings.HasPrefix(firstLine, "{") {
				block = block[nl+1:]
			}
		}

		block = strings.TrimSpace(block)
		if strings.HasPrefix(block, "{") && strings.HasSuffix(block, "}") {
			candidates = append(candidates, block)
		}
	}

	return candidates
}

// ParseLeakedXMLToolCalls extracts tool calls wrapped in <tool_call> tags
// with a JSON body, as emitted by Qwen-family models.
func ParseLeakedXMLToolCalls(content string) []model.ToolCall {
	var calls []model.ToolCall

	rest := content
	for {
		start := strings.Index(rest, "<tool_call>")
		if start < 0 {
			break
		}
		rest = rest[start+len("<tool_call>"):]

		end := strings.Index(rest, "</tool_call>")
		if end < 0 {
			break
		}
		body := strings.TrimSpace(rest[:end])
		rest = rest[end+len("</tool_call>"):]

		var leaked leakedCall
		if err := json.Unmarshal([]byte(body), &leaked); err != nil {
			continue
		}
		if call, ok := leaked.toToolCall(); ok {
			calls = append(calls, call)
		}
	}

	return calls
}
