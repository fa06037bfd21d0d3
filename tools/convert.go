package tools

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// The registry catalogue uses MCP tool schemas as the neutral format. Each
// provider client converts the catalogue to its own wire format with one of
// the functions below.

// CatalogueToOllama converts tool schemas to the Ollama API tool format.
func CatalogueToOllama(catalogue []mcptypes.Tool) []api.Tool {
	ollamaTools := make([]api.Tool, 0, len(catalogue))

	for _, tool := range catalogue {
		ollamaTools = append(ollamaTools, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  schemaToOllamaParameters(tool.InputSchema),
			},
		})
	}

	return ollamaTools
}

func schemaToOllamaParameters(schema mcptypes.ToolInputSchema) api.ToolFunctionParameters {
	params := api.ToolFunctionParameters{
		Type:       schema.Type,
		Required:   schema.Required,
		Properties: make(map[string]api.ToolProperty),
	}

	if schema.Defs != nil {
		params.Defs = schema.Defs
	}

	for name, value := range schema.Properties {
		params.Properties[name] = toOllamaProperty(value)
	}

	return params
}

func toOllamaProperty(value any) api.ToolProperty {
	prop := api.ToolProperty{}

	propMap, ok := value.(map[string]any)
	if !ok {
		// Round-trip through JSON for struct-typed schema values.
		bytes, err := json.Marshal(value)
		if err != nil {
			return prop
		}
		var m map[string]any
		if err := json.Unmarshal(bytes, &m); err != nil {
			return prop
		}
		propMap = m
	}

	// "type" can be a single string or a list of alternatives.
	if typeVal, ok := propMap["type"]; ok {
		switch t := typeVal.(type) {
		case string:
			prop.Type = api.PropertyType{t}
		case []string:
			prop.Type = api.PropertyType(t)
		case []any:
			types := make([]string, 0, len(t))
			for _, v := range t {
				if s, ok := v.(string); ok {
					types = append(types, s)
				}
			}
			prop.Type = api.PropertyType(types)
		}
	}

	if desc, ok := propMap["description"].(string); ok {
		prop.Description = desc
	}

	if enumVal, ok := propMap["enum"].([]any); ok {
		prop.Enum = enumVal
	}

	if items, ok := propMap["items"]; ok {
		prop.Items = items
	}

	if anyOf, ok := propMap["anyOf"].([]any); ok {
		anyOfProps := make([]api.ToolProperty, 0, len(anyOf))
		for _, item := range anyOf {
			anyOfProps = append(anyOfProps, toOllamaProperty(item))
		}
		prop.AnyOf = anyOfProps
	}

	return prop
}

// CatalogueToOpenAI converts tool schemas to the OpenAI function-tool
// format. Both sides are JSON Schema, so the input schema passes through as
// a parameter map.
func CatalogueToOpenAI(catalogue []mcptypes.Tool) []openai.ChatCompletionToolUnionParam {
	if len(catalogue) == 0 {
		return nil
	}

	result := make([]openai.ChatCompletionToolUnionParam, len(catalogue))

	for i, tool := range catalogue {
		params := openai.FunctionParameters{
			"type":       tool.InputSchema.Type,
			"properties": tool.InputSchema.Properties,
		}
		if len(tool.InputSchema.Required) > 0 {
			params["required"] = tool.InputSchema.Required
		}
		if tool.InputSchema.Defs != nil {
			params["$defs"] = tool.InputSchema.Defs
		}

		result[i] = openai.ChatCompletionFunctionTool(
			openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  params,
			},
		)
	}

	return result
}

// CatalogueToAnthropic converts tool schemas to the Anthropic tool-use
// format.
func CatalogueToAnthropic(catalogue []mcptypes.Tool) []anthropic.ToolUnionParam {
	if len(catalogue) == 0 {
		return nil
	}

	result := make([]anthropic.ToolUnionParam, len(catalogue))

	for i, tool := range catalogue {
		inputSchema := anthropic.ToolInputSchemaParam{
			Properties: tool.InputSchema.Properties,
		}
		if len(tool.InputSchema.Required) > 0 {
			inputSchema.Required = tool.InputSchema.Required
		}
		if tool.InputSchema.Defs != nil {
			inputSchema.ExtraFields = map[string]any{
				"$defs": tool.InputSchema.Defs,
			}
		}

		result[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Name)
		if tool.Description != "" {
			result[i].OfTool.Description = anthropic.String(tool.Description)
		}
	}

	return result
}
