package tools

import (
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"

	"supportagent/provider/testutil"
)

func TestCatalogueToOllama(t *testing.T) {
	tests := []struct {
		name     string
		input    []mcptypes.Tool
		validate func(t *testing.T, result []api.Tool)
	}{
		{
			name:  "empty catalogue",
			input: []mcptypes.Tool{},
			validate: func(t *testing.T, result []api.Tool) {
				if len(result) != 0 {
					t.Errorf("expected empty slice, got %d tools", len(result))
				}
			},
		},
		{
			name:  "builtin catalogue",
			input: testutil.TestCatalogue(),
			validate: func(t *testing.T, result []api.Tool) {
				if len(result) != 2 {
					t.Fatalf("expected 2 tools, got %d", len(result))
				}
				if result[0].Type != "function" {
					t.Errorf("expected type 'function', got %q", result[0].Type)
				}
				if result[0].Function.Name != "run_on_jump_host" {
					t.Errorf("expected name 'run_on_jump_host', got %q", result[0].Function.Name)
				}

				params := result[1].Function.Parameters
				if params.Type != "object" {
					t.Errorf("expected type 'object', got %q", params.Type)
				}
				if len(params.Required) != 2 {
					t.Errorf("expected 2 required fields, got %d", len(params.Required))
				}
				prop, ok := params.Properties["server_name"]
				if !ok {
					t.Fatal("server_name property not found")
				}
				if len(prop.Type) != 1 || prop.Type[0] != "string" {
					t.Errorf("server_name type: got %v", prop.Type)
				}
				if prop.Description != "Server name from the directory" {
					t.Errorf("server_name description mismatch: %q", prop.Description)
				}
			},
		},
		{
			name: "tool with enum property",
			input: []mcptypes.Tool{
				{
					Name:        "set_level",
					Description: "Set the log level",
					InputSchema: mcptypes.ToolInputSchema{
						Type: "object",
						Properties: map[string]any{
							"level": map[string]any{
								"type":        "string",
								"description": "Log level",
								"enum":        []any{"debug", "info", "warn"},
							},
						},
						Required: []string{"level"},
					},
				},
			},
			validate: func(t *testing.T, result []api.Tool) {
				prop := result[0].Function.Parameters.Properties["level"]
				if len(prop.Enum) != 3 {
					t.Errorf("expected 3 enum values, got %d", len(prop.Enum))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, CatalogueToOllama(tt.input))
		})
	}
}

func TestCatalogueToOpenAI(t *testing.T) {
	result := CatalogueToOpenAI(testutil.TestCatalogue())

	if len(result) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(result))
	}

	fn := result[0].OfFunction
	if fn == nil {
		t.Fatal("expected a function tool")
	}
	if fn.Function.Name != "run_on_jump_host" {
		t.Errorf("name: got %q", fn.Function.Name)
	}
	params := fn.Function.Parameters
	if params["type"] != "object" {
		t.Errorf("parameters type: got %v", params["type"])
	}
	required, ok := params["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "command" {
		t.Errorf("required: got %v", params["required"])
	}

	if CatalogueToOpenAI(nil) != nil {
		t.Error("nil catalogue should convert to nil")
	}
}

func TestCatalogueToAnthropic(t *testing.T) {
	result := CatalogueToAnthropic(testutil.TestCatalogue())

	if len(result) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(result))
	}

	tool := result[1].OfTool
	if tool == nil {
		t.Fatal("expected a tool variant")
	}
	if tool.Name != "run_on_named_server" {
		t.Errorf("name: got %q", tool.Name)
	}
	if len(tool.InputSchema.Required) != 2 {
		t.Errorf("required: got %v", tool.InputSchema.Required)
	}
	if tool.Description.Value == "" {
		t.Error("description should carry over")
	}

	if CatalogueToAnthropic(nil) != nil {
		t.Error("nil catalogue should convert to nil")
	}
}
