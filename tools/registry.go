// Package tools holds the tool registry and the built-in tools the agent
// exposes to the LLM: remote command execution through the jump host,
// read-only database queries and local system status.
package tools

import (
	"context"
	"fmt"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"supportagent/config"
	"supportagent/model"
)

// Handler executes one tool call. Arguments have already been validated
// against the tool's input schema. The returned string is the payload fed
// back to the LLM, usually JSON.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Definition binds a tool schema to its handler.
type Definition struct {
	Tool    mcptypes.Tool
	Handler Handler
}

// Registry holds the tools available to the agent. Tools are registered at
// startup and the registry is read-mostly afterwards, shared across all
// concurrent turns.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Definition
	order []string
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Definition),
	}
}

// Register adds a tool. Names are unique: registering the same name twice
// fails with ErrDuplicateTool.
func (r *Registry) Register(def Definition) error {
	if def.Tool.Name == "" {
		return fmt.Errorf("tool has no name")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %q has no handler", def.Tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, def.Tool.Name)
	}

	r.tools[def.Tool.Name] = def
	r.order = append(r.order, def.Tool.Name)

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[registry] registered tool: %s", def.Tool.Name)
	}
	return nil
}

// Catalogue returns the tool schemas in registration order. This is the
// exact structure handed to the provider so the LLM can pick a tool.
func (r *Registry) Catalogue() []mcptypes.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	catalogue := make([]mcptypes.Tool, 0, len(r.order))
	for _, name := range r.order {
		catalogue = append(catalogue, r.tools[name].Tool)
	}
	return catalogue
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Invoke validates the arguments against the tool's schema and runs the
// handler. Validation failures never reach the handler.
func (r *Registry) Invoke(ctx context.Context, call model.ToolCall) (string, error) {
	r.mu.RLock()
	def, ok := r.tools[call.Name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, call.Name)
	}

	if err := validateArguments(def.Tool, call.Arguments); err != nil {
		return "", &ArgumentError{Tool: call.Name, Reason: err.Error()}
	}

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[registry] invoking tool: %s", call.Name)
	}

	return def.Handler(ctx, call.Arguments)
}

// validateArguments checks the call arguments against the tool's input
// schema: required properties must be present, unknown properties are
// rejected, and primitive types must match.
func validateArguments(tool mcptypes.Tool, args map[string]any) error {
	schema := tool.InputSchema

	for _, name := range schema.Required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("missing required argument %q", name)
		}
	}

	for name, value := range args {
		prop, declared := schema.Properties[name]
		if !declared {
			return fmt.Errorf("unknown argument %q", name)
		}

		propMap, ok := prop.(map[string]any)
		if !ok {
			continue
		}
		wantType, ok := propMap["type"].(string)
		if !ok {
			continue
		}
		if err := checkType(name, wantType, value); err != nil {
			return err
		}
	}

	return nil
}

func checkType(name, wantType string, value any) error {
	switch wantType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("argument %q must be a string", name)
		}
	case "number":
		switch value.(type) {
		case float64, float32, int, int64:
		default:
			return fmt.Errorf("argument %q must be a number", name)
		}
	case "integer":
		switch v := value.(type) {
		case int, int64:
		case float64:
			if v != float64(int64(v)) {
				return fmt.Errorf("argument %q must be an integer", name)
			}
		default:
			return fmt.Errorf("argument %q must be an integer", name)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("argument %q must be a boolean", name)
		}
	}
	return nil
}
