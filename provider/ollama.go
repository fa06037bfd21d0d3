package provider

import (
	"context"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"

	"supportagent/model"
	"supportagent/ollama"
	"supportagent/tools"
)

// OllamaProvider wraps ollama.Client to implement model.Provider. It
// converts between agent types and the Ollama API types on the way through.
type OllamaProvider struct {
	client *ollama.Client
}

// NewOllamaProvider creates an Ollama provider. Empty baseURL and model
// fall back to the client defaults.
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	client, err := ollama.NewClient(baseURL, model)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &OllamaProvider{
		client: client,
	}, nil
}

// Chat implements model.Provider.Chat by delegating to ChatWithTools with
// no tools.
func (p *OllamaProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	return p.ChatWithTools(ctx, messages, nil, callback)
}

// ChatWithTools implements model.Provider.ChatWithTools. Tool calls from
// the model arrive through the wrapped callback in provider-agnostic form.
func (p *OllamaProvider) ChatWithTools(ctx context.Context, messages []model.Message, catalogue []mcptypes.Tool, callback model.StreamCallback) error {
	ollamaMessages := ConvertToOllamaMessages(messages)

	var ollamaTools []api.Tool
	if len(catalogue) > 0 {
		ollamaTools = tools.CatalogueToOllama(catalogue)
	}

	ollamaCallback := func(chunk string, ollamaCalls []api.ToolCall) error {
		if callback == nil {
			return nil
		}
		return callback(chunk, ConvertToProviderToolCalls(ollamaCalls))
	}

	return p.client.ChatWithTools(ctx, ollamaMessages, ollamaTools, ollamaCallback)
}

// GetModel implements model.Provider.GetModel.
func (p *OllamaProvider) GetModel() string {
	return p.client.GetModel()
}

// SetModel implements model.Provider.SetModel.
func (p *OllamaProvider) SetModel(model string) {
	p.client.SetModel(model)
}

// Ping implements model.Provider.Ping.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// SupportsToolCalling reports whether the configured model is known to
// support tool calling.
func (p *OllamaProvider) SupportsToolCalling() bool {
	return p.client.SupportsToolCalling()
}
