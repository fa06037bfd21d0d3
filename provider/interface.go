// Package provider implements the LLM provider clients behind the
// model.Provider interface.
//
// The agent core is provider-agnostic: it hands the provider a message
// history plus the tool catalogue and receives text chunks and tool call
// requests through a stream callback. All conversions between the agent's
// types and each vendor's wire format live here.
package provider

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOllama    ProviderType = "ollama"
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeAnthropic ProviderType = "anthropic"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // unused for Ollama
}
