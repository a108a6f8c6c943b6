// Package llm normalizes heterogeneous LLM provider wire formats into one
// internal representation. All provider-specific knowledge lives in the
// adapters here; callers speak messages, tool declarations, and responses.
package llm

import "context"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	// RoleModel is an alias some backends use for assistant turns.
	RoleModel Role = "model"
)

// Message is one turn of dialogue. Ordering is significant: providers are
// stateless, so the full sequence is replayed on every call.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Property describes one parameter of a tool schema.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Schema is the closed JSON-schema object shape tool declarations advertise:
// typed properties plus a required-field list.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// ObjectSchema returns an object schema over the given properties.
func ObjectSchema(props map[string]Property, required ...string) Schema {
	return Schema{Type: "object", Properties: props, Required: required}
}

// ToolDeclaration advertises a callable capability to the model.
type ToolDeclaration struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// ToolCall is a model-issued request to invoke a tool.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Response is the provider-neutral result of one model call. Exactly one of
// Text or ToolCalls is populated; a provider that returns both collapses to
// tool-call-wins.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderOpenAI      Provider = "openai"
	ProviderAnthropic   Provider = "anthropic"
	ProviderGemini      Provider = "gemini"
	ProviderOllama      Provider = "ollama"
	ProviderOpenRouter  Provider = "openrouter"
	ProviderAzureOpenAI Provider = "azure-openai"
	ProviderCustom      Provider = "custom"
)

const (
	defaultMaxTokens   = 4096
	defaultTemperature = 0.7
)

// Config selects a provider and carries its credentials and tuning knobs.
// Zero Temperature and MaxTokens fall back to provider defaults.
type Config struct {
	Provider        Provider `json:"provider"`
	APIKey          string   `json:"apiKey"`
	Model           string   `json:"model"`
	BaseURL         string   `json:"baseUrl,omitempty"`         // azure-openai, ollama, openrouter, custom
	AzureDeployment string   `json:"azureDeployment,omitempty"` // azure-openai only
	Temperature     float64  `json:"temperature,omitempty"`
	MaxTokens       int      `json:"maxTokens,omitempty"`
}

func (c Config) temperature() float64 {
	if c.Temperature <= 0 {
		return defaultTemperature
	}
	return c.Temperature
}

func (c Config) maxTokens() int {
	if c.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return c.MaxTokens
}

// Adapter translates the neutral message list plus tool declarations into one
// provider's wire format and the reply back into a Response. Each Call issues
// exactly one request.
type Adapter interface {
	Call(ctx context.Context, messages []Message, tools []ToolDeclaration, systemPrompt string) (*Response, error)
}

// NewAdapter dispatches over the closed set of supported providers. An
// unrecognized identifier fails here, before any network activity.
func NewAdapter(cfg Config) (Adapter, error) {
	switch cfg.Provider {
	case ProviderOpenAI, ProviderOpenRouter, ProviderAzureOpenAI, ProviderCustom:
		return newChatAdapter(cfg), nil
	case ProviderAnthropic:
		return newAnthropicAdapter(cfg), nil
	case ProviderGemini:
		return &geminiAdapter{cfg: cfg}, nil
	case ProviderOllama:
		return newOllamaAdapter(cfg), nil
	default:
		return nil, &UnsupportedProviderError{Provider: cfg.Provider}
	}
}

// Call resolves the adapter for cfg and issues a single model call.
func Call(ctx context.Context, cfg Config, messages []Message, tools []ToolDeclaration, systemPrompt string) (*Response, error) {
	adapter, err := NewAdapter(cfg)
	if err != nil {
		return nil, err
	}
	return adapter.Call(ctx, messages, tools, systemPrompt)
}

// Summarize asks the model for a concise summary of already-redacted text.
// On an empty reply the input text is returned unchanged.
func Summarize(ctx context.Context, cfg Config, text string) (string, error) {
	resp, err := Call(ctx, cfg,
		[]Message{{Role: RoleUser, Content: "Summarize the following data concisely:\n\n" + text}},
		nil,
		"You are a helpful assistant that summarizes Adobe Experience Platform data.")
	if err != nil {
		return "", err
	}
	if resp.Text == "" {
		return text, nil
	}
	return resp.Text, nil
}

// collapseRole maps the neutral role onto the closest role a backend
// understands. systemAs names the substitute for system turns on backends
// without a system-role concept.
func collapseRole(role Role, systemAs Role) Role {
	switch role {
	case RoleModel:
		return RoleAssistant
	case RoleSystem:
		return systemAs
	default:
		return role
	}
}
