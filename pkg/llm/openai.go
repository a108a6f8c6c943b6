package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	azureAPIVersion   = "2024-02-15-preview"
)

// chatAdapter covers the chat-completion wire family: OpenAI itself plus the
// OpenAI-compatible backends (OpenRouter, Azure OpenAI deployments, and
// custom endpoints). Only the client configuration differs per provider; the
// request and response shapes are shared.
type chatAdapter struct {
	cfg    Config
	client *openai.Client
}

func newChatAdapter(cfg Config) *chatAdapter {
	var clientCfg openai.ClientConfig
	switch cfg.Provider {
	case ProviderOpenRouter:
		clientCfg = openai.DefaultConfig(cfg.APIKey)
		clientCfg.BaseURL = openRouterBaseURL
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		}
	case ProviderAzureOpenAI:
		clientCfg = openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
		clientCfg.APIVersion = azureAPIVersion
		if cfg.AzureDeployment != "" {
			deployment := cfg.AzureDeployment
			clientCfg.AzureModelMapperFunc = func(string) string { return deployment }
		}
	case ProviderCustom:
		clientCfg = openai.DefaultConfig(cfg.APIKey)
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/v1"
	default:
		clientCfg = openai.DefaultConfig(cfg.APIKey)
	}
	return &chatAdapter{cfg: cfg, client: openai.NewClientWithConfig(clientCfg)}
}

func (a *chatAdapter) Call(ctx context.Context, messages []Message, tools []ToolDeclaration, systemPrompt string) (*Response, error) {
	req := openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		Messages:    chatMessages(messages, systemPrompt),
		MaxTokens:   a.cfg.maxTokens(),
		Temperature: float32(a.cfg.temperature()),
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, a.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return &Response{}, nil
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		calls := make([]ToolCall, 0, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			args, err := parseToolArguments(tc.Function.Arguments)
			if err != nil {
				return nil, &ProtocolError{Provider: a.cfg.Provider, Reason: "malformed tool arguments", Err: err}
			}
			calls = append(calls, ToolCall{Name: tc.Function.Name, Args: args})
		}
		return &Response{ToolCalls: calls}, nil
	}
	return &Response{Text: msg.Content}, nil
}

func (a *chatAdapter) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: a.cfg.Provider, Status: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	return err
}

// chatMessages flattens the system prompt into a leading system-role entry.
func chatMessages(messages []Message, systemPrompt string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    string(collapseRole(m.Role, RoleSystem)),
			Content: m.Content,
		})
	}
	return msgs
}

// parseToolArguments decodes an encoded argument payload, tolerating an
// empty or absent payload as an empty record.
func parseToolArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
