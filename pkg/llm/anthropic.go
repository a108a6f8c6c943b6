package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicAdapter speaks the Anthropic Messages API. The backend has no
// system-role message concept: the system prompt travels as a top-level
// field, and system turns in the history collapse onto the user role.
type anthropicAdapter struct {
	cfg    Config
	client *anthropic.Client
}

func newAnthropicAdapter(cfg Config) *anthropicAdapter {
	opts := []anthropicopt.RequestOption{anthropicopt.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(cfg.BaseURL))
	}
	cl := anthropic.NewClient(opts...)
	return &anthropicAdapter{cfg: cfg, client: &cl}
}

func (a *anthropicAdapter) Call(ctx context.Context, messages []Message, tools []ToolDeclaration, systemPrompt string) (*Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.cfg.Model),
		MaxTokens: int64(a.cfg.maxTokens()),
		Messages:  anthropicMessages(messages),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	for _, t := range tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.Parameters.Properties,
					Required:   t.Parameters.Required,
				},
			},
		})
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, a.wrapError(err)
	}

	var text strings.Builder
	for _, cb := range msg.Content {
		switch block := cb.AsAny().(type) {
		case anthropic.ToolUseBlock:
			args := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					return nil, &ProtocolError{Provider: a.cfg.Provider, Reason: "malformed tool_use input", Err: err}
				}
			}
			return &Response{ToolCalls: []ToolCall{{Name: block.Name, Args: args}}}, nil
		case anthropic.TextBlock:
			text.WriteString(block.Text)
		}
	}
	return &Response{Text: text.String()}, nil
}

func (a *anthropicAdapter) wrapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: a.cfg.Provider, Status: apiErr.StatusCode, Message: apiErr.Error()}
	}
	return err
}

func anthropicMessages(messages []Message) []anthropic.MessageParam {
	msgs := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if collapseRole(m.Role, RoleUser) == RoleAssistant {
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(block))
		}
	}
	return msgs
}
