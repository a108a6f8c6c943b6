package llm

import (
	"context"
	"errors"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// geminiAdapter speaks the generation-style Gemini API. Assistant turns map
// onto the "model" role; every other role (including system turns in the
// history) maps onto "user". The system prompt travels as a distinct
// system-instruction field, and tool declarations as function declarations.
type geminiAdapter struct {
	cfg Config
}

func (g *geminiAdapter) Call(ctx context.Context, messages []Message, tools []ToolDeclaration, systemPrompt string) (*Response, error) {
	opts := []option.ClientOption{option.WithAPIKey(g.cfg.APIKey)}
	if g.cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(g.cfg.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	model := client.GenerativeModel(g.cfg.Model)
	model.SetTemperature(float32(g.cfg.temperature()))
	model.SetMaxOutputTokens(int32(g.cfg.maxTokens()))
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  geminiSchema(t.Parameters),
			})
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	if len(messages) == 0 {
		return nil, &ProtocolError{Provider: g.cfg.Provider, Reason: "no messages to send"}
	}
	last := messages[len(messages)-1]
	chat := model.StartChat()
	chat.History = geminiHistory(messages[:len(messages)-1])

	resp, err := chat.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return nil, g.wrapError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return &Response{}, nil
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.FunctionCall:
			args := p.Args
			if args == nil {
				args = map[string]any{}
			}
			return &Response{ToolCalls: []ToolCall{{Name: p.Name, Args: args}}}, nil
		case genai.Text:
			text.WriteString(string(p))
		}
	}
	return &Response{Text: text.String()}, nil
}

func (g *geminiAdapter) wrapError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: g.cfg.Provider, Status: apiErr.Code, Message: apiErr.Message}
	}
	return err
}

func geminiHistory(messages []Message) []*genai.Content {
	history := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == RoleAssistant || m.Role == RoleModel {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return history
}

func geminiSchema(s Schema) *genai.Schema {
	out := &genai.Schema{Type: genai.TypeObject, Required: s.Required}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = &genai.Schema{
				Type:        geminiType(prop.Type),
				Description: prop.Description,
				Enum:        prop.Enum,
			}
		}
	}
	return out
}

func geminiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}
