package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

const defaultOllamaHost = "http://localhost:11434"

// ollamaAdapter talks to a local Ollama server. It is text-only: tool
// declarations are never forwarded and the reply is never a tool call.
type ollamaAdapter struct {
	cfg Config
}

func newOllamaAdapter(cfg Config) *ollamaAdapter {
	return &ollamaAdapter{cfg: cfg}
}

func (o *ollamaAdapter) Call(ctx context.Context, messages []Message, _ []ToolDeclaration, systemPrompt string) (*Response, error) {
	host := o.cfg.BaseURL
	if host == "" {
		host = defaultOllamaHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	client := ollama.NewClient(u, &http.Client{Timeout: 120 * time.Second})

	msgs := make([]ollama.Message, 0, len(messages)+1)
	if systemPrompt != "" {
		msgs = append(msgs, ollama.Message{Role: string(RoleSystem), Content: systemPrompt})
	}
	for _, m := range messages {
		msgs = append(msgs, ollama.Message{
			Role:    string(collapseRole(m.Role, RoleSystem)),
			Content: m.Content,
		})
	}

	stream := false
	req := &ollama.ChatRequest{
		Model:    o.cfg.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": o.cfg.temperature()},
	}

	var text strings.Builder
	err = client.Chat(ctx, req, func(resp ollama.ChatResponse) error {
		text.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return nil, o.wrapError(err)
	}
	return &Response{Text: text.String()}, nil
}

func (o *ollamaAdapter) wrapError(err error) error {
	var statusErr ollama.StatusError
	if errors.As(err, &statusErr) {
		return &ProviderError{Provider: o.cfg.Provider, Status: statusErr.StatusCode, Message: statusErr.ErrorMessage}
	}
	return err
}
