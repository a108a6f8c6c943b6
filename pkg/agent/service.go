// Package agent orchestrates a single copilot turn: it sends the user's
// message to the configured model together with the platform tool catalog,
// runs at most one tool call, and has the model summarize the result. Side
// effecting tools are held behind a human approval gate.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shubhambhiwapurkar/aep-power-tools-ext/pkg/aep"
	"github.com/shubhambhiwapurkar/aep-power-tools-ext/pkg/llm"
	"github.com/shubhambhiwapurkar/aep-power-tools-ext/pkg/privacy"
	"github.com/shubhambhiwapurkar/aep-power-tools-ext/pkg/tools"
)

const systemPrompt = `You are an expert Adobe Experience Platform (AEP) assistant built into the AEP Power Tools Chrome Extension.

You help users monitor, manage, and troubleshoot their AEP instance through natural language.

You have access to tools that interact with AEP APIs. Use them to answer questions about:
- Datasets, batches, and data ingestion
- Segments (definitions, jobs, schedules)
- Schemas and field groups
- Identity namespaces and graphs
- Profile lookups
- Data flows and flow runs
- Destinations and connections
- Query Service (SQL execution)
- Platform health and status

Guidelines:
- Always use tools to fetch real data rather than making assumptions
- Present data in a clear, organized way
- If an API call fails, explain the error and suggest alternatives
- Protect PII: never expose raw personal data
- For destructive operations (creating segments, running queries), explain what will happen first
- Be concise but informative`

// Service runs orchestration turns. The zero value is not usable; call
// NewService. The function fields exist so tests can substitute the platform
// client, the registry, and the model call.
type Service struct {
	logger      *slog.Logger
	newClient   func(cfg aep.Config) (*aep.Client, error)
	newRegistry func(client *aep.Client) *tools.Registry
	call        func(ctx context.Context, cfg llm.Config, messages []llm.Message, decls []llm.ToolDeclaration, system string) (*llm.Response, error)
}

// NewService wires a Service against the real platform client and model
// adapters. A nil logger discards log output.
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		logger:      logger,
		newClient:   aep.NewClient,
		newRegistry: tools.NewRegistry,
		call:        llm.Call,
	}
}

// Process runs one turn. It never returns an error: every internal failure
// is folded into the response content so the calling surface always has
// something to render.
func (s *Service) Process(ctx context.Context, p Params) *Response {
	resp, err := s.process(ctx, p)
	if err != nil {
		s.logger.Error("agent turn failed", "error", err)
		return &Response{Content: fmt.Sprintf("Error: %s", err.Error()), ToolsUsed: []string{}}
	}
	return resp
}

func (s *Service) process(ctx context.Context, p Params) (*Response, error) {
	client, err := s.newClient(p.Platform)
	if err != nil {
		return nil, err
	}
	registry := s.newRegistry(client)
	toolsUsed := []string{}

	// An approved action bypasses the model and executes directly.
	if p.Approved != nil {
		if def, ok := registry.Lookup(p.Approved.ToolName); ok {
			return s.runApproved(ctx, p, def, &toolsUsed)
		}
		// Unknown approved tool falls through to the normal flow.
	}

	messages := append(append([]llm.Message(nil), p.History...), llm.Message{Role: llm.RoleUser, Content: p.Message})

	response, err := s.call(ctx, p.LLM, messages, registry.Declarations(), systemPrompt)
	if err != nil {
		return nil, err
	}

	if len(response.ToolCalls) == 0 {
		content := response.Text
		if content == "" {
			content = "I didn't get a response. Please try again."
		}
		return &Response{Content: content, ToolsUsed: toolsUsed}, nil
	}

	// Only the first proposed call is honored per turn.
	call := response.ToolCalls[0]
	def, ok := registry.Lookup(call.Name)
	if !ok {
		return &Response{Content: fmt.Sprintf("Unknown tool: %s", call.Name), ToolsUsed: toolsUsed}, nil
	}

	if err := tools.ValidateArgs(def, call.Args); err != nil {
		s.logger.Warn("rejected tool arguments", "tool", call.Name, "error", err)
		return &Response{
			Content:   fmt.Sprintf("Error executing **%s**: %v\n\nThis could be due to invalid parameters, permissions, or connectivity issues.", call.Name, err),
			ToolsUsed: toolsUsed,
		}, nil
	}

	if registry.RequiresApproval(call.Name) && !p.AutoApprove {
		pretty, _ := json.MarshalIndent(call.Args, "", "  ")
		return &Response{
			Content:          fmt.Sprintf("I'd like to execute **%s** with the following parameters:\n\n```json\n%s\n```\n\nDo you want me to proceed?", call.Name, pretty),
			ToolsUsed:        toolsUsed,
			RequiresApproval: true,
			Pending: &PendingAction{
				ToolName:      call.Name,
				ToolArguments: call.Args,
				Description:   def.Description,
			},
		}, nil
	}

	s.logger.Info("executing tool", "tool", call.Name)
	result, err := def.Execute(ctx, call.Args)
	toolsUsed = append(toolsUsed, call.Name)
	if err != nil {
		s.logger.Warn("tool execution failed", "tool", call.Name, "error", err)
		return &Response{
			Content:   fmt.Sprintf("Error executing **%s**: %v\n\nThis could be due to invalid parameters, permissions, or connectivity issues.", call.Name, err),
			ToolsUsed: toolsUsed,
		}, nil
	}

	safeResult := privacy.SafeStringify(result, 0)
	followup := append(append([]llm.Message(nil), messages...),
		llm.Message{Role: llm.RoleAssistant, Content: fmt.Sprintf("I'll use the %s tool to help with that.", call.Name)},
		llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf("Tool %q returned:\n%s\n\nPlease interpret this result and provide a helpful summary.", call.Name, safeResult)},
	)
	interpretation, err := s.call(ctx, p.LLM, followup, nil, systemPrompt)
	if err != nil {
		return nil, err
	}
	content := interpretation.Text
	if content == "" {
		content = safeResult
	}
	return &Response{Content: content, ToolsUsed: toolsUsed, Data: result}, nil
}

// runApproved executes a previously confirmed action and asks the model to
// summarize the result. Arguments were validated when the action was first
// proposed, so they run exactly as approved.
func (s *Service) runApproved(ctx context.Context, p Params, def *tools.Definition, toolsUsed *[]string) (*Response, error) {
	s.logger.Info("executing approved tool", "tool", def.Name)
	result, err := def.Execute(ctx, p.Approved.ToolArguments)
	if err != nil {
		return nil, err
	}
	safeResult := privacy.SafeStringify(result, 0)
	*toolsUsed = append(*toolsUsed, def.Name)

	messages := append(append([]llm.Message(nil), p.History...),
		llm.Message{Role: llm.RoleUser, Content: p.Message},
		llm.Message{Role: llm.RoleAssistant, Content: fmt.Sprintf("I executed %s and got the following result:", def.Name)},
		llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf("Tool result for %s: %s\n\nPlease summarize this result for the user.", def.Name, safeResult)},
	)
	summary, err := s.call(ctx, p.LLM, messages, nil, systemPrompt)
	if err != nil {
		return nil, err
	}
	content := summary.Text
	if content == "" {
		content = safeResult
	}
	return &Response{Content: content, ToolsUsed: *toolsUsed, Data: result}, nil
}
