package agent

import (
	"github.com/shubhambhiwapurkar/aep-power-tools-ext/pkg/aep"
	"github.com/shubhambhiwapurkar/aep-power-tools-ext/pkg/llm"
)

// Params carries everything one orchestration turn needs. History holds the
// prior conversation; Approved replays a previously gated action.
type Params struct {
	Message  string
	Platform aep.Config
	LLM      llm.Config
	History  []llm.Message
	// AutoApprove skips the human confirmation gate for side-effecting
	// tools. Interactive surfaces leave it false.
	AutoApprove bool
	Approved    *ApprovedAction
}

// PendingAction describes a gated tool call awaiting human confirmation.
type PendingAction struct {
	ToolName      string         `json:"toolName"`
	ToolArguments map[string]any `json:"toolArguments"`
	Description   string         `json:"description"`
}

// ApprovedAction is a PendingAction the user confirmed. The arguments are
// executed exactly as proposed.
type ApprovedAction struct {
	ToolName      string         `json:"toolName"`
	ToolArguments map[string]any `json:"toolArguments"`
}

// Response is the outcome of one orchestration turn. When RequiresApproval
// is set, Pending holds the action to replay via Params.Approved once the
// user confirms.
type Response struct {
	Content          string         `json:"content"`
	ToolsUsed        []string       `json:"toolsUsed"`
	RequiresApproval bool           `json:"requiresApproval,omitempty"`
	Pending          *PendingAction `json:"pendingAction,omitempty"`
	// Data is the raw tool result before summarization, for callers that
	// want to render it directly.
	Data any `json:"data,omitempty"`
}
