package contract

type AgentName string

const (
	AgentProxy      AgentName = "proxy"
	AgentDirectory  AgentName = "directory"
	AgentScheduling AgentName = "scheduling"
	AgentLocation   AgentName = "location"
)

// ToolRequest is one tool call requested by the completion service.
type ToolRequest struct {
	CallID string         `json:"call_id"`
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
	// RawArgs is kept when the arguments were not valid JSON so the
	// failure can be reported back to the model.
	RawArgs string `json:"raw_args,omitempty"`
}

// ToolErrorCode classifies a failed tool call in its normalized payload.
type ToolErrorCode string

const (
	ToolErrNotAllowed ToolErrorCode = "TOOL_NOT_ALLOWED"
	ToolErrUnknown    ToolErrorCode = "UNKNOWN_TOOL"
	ToolErrValidation ToolErrorCode = "VALIDATION_ERROR"
	ToolErrExecution  ToolErrorCode = "EXECUTION_ERROR"
	ToolErrTimeout    ToolErrorCode = "TIMEOUT"
	ToolErrNotFound   ToolErrorCode = "NOT_FOUND"
)

// ToolErrorPayload is what the model sees when a tool call fails.
type ToolErrorPayload struct {
	Error ToolErrorDetail `json:"error"`
}

type ToolErrorDetail struct {
	Code    ToolErrorCode `json:"code"`
	Message string        `json:"message"`
}

// Handoff is the result payload of a successful transfer_to_agent call.
type Handoff struct {
	Transferred bool      `json:"transferred"`
	Agent       AgentName `json:"agent"`
}
