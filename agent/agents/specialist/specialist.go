package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
)

type specialistImpl struct {
	def    Definition
	runner compose.Runnable[[]*schema.Message, *schema.Message]
}

var _ contractx.Specialist = (*specialistImpl)(nil)

func newSpecialist(
	ctx context.Context,
	def Definition,
	chatModel einomodel.ToolCallingChatModel,
	tools []*schema.ToolInfo,
	instructions string,
) (*specialistImpl, error) {
	toolModel, err := chatModel.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools for agent=%s: %v", contractx.ErrModelInvoke, def.Name, err)
	}
	runner, err := compileDelegateGraph(ctx, toolModel, instructions, "specialist."+string(def.Name))
	if err != nil {
		return nil, fmt.Errorf("%w: compile agent=%s graph: %v", contractx.ErrModelInvoke, def.Name, err)
	}
	return &specialistImpl{def: def, runner: runner}, nil
}

func (s *specialistImpl) Name() contractx.AgentName {
	return s.def.Name
}

func (s *specialistImpl) Capabilities() []string {
	return append([]string(nil), s.def.Tools...)
}

func (s *specialistImpl) Delegate(ctx context.Context, thread []*schema.Message) (*schema.Message, error) {
	msg, err := s.runner.Invoke(ctx, thread)
	if err != nil {
		return nil, fmt.Errorf("%w: agent=%s: %w", contractx.ErrModelInvoke, s.def.Name, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: agent=%s returned no message", contractx.ErrSchemaViolation, s.def.Name)
	}
	return msg, nil
}

// ToolRequests converts the tool calls of a model reply. Calls without an
// id get a generated one; arguments that are not a JSON object are kept in
// RawArgs so the registry can report them back to the model.
func ToolRequests(calls []schema.ToolCall) []contractx.ToolRequest {
	if len(calls) == 0 {
		return nil
	}
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		id := strings.TrimSpace(call.ID)
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		req := contractx.ToolRequest{
			CallID: id,
			Tool:   strings.TrimSpace(call.Function.Name),
		}

		rawArgs := strings.TrimSpace(call.Function.Arguments)
		if rawArgs == "" {
			req.Args = map[string]any{}
		} else {
			args := map[string]any{}
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				req.RawArgs = rawArgs
			} else {
				req.Args = args
			}
		}
		reqs = append(reqs, req)
	}
	return reqs
}
