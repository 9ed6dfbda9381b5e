package state

import (
	"encoding/json"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

// Hydrate converts persisted messages into the thread the completion
// service expects. A tool message expands into the assistant tool-call
// request followed by one tool result per record, so every tool result
// references a preceding assistant call id.
func Hydrate(msgs []Message, logger zerolog.Logger) []*schema.Message {
	thread := make([]*schema.Message, 0, len(msgs)+4)
	for i, msg := range msgs {
		switch msg.Role {
		case RoleUser:
			thread = append(thread, schema.UserMessage(msg.Content))
		case RoleSystem:
			thread = append(thread, schema.SystemMessage(msg.Content))
		case RoleAssistant:
			thread = append(thread, schema.AssistantMessage(msg.Content, nil))
		case RoleTool:
			if len(msg.ToolCalls) == 0 {
				logger.Warn().Int("index", i).Msg("hydrate: skipping tool message without records")
				continue
			}
			thread = append(thread, ToolRoundMessages(msg.Content, msg.ToolCalls)...)
		default:
			logger.Warn().Int("index", i).Str("role", string(msg.Role)).Msg("hydrate: skipping message with unknown role")
		}
	}
	return thread
}

// ToolRoundMessages renders one resolved tool round in completion-service form.
func ToolRoundMessages(content string, records []ToolCallRecord) []*schema.Message {
	calls := make([]schema.ToolCall, 0, len(records))
	for _, rec := range records {
		calls = append(calls, schema.ToolCall{
			ID:   rec.CallID,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      rec.ToolName,
				Arguments: argumentsJSON(rec.Arguments),
			},
		})
	}

	out := make([]*schema.Message, 0, len(records)+1)
	out = append(out, schema.AssistantMessage(content, calls))
	for _, rec := range records {
		out = append(out, schema.ToolMessage(rec.Output, rec.CallID))
	}
	return out
}

func argumentsJSON(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
