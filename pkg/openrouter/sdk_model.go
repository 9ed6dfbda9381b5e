package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go"
)

// SDKChatModel adapts the openai-go chat completions client to eino's
// ToolCallingChatModel so both drivers are interchangeable for agents.
type SDKChatModel struct {
	client      *openaisdk.Client
	model       string
	temperature float64
	maxTokens   int64
	tools       []openaisdk.ChatCompletionToolParam
}

var _ model.ToolCallingChatModel = (*SDKChatModel)(nil)

func NewSDKChatModel(client *openaisdk.Client, cfg Config) *SDKChatModel {
	m := &SDKChatModel{
		client:      client,
		model:       strings.TrimSpace(cfg.Model),
		temperature: float64(cfg.Temperature),
	}
	if cfg.MaxCompletionToken != nil && *cfg.MaxCompletionToken > 0 {
		m.maxTokens = int64(*cfg.MaxCompletionToken)
	}
	return m
}

// WithTools returns a copy bound to tools; the receiver is left unchanged.
func (m *SDKChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	params, err := toolParams(tools)
	if err != nil {
		return nil, err
	}
	bound := *m
	bound.tools = params
	return &bound, nil
}

func (m *SDKChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if m.client == nil {
		return nil, errors.New("openrouter sdk: nil client")
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:       m.model,
		Messages:    toSDKMessages(input),
		Temperature: openaisdk.Float(m.temperature),
	}
	if m.maxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(m.maxTokens)
	}
	if len(m.tools) > 0 {
		params.Tools = m.tools
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openrouter sdk: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openrouter sdk: no choices returned")
	}

	choice := resp.Choices[0].Message
	out := &schema.Message{
		Role:    schema.Assistant,
		Content: choice.Content,
	}
	for _, tc := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, schema.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return out, nil
}

// Stream is served from a single Generate call.
func (m *SDKChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func toolParams(tools []*schema.ToolInfo) ([]openaisdk.ChatCompletionToolParam, error) {
	out := make([]openaisdk.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		if t == nil {
			continue
		}
		params, err := parametersOf(t)
		if err != nil {
			return nil, fmt.Errorf("openrouter sdk: tool %s schema: %w", t.Name, err)
		}
		out = append(out, openaisdk.ChatCompletionToolParam{
			Type: "function",
			Function: openaisdk.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openaisdk.String(t.Desc),
				Parameters:  params,
			},
		})
	}
	return out, nil
}

func parametersOf(t *schema.ToolInfo) (openaisdk.FunctionParameters, error) {
	if t.ParamsOneOf == nil {
		return openaisdk.FunctionParameters{"type": "object", "properties": map[string]any{}}, nil
	}
	js, err := t.ParamsOneOf.ToJSONSchema()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(js)
	if err != nil {
		return nil, err
	}
	params := openaisdk.FunctionParameters{}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return params, nil
}

func toSDKMessages(input []*schema.Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			out = append(out, openaisdk.SystemMessage(msg.Content))
		case schema.User:
			out = append(out, openaisdk.UserMessage(msg.Content))
		case schema.Tool:
			out = append(out, openaisdk.ToolMessage(msg.Content, msg.ToolCallID))
		case schema.Assistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openaisdk.AssistantMessage(msg.Content))
				continue
			}
			calls := make([]openaisdk.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				calls = append(calls, openaisdk.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openaisdk.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
			assistant := &openaisdk.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				ToolCalls: calls,
			}
			if msg.Content != "" {
				assistant.Content.OfString = openaisdk.String(msg.Content)
			}
			out = append(out, openaisdk.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		}
	}
	return out
}
