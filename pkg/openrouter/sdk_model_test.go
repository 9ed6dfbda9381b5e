package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if NewClient(Config{}) != nil {
		t.Fatal("expected nil client without api key")
	}
}

func TestConfigNewRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	cfg := Config{APIKey: "k", Model: "m", Driver: "carrier-pigeon"}
	if _, err := cfg.New(context.Background()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestSDKChatModelGenerateMapsToolCalls(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id":"cmpl-1","object":"chat.completion","created":1,"model":"test-model",
			"choices":[{"index":0,"finish_reason":"tool_calls","message":{
				"role":"assistant","content":"",
				"tool_calls":[{"id":"call_1","type":"function","function":{"name":"get_manager","arguments":"{\"user_id\":\"u1\"}"}}]
			}}]
		}`)
	}))
	t.Cleanup(server.Close)

	cfg := Config{BaseURL: server.URL, APIKey: "key", Model: "test-model", Driver: DriverSDK}
	base, err := cfg.New(context.Background())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	bound, err := base.WithTools([]*schema.ToolInfo{
		{
			Name: "get_manager",
			Desc: "Look up a user's manager.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"user_id": {Type: schema.String, Desc: "User id", Required: true},
			}),
		},
	})
	if err != nil {
		t.Fatalf("WithTools() error = %v", err)
	}

	out, err := bound.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("you are a directory agent"),
		schema.UserMessage("find my manager"),
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(out.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(out.ToolCalls))
	}
	if out.ToolCalls[0].ID != "call_1" || out.ToolCalls[0].Function.Name != "get_manager" {
		t.Fatalf("unexpected tool call: %+v", out.ToolCalls[0])
	}

	tools, ok := gotBody["tools"].([]any)
	if !ok || len(tools) != 1 {
		t.Fatalf("expected one tool in request, got %#v", gotBody["tools"])
	}
	msgs, ok := gotBody["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("expected two messages in request, got %#v", gotBody["messages"])
	}
}

func TestToSDKMessagesKeepsToolPairs(t *testing.T) {
	t.Parallel()

	msgs := toSDKMessages([]*schema.Message{
		schema.UserMessage("find my manager"),
		schema.AssistantMessage("", []schema.ToolCall{{ID: "c1", Function: schema.FunctionCall{Name: "get_manager", Arguments: `{}`}}}),
		schema.ToolMessage(`{"id":"u2"}`, "c1"),
		schema.AssistantMessage("Your manager is Grace.", nil),
	})
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[1].OfAssistant == nil || len(msgs[1].OfAssistant.ToolCalls) != 1 {
		t.Fatalf("expected assistant tool call message, got %#v", msgs[1])
	}
	if msgs[2].OfTool == nil {
		t.Fatalf("expected tool message at index 2")
	}
}

func TestToSDKMessagesKeepsTextSentWithToolCalls(t *testing.T) {
	t.Parallel()

	msgs := toSDKMessages([]*schema.Message{
		schema.AssistantMessage("checking the directory", []schema.ToolCall{{ID: "c1", Function: schema.FunctionCall{Name: "search_users", Arguments: `{"query":"Alex"}`}}}),
		schema.AssistantMessage("", []schema.ToolCall{{ID: "c2", Function: schema.FunctionCall{Name: "get_manager", Arguments: `{}`}}}),
	})
	if len(msgs) != 2 || msgs[0].OfAssistant == nil || msgs[1].OfAssistant == nil {
		t.Fatalf("expected two assistant messages, got %#v", msgs)
	}
	if got := msgs[0].OfAssistant.Content.OfString.Value; got != "checking the directory" {
		t.Fatalf("assistant content = %q", got)
	}
	if len(msgs[0].OfAssistant.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(msgs[0].OfAssistant.ToolCalls))
	}
	if got := msgs[1].OfAssistant.Content.OfString.Value; got != "" {
		t.Fatalf("assistant content = %q, want empty", got)
	}
}
