package specialist

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
	promptx "github.com/tanpawarit/chative-workplace-assistant/agent/prompt"
	toolx "github.com/tanpawarit/chative-workplace-assistant/agent/tool"
)

type fakeToolCallingModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	err       error
	idx       int
	inputs    [][]*schema.Message
	tools     []*schema.ToolInfo
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tools = tools
	return f, nil
}

func testToolRegistry(t *testing.T) *toolx.Registry {
	t.Helper()
	reg, err := toolx.NewRegistry(toolx.Definitions(toolx.Services{
		Agents: Names(Definitions()),
	}), toolx.WithLogger(zerolog.New(io.Discard)))
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg
}

func fakeModels(models map[contractx.AgentName]*fakeToolCallingModel) ModelFactory {
	return func(_ context.Context, agent contractx.AgentName) (einomodel.ToolCallingChatModel, error) {
		if m, ok := models[agent]; ok {
			return m, nil
		}
		return &fakeToolCallingModel{}, nil
	}
}

func TestNewRegistryBindsCapabilities(t *testing.T) {
	t.Parallel()

	dirModel := &fakeToolCallingModel{}
	reg, err := NewRegistry(context.Background(), Definitions(),
		fakeModels(map[contractx.AgentName]*fakeToolCallingModel{contractx.AgentDirectory: dirModel}),
		testToolRegistry(t), promptx.LoadPromptSet())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if got := reg.Default().Name(); got != contractx.AgentProxy {
		t.Fatalf("Default() = %s, want proxy", got)
	}
	dir, ok := reg.Get(contractx.AgentDirectory)
	if !ok {
		t.Fatal("directory agent missing")
	}
	if len(dirModel.tools) != len(dir.Capabilities()) {
		t.Fatalf("bound %d tools, capabilities %d", len(dirModel.tools), len(dir.Capabilities()))
	}
	for i, info := range dirModel.tools {
		if info.Name != dir.Capabilities()[i] {
			t.Fatalf("tool %d = %s, want %s", i, info.Name, dir.Capabilities()[i])
		}
	}
	if _, ok := reg.Get("sales"); ok {
		t.Fatal("unexpected agent sales")
	}
	if len(reg.Profiles()) != 3 {
		t.Fatalf("Profiles() = %d entries, want 3", len(reg.Profiles()))
	}
}

func TestNewRegistryRejectsUnknownTool(t *testing.T) {
	t.Parallel()

	defs := []Definition{{Name: contractx.AgentProxy, Tools: []string{"math.evaluate"}}}
	_, err := NewRegistry(context.Background(), defs, fakeModels(nil), testToolRegistry(t), promptx.LoadPromptSet())
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestNewRegistryRequiresPromptAndFallback(t *testing.T) {
	t.Parallel()

	defs := []Definition{{Name: "sales", Tools: []string{toolx.ToolTransferToAgent}}}
	_, err := NewRegistry(context.Background(), defs, fakeModels(nil), testToolRegistry(t), promptx.LoadPromptSet())
	if !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("expected ErrPromptMissing, got %v", err)
	}

	defs = []Definition{{Name: contractx.AgentDirectory, Tools: []string{toolx.ToolGetUser}}}
	_, err = NewRegistry(context.Background(), defs, fakeModels(nil), testToolRegistry(t), promptx.LoadPromptSet())
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing fallback, got %v", err)
	}
}

func TestDelegatePrependsInstructions(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{schema.AssistantMessage("Hi! How can I help?", nil)}}
	prompts := promptx.LoadPromptSet()
	reg, err := NewRegistry(context.Background(), Definitions(),
		fakeModels(map[contractx.AgentName]*fakeToolCallingModel{contractx.AgentProxy: fake}),
		testToolRegistry(t), prompts)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	thread := []*schema.Message{schema.UserMessage("hello")}
	msg, err := reg.Default().Delegate(context.Background(), thread)
	if err != nil {
		t.Fatalf("Delegate() error = %v", err)
	}
	if msg.Content != "Hi! How can I help?" {
		t.Fatalf("unexpected reply: %q", msg.Content)
	}

	if len(fake.inputs) != 1 || len(fake.inputs[0]) != 2 {
		t.Fatalf("unexpected model input: %+v", fake.inputs)
	}
	if fake.inputs[0][0].Role != schema.System || fake.inputs[0][0].Content != prompts.Proxy {
		t.Fatalf("first message must be the proxy instructions, got %+v", fake.inputs[0][0])
	}
	if fake.inputs[0][1].Content != "hello" {
		t.Fatalf("thread not forwarded: %+v", fake.inputs[0][1])
	}
}

func TestDelegateWrapsModelError(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{err: errors.New("rate limited")}
	reg, err := NewRegistry(context.Background(), Definitions(),
		fakeModels(map[contractx.AgentName]*fakeToolCallingModel{contractx.AgentProxy: fake}),
		testToolRegistry(t), promptx.LoadPromptSet())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	_, err = reg.Default().Delegate(context.Background(), []*schema.Message{schema.UserMessage("x")})
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}

func TestToolRequests(t *testing.T) {
	t.Parallel()

	reqs := ToolRequests([]schema.ToolCall{
		{ID: "call-1", Function: schema.FunctionCall{Name: "get_manager", Arguments: `{"user_id":"u1"}`}},
		{Function: schema.FunctionCall{Name: " search_users ", Arguments: ""}},
		{ID: "call-3", Function: schema.FunctionCall{Name: "get_user", Arguments: `{broken`}},
	})

	if len(reqs) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(reqs))
	}
	if reqs[0].CallID != "call-1" || reqs[0].Tool != "get_manager" || reqs[0].Args["user_id"] != "u1" {
		t.Fatalf("unexpected first request: %+v", reqs[0])
	}
	if reqs[1].CallID == "" || reqs[1].Tool != "search_users" || reqs[1].Args == nil {
		t.Fatalf("unexpected second request: %+v", reqs[1])
	}
	if reqs[2].Args != nil || reqs[2].RawArgs != "{broken" {
		t.Fatalf("invalid args must be kept raw: %+v", reqs[2])
	}
	if ToolRequests(nil) != nil {
		t.Fatal("expected nil for no calls")
	}
}
