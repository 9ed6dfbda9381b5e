package orchestratornode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
	"github.com/tanpawarit/chative-workplace-assistant/agent/routing"
	statex "github.com/tanpawarit/chative-workplace-assistant/agent/state"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

type recordingStore struct {
	statex.Store
	appended [][]statex.Message
	err      error
}

func (s *recordingStore) Append(_ context.Context, _ string, msgs []statex.Message) error {
	s.appended = append(s.appended, msgs)
	return s.err
}

func TestValidateRequestTrimsAndFails(t *testing.T) {
	t.Parallel()

	st, err := ValidateRequest(GraphInput{SessionID: " s1 ", Text: " hi "}, clock)
	if err != nil || st.Failed() || st.SessionID != "s1" || st.Text != "hi" {
		t.Fatalf("ValidateRequest() = %+v, %v", st, err)
	}

	st, _ = ValidateRequest(GraphInput{SessionID: "s1", Text: "  "}, clock)
	if !st.Failed() || st.Failure.Kind != contractx.KindInvalidRequest || st.Failure.Reply != "" {
		t.Fatalf("expected invalid_request without apology, got %+v", st.Failure)
	}
}

func TestFailKeepsFirstFailure(t *testing.T) {
	t.Parallel()

	st := &GraphState{}
	st.Fail(contractx.KindCompletionFailed, "first", nil)
	st.Fail(contractx.KindEmptyReply, "second", nil)
	if st.Failure.Kind != contractx.KindCompletionFailed || st.Phase != PhaseFailed {
		t.Fatalf("failure = %+v phase = %s", st.Failure, st.Phase)
	}
	if st.Failure.Reply != ApologyReply {
		t.Fatalf("reply = %q", st.Failure.Reply)
	}
}

func TestSelectAgentFallsBackOnUnknownAgent(t *testing.T) {
	t.Parallel()

	agents := stubAgents{contractx.AgentProxy: stubSpecialist(contractx.AgentProxy)}
	st := &GraphState{SessionID: "s1", Text: "hi"}
	st, err := SelectAgent(context.Background(), st, routing.Static("nobody"), agents, zerolog.Nop())
	if err != nil || st.ActiveAgent != contractx.AgentProxy {
		t.Fatalf("SelectAgent() agent = %s, err = %v", st.ActiveAgent, err)
	}
}

func TestPersistTurnSkipsInvalidRequest(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	st, _ := ValidateRequest(GraphInput{SessionID: "s1"}, clock)
	if _, err := PersistTurn(context.Background(), st, store, clock, zerolog.Nop()); err != nil {
		t.Fatalf("PersistTurn() error = %v", err)
	}
	if len(store.appended) != 0 {
		t.Fatalf("invalid request persisted %d batches", len(store.appended))
	}
}

func TestPersistTurnAppendsApologyOnFailure(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	st, _ := ValidateRequest(GraphInput{SessionID: "s1", Text: "hi"}, clock)
	st.ActiveAgent = contractx.AgentProxy
	st.Fail(contractx.KindCompletionTimeout, "slow", context.DeadlineExceeded)

	if _, err := PersistTurn(context.Background(), st, store, clock, zerolog.Nop()); err != nil {
		t.Fatalf("PersistTurn() error = %v", err)
	}
	batch := store.appended[0]
	if len(batch) != 2 || batch[0].Role != statex.RoleUser || batch[1].Content != ApologyReply {
		t.Fatalf("batch = %+v", batch)
	}
}

func TestPersistTurnKeepsWriteErrorOutOfTheTurn(t *testing.T) {
	t.Parallel()

	store := &recordingStore{err: errors.New("offline")}
	st, _ := ValidateRequest(GraphInput{SessionID: "s1", Text: "hi"}, clock)
	st.Reply = "hello"
	st.NewMessages = []statex.Message{{Role: statex.RoleAssistant, Content: "hello", Timestamp: testNow}}

	st, err := PersistTurn(context.Background(), st, store, clock, zerolog.Nop())
	if err != nil || st.Failed() || st.PersistErr == nil {
		t.Fatalf("PersistTurn() failed=%v persistErr=%v err=%v", st.Failed(), st.PersistErr, err)
	}

	out, err := FinalizeReply(st)
	if err != nil || out.Err != nil || out.Reply != "hello" {
		t.Fatalf("FinalizeReply() = %+v, %v", out, err)
	}
}

func TestFinalizeReplyCarriesFailure(t *testing.T) {
	t.Parallel()

	st := &GraphState{ActiveAgent: contractx.AgentDirectory, Rounds: 2}
	st.Fail(contractx.KindToolLoopExceeded, "too many", contractx.ErrToolLoopExceeded)

	out, err := FinalizeReply(st)
	if err != nil {
		t.Fatalf("FinalizeReply() error = %v", err)
	}
	if out.Err == nil || out.Err.Kind != contractx.KindToolLoopExceeded || out.Reply != ApologyReply || out.Rounds != 2 {
		t.Fatalf("out = %+v", out)
	}
}

type stubSpecialist contractx.AgentName

func (s stubSpecialist) Name() contractx.AgentName { return contractx.AgentName(s) }
func (stubSpecialist) Capabilities() []string { return nil }
func (stubSpecialist) Delegate(context.Context, []*schema.Message) (*schema.Message, error) {
	return schema.AssistantMessage("ok", nil), nil
}

type stubAgents map[contractx.AgentName]contractx.Specialist

func (a stubAgents) Get(name contractx.AgentName) (contractx.Specialist, bool) {
	s, ok := a[name]
	return s, ok
}

func (a stubAgents) Default() contractx.Specialist { return a[contractx.AgentProxy] }

func (a stubAgents) Names() []contractx.AgentName {
	out := make([]contractx.AgentName, 0, len(a))
	for name := range a {
		out = append(out, name)
	}
	return out
}
