package orchestratornode

import (
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
	statex "github.com/tanpawarit/chative-workplace-assistant/agent/state"
)

// Phase is the router state of a turn.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseSelecting          Phase = "selecting"
	PhaseDelegating         Phase = "delegating"
	PhaseAwaitingToolResult Phase = "awaiting_tool_result"
	PhaseSynthesizing       Phase = "synthesizing"
	PhaseDone               Phase = "done"
	PhaseFailed             Phase = "failed"
)

// ApologyReply is persisted and returned when a turn fails after validation.
const ApologyReply = "Sorry, I couldn't complete that request right now. Please try again in a moment."

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	Reply  string
	Agent  contractx.AgentName
	Rounds int
	// Err is set when the turn failed; Reply then holds the apology, if any.
	Err *contractx.TurnError
}

// GraphState is the transient router state of one turn. It is rebuilt
// from the stored session on every turn and never persisted.
type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time

	Phase       Phase
	ActiveAgent contractx.AgentName
	Handoffs    []contractx.AgentName
	Rounds      int

	History []*schema.Message
	// NewMessages are the tool and assistant messages produced this turn.
	NewMessages []statex.Message
	Reply       string

	Failure    *contractx.TurnError
	PersistErr error
}

func (s *GraphState) Failed() bool {
	return s != nil && s.Failure != nil
}

// Fail moves the turn to PhaseFailed. Only the first failure is kept.
func (s *GraphState) Fail(kind contractx.ErrorKind, message string, err error) {
	if s.Failure != nil {
		return
	}
	s.Phase = PhaseFailed
	s.Failure = contractx.NewTurnError(kind, message, err)
	if kind != contractx.KindInvalidRequest {
		s.Failure.Reply = ApologyReply
	}
}

// UserMessage is the persisted form of this turn's input.
func (s *GraphState) UserMessage() statex.Message {
	return statex.Message{Role: statex.RoleUser, Content: s.Text, Timestamp: s.Now}
}
