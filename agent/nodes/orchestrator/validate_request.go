package orchestratornode

import (
	"strings"
	"time"

	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
)

// ValidateRequest rejects empty input before any store or model is touched.
func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	st := &GraphState{
		SessionID: strings.TrimSpace(in.SessionID),
		Text:      strings.TrimSpace(in.Text),
		Now:       nowFn().UTC(),
		Phase:     PhaseIdle,
	}

	switch {
	case st.SessionID == "":
		st.Fail(contractx.KindInvalidRequest, "session_id is required", contractx.ErrValidation)
	case st.Text == "":
		st.Fail(contractx.KindInvalidRequest, "message is required", contractx.ErrValidation)
	}
	return st, nil
}
