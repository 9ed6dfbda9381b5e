package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
	"github.com/tanpawarit/chative-workplace-assistant/pkg/metrics"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	agent := string(in.ActiveAgent)
	if agent == "" {
		agent = "none"
	}

	if in.Failed() {
		metrics.Turns.WithLabelValues(agent, string(in.Failure.Kind)).Inc()
		return GraphOutput{
			Reply:  in.Failure.Reply,
			Agent:  in.ActiveAgent,
			Rounds: in.Rounds,
			Err:    in.Failure,
		}, nil
	}

	metrics.Turns.WithLabelValues(agent, "done").Inc()
	return GraphOutput{
		Reply:  in.Reply,
		Agent:  in.ActiveAgent,
		Rounds: in.Rounds,
	}, nil
}
