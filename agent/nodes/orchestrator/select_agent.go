package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
	"github.com/tanpawarit/chative-workplace-assistant/agent/routing"
)

func SelectAgent(
	ctx context.Context,
	in *GraphState,
	selector routing.Selector,
	agents contractx.Registry,
	logger zerolog.Logger,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Failed() {
		return in, nil
	}

	in.Phase = PhaseSelecting
	name := selector.Select(ctx, in.Text)
	if _, ok := agents.Get(name); !ok {
		logger.Warn().Str("session_id", in.SessionID).Str("agent", string(name)).
			Msg("selector returned unknown agent, using default")
		name = agents.Default().Name()
	}
	in.ActiveAgent = name
	logger.Debug().Str("session_id", in.SessionID).Str("agent", string(name)).Msg("agent selected")
	return in, nil
}
