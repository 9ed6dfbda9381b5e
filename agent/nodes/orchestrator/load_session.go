package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
	statex "github.com/tanpawarit/chative-workplace-assistant/agent/state"
)

// LoadSession hydrates the stored history. A store failure degrades to an
// empty history; the turn still runs and Append keeps earlier messages.
func LoadSession(ctx context.Context, in *GraphState, store statex.Store, logger zerolog.Logger) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Failed() {
		return in, nil
	}

	sess, err := store.Load(ctx, in.SessionID)
	if err != nil {
		logger.Warn().Err(err).Str("session_id", in.SessionID).Msg("session load failed, continuing without history")
		return in, nil
	}
	in.History = statex.Hydrate(sess.Messages, logger.With().Str("session_id", in.SessionID).Logger())
	return in, nil
}
