package orchestratornode

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
	statex "github.com/tanpawarit/chative-workplace-assistant/agent/state"
)

// PersistTurn appends the turn as one batch: the user message, one tool
// message per round, then the reply (or the apology of a failed turn).
// Write errors are logged and never fail the turn.
func PersistTurn(ctx context.Context, in *GraphState, store statex.Store, now func() time.Time, logger zerolog.Logger) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Failed() && in.Failure.Kind == contractx.KindInvalidRequest {
		return in, nil
	}

	batch := make([]statex.Message, 0, len(in.NewMessages)+2)
	batch = append(batch, in.UserMessage())
	batch = append(batch, in.NewMessages...)
	if in.Failed() {
		batch = append(batch, statex.Message{
			Role:      statex.RoleAssistant,
			Content:   in.Failure.Reply,
			Agent:     string(in.ActiveAgent),
			Timestamp: now().UTC(),
		})
	}

	if err := store.Append(ctx, in.SessionID, batch); err != nil {
		in.PersistErr = err
		logger.Error().Err(err).Str("session_id", in.SessionID).Int("messages", len(batch)).
			Msg("failed to persist turn")
	}
	return in, nil
}
