package coordinatornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Commerce-Router/agent/state"
)

// SaveSession records the turn and persists the session. A context token
// issued during the turn re-keys the session and removes the old key.
// Store failures are logged and the turn result is kept, since storefront
// actions have already run.
func SaveSession(ctx context.Context, in *GraphState, store statex.Store, maxTurns int) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	failed := 0
	for _, s := range in.Result.Steps {
		if s.Status == contractx.StepStatusError {
			failed++
		}
	}
	turn := statex.Turn{
		Message:      in.Request.Message,
		Status:       in.Result.Status,
		Intents:      in.Intent.OrderedIntents,
		ResponseText: in.Result.Message,
		FailedSteps:  failed,
		At:           in.Now,
	}
	if err := in.Session.AppendTurn(turn, maxTurns); err != nil {
		return nil, err
	}

	prev, rekeyed := in.Session.Rekey(in.Header.ContextToken)
	in.Session.Touch(in.Now)
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("state validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Session); err != nil {
		log.Error().Err(err).Str("session_id", in.Session.SessionID).Msg("session save failed")
		return in, nil
	}
	if rekeyed {
		if err := store.Delete(ctx, prev); err != nil {
			log.Warn().Err(err).Str("session_id", prev).Msg("stale session cleanup failed")
		}
	}
	return in, nil
}
