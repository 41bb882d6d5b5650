package coordinatornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	"github.com/tanpawarit/Chative-Commerce-Router/agent/memory"
)

// WriteMemory hands the turn to memory ingestion. Dispatch failures never
// fail the turn.
func WriteMemory(ctx context.Context, in *GraphState, dispatcher contractx.EpisodeDispatcher) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if dispatcher == nil {
		return in, nil
	}

	groupID := memory.GroupID(in.Session.SalesChannelID, in.Session.SessionID)
	ep := memory.EpisodeFromTurn(groupID, in.Request, in.Result, in.Now)
	if err := dispatcher.Dispatch(ctx, ep); err != nil {
		log.Warn().Err(err).Str("session_id", in.Session.SessionID).Msg("memory dispatch failed")
	}
	return in, nil
}
