package coordinatornode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Commerce-Router/agent/state"
)

// LoadSession restores the session of the request's context token, or starts
// one. Request language and sales channel override the stored ones.
func LoadSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st, err := loadOrCreateSession(ctx, store, in.Request.ContextToken, in)
	if err != nil {
		return nil, err
	}
	if in.Request.LanguageID != "" {
		st.LanguageID = in.Request.LanguageID
	}
	if in.Request.SalesChannelID != "" {
		st.SalesChannelID = in.Request.SalesChannelID
	}

	in.Session = st
	in.Header = contractx.HeaderInfo{
		ContextToken:   st.ContextToken,
		LanguageID:     st.LanguageID,
		SalesChannelID: st.SalesChannelID,
	}
	return in, nil
}

func loadOrCreateSession(ctx context.Context, store statex.Store, token string, in *GraphState) (*statex.SessionState, error) {
	if token == "" {
		return statex.NewSessionState("", in.Now), nil
	}
	st, err := store.Load(ctx, token)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, statex.ErrStateNotFound) {
		return nil, err
	}
	return statex.NewSessionState(token, in.Now), nil
}
