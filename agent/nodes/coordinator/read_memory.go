package coordinatornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	"github.com/tanpawarit/Chative-Commerce-Router/agent/memory"
)

func ReadMemory(ctx context.Context, in *GraphState, reader *memory.Reader) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	groupID := memory.GroupID(in.Session.SalesChannelID, in.Session.SessionID)
	in.Outline = reader.Outline(ctx, groupID, in.Request.Message)
	return in, nil
}
