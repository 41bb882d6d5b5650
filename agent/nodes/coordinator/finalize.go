package coordinatornode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

func Finalize(in *GraphState) (GraphOutput, error) {
	if in == nil || in.Session == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	out := in.Result
	out.ContextToken = in.Header.ContextToken
	out.SessionID = in.Session.SessionID
	return out, nil
}
