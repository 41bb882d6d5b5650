package coordinatornode

import (
	"time"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Commerce-Router/agent/state"
)

type GraphInput = contractx.TurnRequest

type GraphOutput = contractx.TurnResult

// GraphState is the per-turn state carried between nodes. It is never shared across turns.
type GraphState struct {
	Request contractx.TurnRequest
	Now     time.Time

	Session *statex.SessionState
	Header  contractx.HeaderInfo
	Outline string
	Intent  contractx.IntentClassification

	Result contractx.TurnResult
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	msg, err := contractx.ValidateCustomerMessage(in.Message)
	if err != nil {
		return nil, err
	}
	in.Message = msg
	return &GraphState{
		Request: in,
		Now:     nowFn().UTC(),
	}, nil
}
