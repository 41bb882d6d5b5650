package planner

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Commerce-Router/agent/llm"
	promptx "github.com/tanpawarit/Chative-Commerce-Router/agent/prompt"
)

// communicationAgent asks the user one clarifying question. It never executes actions.
type communicationAgent struct {
	runtime    *Runtime
	completion *llmx.Structured[contractx.Plan]
}

var _ contractx.Communicator = (*communicationAgent)(nil)

func newCommunicationAgent(ctx context.Context, rt *Runtime, chatModel einomodel.BaseChatModel) (*communicationAgent, error) {
	completion, err := llmx.NewStructured[contractx.Plan](ctx, chatModel, "planner.communication", rt.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: communication planner: %v", contractx.ErrModelInvoke, err)
	}
	return &communicationAgent{runtime: rt, completion: completion}, nil
}

func (a *communicationAgent) Name() contractx.AgentType { return contractx.AgentTypeCommunication }

func (a *communicationAgent) PlanAndExecute(ctx context.Context, req contractx.AgentRequest) (contractx.Plan, error) {
	cp, err := a.PlanCommunication(ctx, req)
	if err != nil {
		return contractx.Plan{}, err
	}
	return cp.Raw, nil
}

func (a *communicationAgent) PlanCommunication(ctx context.Context, req contractx.AgentRequest) (contractx.CommunicationPlan, error) {
	msgs, err := a.runtime.Messages(ctx, promptx.KeyCommunication, []string{contractx.ActionCommunication}, req)
	if err != nil {
		return contractx.CommunicationPlan{}, err
	}
	plan, err := a.completion.Complete(ctx, msgs)
	if err != nil {
		return contractx.CommunicationPlan{}, err
	}

	defaultMissing := stringSlice(req.Seed["missing"])
	defaultContext := seedContext(req.Seed)

	step := contractx.PlanStep{Action: contractx.ActionCommunication, Parameters: map[string]any{}}
	for _, s := range plan.Steps {
		if s.Action == contractx.ActionCommunication {
			step = s
			break
		}
	}
	if step.Parameters == nil {
		step.Parameters = map[string]any{}
	}
	if stringValue(step.Parameters["message"]) == "" && plan.ResponseText != "" {
		step.Parameters["message"] = plan.ResponseText
	}
	return communicationFromStep(step, req.LanguageID, defaultMissing, defaultContext), nil
}

func seedContext(seed contractx.Seed) map[string]any {
	for _, key := range []string{"knownPayload", "context"} {
		if m, ok := seed[key].(map[string]any); ok && len(m) > 0 {
			return m
		}
	}
	return nil
}
