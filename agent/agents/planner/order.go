package planner

import (
	"context"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	promptx "github.com/tanpawarit/Chative-Commerce-Router/agent/prompt"
)

const ActionFetchOrders = "fetch_orders_list"

// orderAgent looks up the latest order without consulting a model.
type orderAgent struct {
	runtime *Runtime
}

func (a *orderAgent) Name() contractx.AgentType { return contractx.AgentTypeOrder }

func (a *orderAgent) PlanAndExecute(ctx context.Context, req contractx.AgentRequest) (contractx.Plan, error) {
	payload := latestOrderPayload()
	result := a.runtime.Execute(ctx, ActionFetchOrders, payload, req.Header)
	return contractx.Plan{
		Mode:         contractx.PlanModeSingle,
		Steps:        []contractx.PlanStep{{Action: ActionFetchOrders, Parameters: payload}},
		Done:         true,
		ResponseText: promptx.Text(promptx.PhraseOrdersFetched, req.LanguageID),
		Agent:        a.Name(),
		Result:       &result,
	}, nil
}

func latestOrderPayload() map[string]any {
	return map[string]any{
		"limit": 1,
		"sort": []any{
			map[string]any{"field": "createdAt", "order": "DESC"},
		},
		"associations": map[string]any{
			"deliveries": map[string]any{
				"associations": map[string]any{
					"stateMachineState": map[string]any{},
				},
			},
		},
	}
}
