package planner

import (
	"context"
	"fmt"
	"slices"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Commerce-Router/agent/llm"
	promptx "github.com/tanpawarit/Chative-Commerce-Router/agent/prompt"
)

// SearchActions are the catalog actions the search agent may plan.
var SearchActions = []string{
	"search_products",
	"search_product_by_productNumber",
	"list_products",
	"product_listing_by_category",
	"search_suggest",
	"get_product",
	"product_cross_selling",
	"find_variant",
}

type searchAgent struct {
	runtime    *Runtime
	comm       contractx.Communicator
	completion *llmx.Structured[contractx.Plan]
}

func newSearchAgent(ctx context.Context, rt *Runtime, chatModel einomodel.BaseChatModel, comm contractx.Communicator) (*searchAgent, error) {
	completion, err := rt.NewPlanCompletion(ctx, chatModel, "planner.search")
	if err != nil {
		return nil, fmt.Errorf("%w: search planner: %v", contractx.ErrModelInvoke, err)
	}
	return &searchAgent{runtime: rt, comm: comm, completion: completion}, nil
}

func (a *searchAgent) Name() contractx.AgentType { return contractx.AgentTypeSearch }

func (a *searchAgent) PlanAndExecute(ctx context.Context, req contractx.AgentRequest) (contractx.Plan, error) {
	msgs, err := a.runtime.Messages(ctx, promptx.KeySearch, slices.Concat(SearchActions, []string{contractx.ActionCommunication}), req)
	if err != nil {
		return contractx.Plan{}, err
	}
	plan, err := a.completion.Complete(ctx, msgs)
	if err != nil {
		return contractx.Plan{}, err
	}

	step := plan.Steps[0]
	if step.Action == contractx.ActionCommunication {
		return communicationFromStep(step, req.LanguageID, nil, nil).Raw, nil
	}

	prepared, err := a.runtime.Prepare(step, SearchActions, normalizeSearch)
	if err != nil {
		return contractx.Plan{}, err
	}
	if len(prepared.Missing) > 0 {
		return Delegate(ctx, a.comm, prepared, req), nil
	}

	result := a.runtime.Execute(ctx, prepared.Action, prepared.Payload, req.Header)
	return executedPlan(a.Name(), plan, prepared, result), nil
}

// normalizeSearch maps common aliases the model uses onto the catalog parameter names.
func normalizeSearch(action string, p map[string]any) (map[string]any, []string) {
	switch action {
	case "search_products", "search_suggest":
		renameIfAbsent(p, "search", "query", "term", "keyword")
	case "get_product", "product_cross_selling", "find_variant":
		renameIfAbsent(p, "productId", "id", "product_id")
	case "product_listing_by_category":
		renameIfAbsent(p, "category_id", "categoryId", "category")
	case "search_product_by_productNumber":
		renameIfAbsent(p, "productNumber", "product_number", "sku")
	}
	return p, nil
}

func renameIfAbsent(p map[string]any, target string, aliases ...string) {
	if _, ok := p[target]; ok {
		return
	}
	for _, alias := range aliases {
		if v, ok := p[alias]; ok {
			p[target] = v
			delete(p, alias)
			return
		}
	}
}

func executedPlan(agent contractx.AgentType, model contractx.Plan, prepared Prepared, result contractx.ActionResult) contractx.Plan {
	mode := model.Mode
	if mode == "" {
		mode = contractx.PlanModeSingle
	}
	return contractx.Plan{
		Mode:         mode,
		Steps:        []contractx.PlanStep{{Action: prepared.Action, Parameters: prepared.Payload}},
		Done:         model.Done,
		ResponseText: model.ResponseText,
		Agent:        agent,
		Result:       &result,
	}
}
