package planner

import (
	"context"
	"fmt"
	"slices"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Commerce-Router/agent/llm"
	payloadx "github.com/tanpawarit/Chative-Commerce-Router/agent/payload"
	promptx "github.com/tanpawarit/Chative-Commerce-Router/agent/prompt"
)

var CartActions = []string{
	"add_to_cart",
	"update_cart_items",
	"remove_from_cart",
	"delete_cart",
	"get_cart",
}

type cartAgent struct {
	runtime    *Runtime
	comm       contractx.Communicator
	completion *llmx.Structured[contractx.Plan]
}

func newCartAgent(ctx context.Context, rt *Runtime, chatModel einomodel.BaseChatModel, comm contractx.Communicator) (*cartAgent, error) {
	completion, err := rt.NewPlanCompletion(ctx, chatModel, "planner.cart")
	if err != nil {
		return nil, fmt.Errorf("%w: cart planner: %v", contractx.ErrModelInvoke, err)
	}
	return &cartAgent{runtime: rt, comm: comm, completion: completion}, nil
}

func (a *cartAgent) Name() contractx.AgentType { return contractx.AgentTypeCart }

func (a *cartAgent) PlanAndExecute(ctx context.Context, req contractx.AgentRequest) (contractx.Plan, error) {
	msgs, err := a.runtime.Messages(ctx, promptx.KeyCart, slices.Concat(CartActions, []string{contractx.ActionCommunication}), req)
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

	prepared, err := a.runtime.Prepare(step, CartActions, normalizeCart)
	if err != nil {
		return contractx.Plan{}, err
	}
	if len(prepared.Missing) > 0 {
		return Delegate(ctx, a.comm, prepared, req), nil
	}

	result := a.runtime.Execute(ctx, prepared.Action, prepared.Payload, req.Header)
	return executedPlan(a.Name(), plan, prepared, result), nil
}

func normalizeCart(action string, p map[string]any) (map[string]any, []string) {
	switch action {
	case "add_to_cart":
		return normalizeAddToCart(p)
	case "update_cart_items":
		return normalizeUpdateCartItems(p)
	case "remove_from_cart":
		if !payloadx.Present(p["ids"]) {
			if id, ok := p["id"]; ok && payloadx.Present(id) {
				p["ids"] = []any{id}
				delete(p, "id")
			}
		}
	}
	return p, nil
}

// normalizeAddToCart builds items from the items list or from top-level
// productId/productNumber and quantity. Items without an identifier or a
// quantity are dropped and their missing sub-fields reported.
func normalizeAddToCart(p map[string]any) (map[string]any, []string) {
	var candidates []map[string]any
	if raw, ok := p["items"].([]any); ok && len(raw) > 0 {
		for _, e := range raw {
			if m, ok := e.(map[string]any); ok {
				candidates = append(candidates, m)
			}
		}
	} else if item := pick(p, "productId", "productNumber", "quantity"); len(item) > 0 {
		candidates = append(candidates, item)
	}
	delete(p, "productId")
	delete(p, "productNumber")
	delete(p, "quantity")

	items := make([]any, 0, len(candidates))
	var hints []string
	for _, c := range candidates {
		hasID := payloadx.Present(c["productId"]) || payloadx.Present(c["productNumber"])
		hasQty := validQuantity(c["quantity"])
		if !hasID {
			hints = appendUnique(hints, "productNumber")
		}
		if !hasQty {
			hints = appendUnique(hints, "quantity")
		}
		if hasID && hasQty {
			items = append(items, payloadx.Compact(c))
		}
	}

	if len(items) == 0 {
		delete(p, "items")
	} else {
		p["items"] = items
	}
	return p, hints
}

// normalizeUpdateCartItems builds items from the items list or from top-level
// id/quantity/referencedId. Items without a line item id are dropped and
// reported.
func normalizeUpdateCartItems(p map[string]any) (map[string]any, []string) {
	var candidates []map[string]any
	if raw, ok := p["items"].([]any); ok && len(raw) > 0 {
		for _, e := range raw {
			if m, ok := e.(map[string]any); ok {
				candidates = append(candidates, m)
			}
		}
	} else if item := pick(p, "id", "quantity", "referencedId"); len(item) > 0 {
		candidates = append(candidates, item)
	}
	delete(p, "id")
	delete(p, "quantity")
	delete(p, "referencedId")

	items := make([]any, 0, len(candidates))
	var hints []string
	for _, c := range candidates {
		if !payloadx.Present(c["id"]) {
			hints = appendUnique(hints, "id")
			continue
		}
		items = append(items, payloadx.Compact(c))
	}

	if len(items) == 0 {
		delete(p, "items")
	} else {
		p["items"] = items
	}
	return p, hints
}

func validQuantity(v any) bool {
	switch q := v.(type) {
	case int:
		return q >= 1
	case int64:
		return q >= 1
	case float64:
		return q >= 1 && q == float64(int64(q))
	default:
		return false
	}
}

func pick(p map[string]any, keys ...string) map[string]any {
	out := map[string]any{}
	for _, k := range keys {
		if v, ok := p[k]; ok && payloadx.Present(v) {
			out[k] = v
		}
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}
