package planner

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	catalogx "github.com/tanpawarit/Chative-Commerce-Router/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	promptx "github.com/tanpawarit/Chative-Commerce-Router/agent/prompt"
)

type fakeChatModel struct {
	mu      sync.Mutex
	content string
	err     error
	inputs  [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.content, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

func (f *fakeChatModel) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

type executorCall struct {
	action  string
	payload map[string]any
	header  contractx.HeaderInfo
}

type recordingExecutor struct {
	mu     sync.Mutex
	calls  []executorCall
	result contractx.ActionResult
	err    error
}

func (r *recordingExecutor) Execute(ctx context.Context, action string, payload map[string]any, header contractx.HeaderInfo) (contractx.ActionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, executorCall{action: action, payload: payload, header: header})
	if r.err != nil {
		return contractx.ActionResult{}, r.err
	}
	res := r.result
	res.Action = action
	return res, nil
}

type fixture struct {
	search   *fakeChatModel
	cart     *fakeChatModel
	comm     *fakeChatModel
	executor *recordingExecutor
	registry *Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cat, err := catalogx.LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}
	f := &fixture{
		search:   &fakeChatModel{},
		cart:     &fakeChatModel{},
		comm:     &fakeChatModel{},
		executor: &recordingExecutor{result: contractx.ActionResult{StatusCode: 200, ContextToken: "tok-2"}},
	}
	models := map[contractx.AgentType]*fakeChatModel{
		contractx.AgentTypeSearch:        f.search,
		contractx.AgentTypeCart:          f.cart,
		contractx.AgentTypeCommunication: f.comm,
	}
	reg, err := NewRegistry(context.Background(), Deps{
		Catalog:  cat,
		Prompts:  promptx.MustLoad(),
		Executor: f.executor,
		Models: func(ctx context.Context, agentType contractx.AgentType) (einomodel.BaseChatModel, error) {
			m, ok := models[agentType]
			if !ok {
				return nil, errors.New("unexpected agent")
			}
			return m, nil
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	f.registry = reg
	return f
}

func TestCartMissingQuantityDelegatesToCommunication(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cart.content = `{"mode":"single","steps":[{"action":"add_to_cart","parameters":{"productNumber":"SW100","quantity":null}}],"done":false,"response_text":""}`
	f.comm.content = `{"mode":"single","steps":[{"action":"communication","parameters":{"message":"How many SW100 would you like?"}}],"done":false}`

	plan, err := f.registry.Cart().PlanAndExecute(context.Background(), contractx.AgentRequest{
		Seed:    contractx.Seed{},
		Message: "add SW100 to my cart",
	})
	if err != nil {
		t.Fatalf("PlanAndExecute() error = %v", err)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Action != contractx.ActionCommunication {
		t.Fatalf("expected a single communication step, got %#v", plan.Steps)
	}
	if msg, _ := plan.Steps[0].Parameters["message"].(string); strings.TrimSpace(msg) == "" {
		t.Fatalf("communication message is empty")
	}
	if len(f.executor.calls) != 0 {
		t.Fatalf("executor must not be called, got %#v", f.executor.calls)
	}

	missing := plan.Steps[0].Parameters["missing"].([]string)
	if !reflect.DeepEqual(missing, []string{"items", "quantity"}) {
		t.Fatalf("unexpected missing: %#v", missing)
	}
	seedMsg := f.comm.inputs[0][len(f.comm.inputs[0])-1].Content
	if !strings.HasPrefix(seedMsg, "SEED:") || !strings.Contains(seedMsg, `"knownPayload":{"productNumber":"SW100"}`) {
		t.Fatalf("communication seed lacks known payload: %s", seedMsg)
	}
}

func TestDelegationFallsBackWhenCommunicationFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cart.content = `{"mode":"single","steps":[{"action":"add_to_cart","parameters":{"productNumber":"SW100"}}]}`
	f.comm.err = errors.New("model down")

	plan, err := f.registry.Cart().PlanAndExecute(context.Background(), contractx.AgentRequest{Message: "add SW100"})
	if err != nil {
		t.Fatalf("PlanAndExecute() error = %v", err)
	}
	if plan.Steps[0].Action != contractx.ActionCommunication {
		t.Fatalf("expected communication step, got %q", plan.Steps[0].Action)
	}
	if plan.ResponseText != "Could you provide the missing information?" {
		t.Fatalf("unexpected fallback: %q", plan.ResponseText)
	}
	if len(f.executor.calls) != 0 {
		t.Fatalf("executor must not be called")
	}
}

func TestCartPartialItemsDelegateToCommunication(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cart.content = `{"mode":"single","steps":[{"action":"add_to_cart","parameters":{"items":[{"productNumber":"SW100","quantity":2},{"productNumber":"SW200"}]}}]}`
	f.comm.content = `{"mode":"single","steps":[{"action":"communication","parameters":{"message":"How many SW200 would you like?"}}]}`

	plan, err := f.registry.Cart().PlanAndExecute(context.Background(), contractx.AgentRequest{Message: "add SW100 twice and SW200"})
	if err != nil {
		t.Fatalf("PlanAndExecute() error = %v", err)
	}
	if len(f.executor.calls) != 0 {
		t.Fatalf("executor must not be called, got %#v", f.executor.calls)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Action != contractx.ActionCommunication {
		t.Fatalf("expected a single communication step, got %#v", plan.Steps)
	}
	if missing := plan.Steps[0].Parameters["missing"].([]string); !reflect.DeepEqual(missing, []string{"quantity"}) {
		t.Fatalf("unexpected missing: %#v", missing)
	}
}

func TestCartUpdateWithoutLineItemIDDelegates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cart.content = `{"mode":"single","steps":[{"action":"update_cart_items","parameters":{"items":[{"referencedId":"p-1","quantity":3}]}}]}`
	f.comm.content = `{"mode":"single","steps":[{"action":"communication","parameters":{"message":"Which cart item should I change?"}}]}`

	plan, err := f.registry.Cart().PlanAndExecute(context.Background(), contractx.AgentRequest{Message: "make it three"})
	if err != nil {
		t.Fatalf("PlanAndExecute() error = %v", err)
	}
	if len(f.executor.calls) != 0 {
		t.Fatalf("executor must not be called, got %#v", f.executor.calls)
	}
	if missing := plan.Steps[0].Parameters["missing"].([]string); !reflect.DeepEqual(missing, []string{"items", "id"}) {
		t.Fatalf("unexpected missing: %#v", missing)
	}
}

func TestNormalizeUpdateCartItemsFromTopLevel(t *testing.T) {
	t.Parallel()

	p, hints := normalizeUpdateCartItems(map[string]any{"id": "li-1", "quantity": float64(2)})
	if len(hints) != 0 {
		t.Fatalf("unexpected hints: %#v", hints)
	}
	want := []any{map[string]any{"id": "li-1", "quantity": float64(2)}}
	if !reflect.DeepEqual(p["items"], want) {
		t.Fatalf("unexpected items: %#v", p["items"])
	}
	if _, ok := p["id"]; ok {
		t.Fatalf("top-level id should be folded into items: %#v", p)
	}
}

func TestCartAddByEitherIdentifierExecutes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cart.content = `{"mode":"single","steps":[{"action":"add_to_cart","parameters":{"items":[{"productNumber":"SW100","quantity":2},{"productId":"abc","quantity":1}]}}],"done":true,"response_text":"Added."}`

	header := contractx.HeaderInfo{ContextToken: "tok-1"}
	plan, err := f.registry.Cart().PlanAndExecute(context.Background(), contractx.AgentRequest{Message: "add", Header: header})
	if err != nil {
		t.Fatalf("PlanAndExecute() error = %v", err)
	}
	if len(f.executor.calls) != 1 {
		t.Fatalf("expected one executor call, got %d", len(f.executor.calls))
	}
	call := f.executor.calls[0]
	if call.action != "add_to_cart" || call.header != header {
		t.Fatalf("unexpected call: %#v", call)
	}
	if items := call.payload["items"].([]any); len(items) != 2 {
		t.Fatalf("unexpected items: %#v", items)
	}
	if plan.Result == nil || plan.Result.ContextToken != "tok-2" || plan.Agent != contractx.AgentTypeCart {
		t.Fatalf("unexpected plan: %#v", plan)
	}
}

func TestSearchExpandsPayloadBeforeExecuting(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.search.content = `{"mode":"single","steps":[{"action":"search_products","parameters":{"query":"red shoes","includes":[{"alias":"product","fields":["id","name"]}]}}],"done":false,"response_text":"Searching"}`

	plan, err := f.registry.Search().PlanAndExecute(context.Background(), contractx.AgentRequest{
		Message: "red shoes",
		Outline: "No prior knowledge found.",
	})
	if err != nil {
		t.Fatalf("PlanAndExecute() error = %v", err)
	}
	call := f.executor.calls[0]
	if call.payload["search"] != "red shoes" {
		t.Fatalf("query alias not mapped: %#v", call.payload)
	}
	includes, ok := call.payload["includes"].(map[string]any)
	if !ok || !reflect.DeepEqual(includes["product"], []any{"id", "name"}) {
		t.Fatalf("includes not expanded: %#v", call.payload["includes"])
	}
	if plan.ResponseText != "Searching" || len(plan.Steps) != 1 {
		t.Fatalf("unexpected plan: %#v", plan)
	}

	sent := f.search.inputs[0]
	if sent[0].Content != nonEmptyStepsGuard || !strings.HasPrefix(sent[2].Content, "USER GOAL:") || !strings.HasPrefix(sent[3].Content, "CONTEXT_OUTLINE:") {
		t.Fatalf("unexpected message layout: %#v", sent)
	}
}

func TestExecutorFailureIsReportedNotRaised(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.executor.err = errors.New("storefront 500")
	f.search.content = `{"mode":"single","steps":[{"action":"get_product","parameters":{"productId":"p1"}}]}`

	plan, err := f.registry.Search().PlanAndExecute(context.Background(), contractx.AgentRequest{Message: "show p1"})
	if err != nil {
		t.Fatalf("PlanAndExecute() error = %v", err)
	}
	if plan.Result == nil || plan.Result.Error != "storefront 500" {
		t.Fatalf("expected error in result, got %#v", plan.Result)
	}
}

func TestSearchRejectsForeignAction(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.search.content = `{"mode":"single","steps":[{"action":"delete_cart","parameters":{}}]}`

	_, err := f.registry.Search().PlanAndExecute(context.Background(), contractx.AgentRequest{Message: "x"})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestEmptyStepsIsParseFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.search.content = `{"mode":"single","steps":[]}`

	_, err := f.registry.Search().PlanAndExecute(context.Background(), contractx.AgentRequest{Message: "x"})
	if !errors.Is(err, contractx.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestModelCommunicationStepUsesFallbackWithoutSecondCall(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.search.content = `{"mode":"single","steps":[{"action":"communication","parameters":{"message":"  "}}]}`

	plan, err := f.registry.Search().PlanAndExecute(context.Background(), contractx.AgentRequest{Message: "shoes", LanguageID: "de"})
	if err != nil {
		t.Fatalf("PlanAndExecute() error = %v", err)
	}
	if plan.ResponseText != "Könnten Sie die fehlenden Angaben ergänzen?" {
		t.Fatalf("unexpected fallback: %q", plan.ResponseText)
	}
	if f.comm.calls() != 0 || len(f.executor.calls) != 0 {
		t.Fatalf("no further calls expected")
	}
}

func TestOrderAgentUsesFixedPayload(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	plan, err := f.registry.Order().PlanAndExecute(context.Background(), contractx.AgentRequest{
		Message: "where is my order",
		Header:  contractx.HeaderInfo{ContextToken: "tok"},
	})
	if err != nil {
		t.Fatalf("PlanAndExecute() error = %v", err)
	}
	call := f.executor.calls[0]
	if call.action != ActionFetchOrders || call.payload["limit"] != 1 {
		t.Fatalf("unexpected call: %#v", call)
	}
	assoc := call.payload["associations"].(map[string]any)["deliveries"].(map[string]any)["associations"].(map[string]any)
	if _, ok := assoc["stateMachineState"]; !ok {
		t.Fatalf("missing delivery state association: %#v", call.payload)
	}
	if plan.ResponseText != "Here is your latest order." || f.search.calls()+f.cart.calls()+f.comm.calls() != 0 {
		t.Fatalf("order agent must not call a model: %#v", plan)
	}
}

func TestCommunicationAgentNeverExecutes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.comm.content = `{"mode":"single","steps":[{"action":"communication","parameters":{"message":"Hi! What are you looking for?","missing":[],"context":{}}}],"done":false}`

	cp, err := f.registry.Communication().PlanCommunication(context.Background(), contractx.AgentRequest{
		Seed:    contractx.Seed{"missing": []string{"search"}},
		Message: "hello",
	})
	if err != nil {
		t.Fatalf("PlanCommunication() error = %v", err)
	}
	if cp.Message != "Hi! What are you looking for?" || !reflect.DeepEqual(cp.Missing, []string{"search"}) {
		t.Fatalf("unexpected communication plan: %#v", cp)
	}
	if cp.Raw.Agent != contractx.AgentTypeCommunication || len(f.executor.calls) != 0 {
		t.Fatalf("unexpected raw plan or executor use: %#v", cp.Raw)
	}
}

func TestNormalizeAddToCartDropsIncompleteItems(t *testing.T) {
	t.Parallel()

	p, hints := normalizeAddToCart(map[string]any{
		"items": []any{
			map[string]any{"productNumber": "SW1", "quantity": float64(2)},
			map[string]any{"quantity": float64(1)},
			map[string]any{"productId": "x", "quantity": float64(0)},
		},
	})
	items := p["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one complete item, got %#v", items)
	}
	if !reflect.DeepEqual(hints, []string{"productNumber", "quantity"}) {
		t.Fatalf("unexpected hints: %#v", hints)
	}
}

func TestBuildMessagesSkipsEmptySections(t *testing.T) {
	t.Parallel()

	msgs := BuildMessages("sys", "goal", "", Section{Title: "seed", Content: contractx.Seed{}}, Section{Title: "notes", Content: "x"})
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[3].Content != "NOTES:\nx" {
		t.Fatalf("unexpected section: %q", msgs[3].Content)
	}
}
