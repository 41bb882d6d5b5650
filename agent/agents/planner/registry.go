package planner

import (
	"context"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"

	catalogx "github.com/tanpawarit/Chative-Commerce-Router/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	promptx "github.com/tanpawarit/Chative-Commerce-Router/agent/prompt"
)

// ModelFactory returns the chat model for one agent. llm.Config.ModelFor satisfies it.
type ModelFactory func(ctx context.Context, agentType contractx.AgentType) (einomodel.BaseChatModel, error)

type Deps struct {
	Catalog  *catalogx.Catalog
	Prompts  *promptx.Library
	Executor contractx.ActionExecutor
	Models   ModelFactory
	Timeout  time.Duration
}

type Registry struct {
	search        contractx.Agent
	cart          contractx.Agent
	order         contractx.Agent
	communication contractx.Communicator
}

var _ contractx.Registry = (*Registry)(nil)

func (r *Registry) Search() contractx.Agent               { return r.search }
func (r *Registry) Cart() contractx.Agent                 { return r.cart }
func (r *Registry) Order() contractx.Agent                { return r.order }
func (r *Registry) Communication() contractx.Communicator { return r.communication }

func NewRegistry(ctx context.Context, deps Deps) (*Registry, error) {
	if deps.Models == nil {
		return nil, fmt.Errorf("%w: model factory is required", contractx.ErrValidation)
	}
	rt, err := NewRuntime(deps.Catalog, deps.Prompts, deps.Executor, deps.Timeout)
	if err != nil {
		return nil, err
	}

	commModel, err := deps.Models(ctx, contractx.AgentTypeCommunication)
	if err != nil {
		return nil, fmt.Errorf("%w: build communication model: %v", contractx.ErrModelInvoke, err)
	}
	comm, err := newCommunicationAgent(ctx, rt, commModel)
	if err != nil {
		return nil, err
	}

	searchModel, err := deps.Models(ctx, contractx.AgentTypeSearch)
	if err != nil {
		return nil, fmt.Errorf("%w: build search model: %v", contractx.ErrModelInvoke, err)
	}
	search, err := newSearchAgent(ctx, rt, searchModel, comm)
	if err != nil {
		return nil, err
	}

	cartModel, err := deps.Models(ctx, contractx.AgentTypeCart)
	if err != nil {
		return nil, fmt.Errorf("%w: build cart model: %v", contractx.ErrModelInvoke, err)
	}
	cart, err := newCartAgent(ctx, rt, cartModel, comm)
	if err != nil {
		return nil, err
	}

	return &Registry{
		search:        search,
		cart:          cart,
		order:         &orderAgent{runtime: rt},
		communication: comm,
	}, nil
}
