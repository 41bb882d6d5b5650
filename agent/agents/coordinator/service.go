// Package coordinator runs one conversational turn: it classifies the message,
// routes each intent to its planner in order, and persists the session.
package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	"github.com/tanpawarit/Chative-Commerce-Router/agent/memory"
	nodex "github.com/tanpawarit/Chative-Commerce-Router/agent/nodes/coordinator"
	statex "github.com/tanpawarit/Chative-Commerce-Router/agent/state"
)

type Deps struct {
	Store      statex.Store
	Classifier contractx.Classifier
	Registry   contractx.Registry

	// Memory collaborators are optional.
	Reader     *memory.Reader
	Dispatcher contractx.EpisodeDispatcher

	MaxTurns int
	Now      func() time.Time
}

type Coordinator struct {
	store      statex.Store
	classifier contractx.Classifier
	registry   contractx.Registry
	reader     *memory.Reader
	dispatcher contractx.EpisodeDispatcher
	maxTurns   int

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(deps Deps) (*Coordinator, error) {
	if deps.Store == nil {
		return nil, errors.New("state store is required")
	}
	if deps.Classifier == nil {
		return nil, errors.New("intent classifier is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("agent registry is required")
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = memory.NoopDispatcher{}
	}
	if deps.MaxTurns <= 0 {
		deps.MaxTurns = statex.DefaultMaxTurns
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	c := &Coordinator{
		store:      deps.Store,
		classifier: deps.Classifier,
		registry:   deps.Registry,
		reader:     deps.Reader,
		dispatcher: deps.Dispatcher,
		maxTurns:   deps.MaxTurns,
		now:        deps.Now,
	}

	graphRunner, err := c.compileProcessTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	c.graphRunner = graphRunner

	return c, nil
}

// Process handles one user message. Step failures are reported inside the
// result; only validation, session and classification failures return an error.
func (c *Coordinator) Process(ctx context.Context, req contractx.TurnRequest) (contractx.TurnResult, error) {
	return c.graphRunner.Invoke(ctx, req)
}
