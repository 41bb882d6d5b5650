package coordinator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/tanpawarit/Chative-Commerce-Router/agent/nodes/coordinator"
)

func (c *Coordinator) compileProcessTurnGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode(nodex.NodeValidateRequest,
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, c.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeValidateRequest, err)
	}

	steps := []struct {
		name string
		fn   func(context.Context, *nodex.GraphState) (*nodex.GraphState, error)
	}{
		{nodex.NodeLoadSession, func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadSession(ctx, in, c.store)
		}},
		{nodex.NodeReadMemory, func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ReadMemory(ctx, in, c.reader)
		}},
		{nodex.NodeClassify, func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Classify(ctx, in, c.classifier)
		}},
		{nodex.NodeRespondNonShopping, func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RespondNonShopping(ctx, in, c.registry)
		}},
		{nodex.NodeRunSequence, func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RunSequence(ctx, in, c.registry)
		}},
		{nodex.NodeSaveSession, func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveSession(ctx, in, c.store, c.maxTurns)
		}},
		{nodex.NodeWriteMemory, func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.WriteMemory(ctx, in, c.dispatcher)
		}},
	}
	for _, s := range steps {
		if err := graph.AddLambdaNode(s.name, compose.InvokableLambda(s.fn)); err != nil {
			return nil, fmt.Errorf("add node %s: %w", s.name, err)
		}
	}

	if err := graph.AddLambdaNode(nodex.NodeFinalize,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.Finalize(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeFinalize, err)
	}

	edges := [][2]string{
		{compose.START, nodex.NodeValidateRequest},
		{nodex.NodeValidateRequest, nodex.NodeLoadSession},
		{nodex.NodeLoadSession, nodex.NodeReadMemory},
		{nodex.NodeReadMemory, nodex.NodeClassify},
		{nodex.NodeRespondNonShopping, nodex.NodeSaveSession},
		{nodex.NodeRunSequence, nodex.NodeSaveSession},
		{nodex.NodeSaveSession, nodex.NodeWriteMemory},
		{nodex.NodeWriteMemory, nodex.NodeFinalize},
		{nodex.NodeFinalize, compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			return nodex.NextAfterClassify(in)
		},
		map[string]bool{
			nodex.NodeRespondNonShopping: true,
			nodex.NodeRunSequence:        true,
		},
	)
	if err := graph.AddBranch(nodex.NodeClassify, branch); err != nil {
		return nil, fmt.Errorf("add branch %s: %w", nodex.NodeClassify, err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("coordinator.process_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile coordinator graph: %w", err)
	}
	return runner, nil
}
