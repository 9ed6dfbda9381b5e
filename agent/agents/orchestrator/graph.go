package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/tanpawarit/chative-workplace-assistant/agent/nodes/orchestrator"
)

func (o *Orchestrator) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_session",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadSession(ctx, in, o.store, o.logger)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_session: %w", err)
	}

	if err := graph.AddLambdaNode("select_agent",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SelectAgent(ctx, in, o.selector, o.agents, o.logger)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node select_agent: %w", err)
	}

	if err := graph.AddLambdaNode("delegate",
		compose.InvokableLambda(o.delegator.Run),
	); err != nil {
		return nil, fmt.Errorf("add node delegate: %w", err)
	}

	if err := graph.AddLambdaNode("persist_turn",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.PersistTurn(ctx, in, o.store, o.now, o.logger)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node persist_turn: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_session"},
		{"load_session", "select_agent"},
		{"select_agent", "delegate"},
		{"delegate", "persist_turn"},
		{"persist_turn", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
