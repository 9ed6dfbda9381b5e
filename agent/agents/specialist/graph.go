package specialist

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// compileDelegateGraph builds instructions -> model. The thread is sent
// as-is after the agent's system instructions.
func compileDelegateGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	instructions string,
	graphName string,
) (compose.Runnable[[]*schema.Message, *schema.Message], error) {
	graph := compose.NewGraph[[]*schema.Message, *schema.Message]()

	if err := graph.AddLambdaNode("instructions",
		compose.InvokableLambda(func(_ context.Context, thread []*schema.Message) ([]*schema.Message, error) {
			out := make([]*schema.Message, 0, len(thread)+1)
			out = append(out, schema.SystemMessage(instructions))
			for _, m := range thread {
				if m == nil {
					continue
				}
				out = append(out, m)
			}
			return out, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add instructions node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add model node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "instructions"); err != nil {
		return nil, fmt.Errorf("add edge start->instructions: %w", err)
	}
	if err := graph.AddEdge("instructions", "model"); err != nil {
		return nil, fmt.Errorf("add edge instructions->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", graphName, err)
	}
	return runner, nil
}
