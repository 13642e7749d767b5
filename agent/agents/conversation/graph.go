package conversation

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
	nodex "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/nodes/conversation"
)

const (
	nodeBuildTranscript = "build_transcript"
	nodeGenerate        = "generate"
	nodeDispatchTools   = "dispatch_tools"
	nodeGenerateFinal   = "generate_final"
	nodeCommitReply     = "commit_reply"
	nodeCommitToolReply = "commit_tool_reply"
)

func (c *Controller) compileHandleTurnGraph(
	ctx context.Context,
) (compose.Runnable[*nodex.GraphState, nodex.GraphOutput], error) {
	graph := compose.NewGraph[*nodex.GraphState, nodex.GraphOutput]()

	if err := graph.AddLambdaNode(nodeBuildTranscript,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.BuildTranscript(in, c.systemPrompt)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node build_transcript: %w", err)
	}

	if err := graph.AddLambdaNode(nodeGenerate,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Generate(ctx, in, c.gateway, c.tools)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node generate: %w", err)
	}

	if err := graph.AddLambdaNode(nodeDispatchTools,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DispatchTools(ctx, in, c.tools)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch_tools: %w", err)
	}

	if err := graph.AddLambdaNode(nodeGenerateFinal,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.GenerateFinal(ctx, in, c.gateway)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node generate_final: %w", err)
	}

	if err := graph.AddLambdaNode(nodeCommitReply,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.CommitReply(in, c.toolNames)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node commit_reply: %w", err)
	}

	if err := graph.AddLambdaNode(nodeCommitToolReply,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.CommitToolReply(in, c.toolNames)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node commit_tool_reply: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
			}
			if nodex.NeedsTools(in) {
				return nodeDispatchTools, nil
			}
			return nodeCommitReply, nil
		},
		map[string]bool{
			nodeDispatchTools: true,
			nodeCommitReply:   true,
		},
	)
	if err := graph.AddBranch(nodeGenerate, branch); err != nil {
		return nil, fmt.Errorf("add branch after generate: %w", err)
	}

	edges := [][2]string{
		{compose.START, nodeBuildTranscript},
		{nodeBuildTranscript, nodeGenerate},
		{nodeDispatchTools, nodeGenerateFinal},
		{nodeGenerateFinal, nodeCommitToolReply},
		{nodeCommitReply, compose.END},
		{nodeCommitToolReply, compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("conversation.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile conversation graph: %w", err)
	}
	return runner, nil
}
