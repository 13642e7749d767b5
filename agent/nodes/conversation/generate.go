package conversationnode

import (
	"context"

	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
)

// Generate is the first model call of a cycle; tool schemas are offered.
func Generate(ctx context.Context, in *GraphState, gateway contractx.Gateway, tools contractx.ToolRegistry) (*GraphState, error) {
	if err := validState(in); err != nil {
		return nil, err
	}
	out, err := gateway.Respond(ctx, in.Transcript, tools.Schemas())
	if err != nil {
		return nil, err
	}
	in.Assistant = out
	return in, nil
}

// GenerateFinal answers after tool results are in the transcript. No tools are
// offered so the model has to reply in prose.
func GenerateFinal(ctx context.Context, in *GraphState, gateway contractx.Gateway) (*GraphState, error) {
	if err := validState(in); err != nil {
		return nil, err
	}
	out, err := gateway.Respond(ctx, in.Transcript, nil)
	if err != nil {
		return nil, err
	}
	in.Final = out
	return in, nil
}

func NeedsTools(in *GraphState) bool {
	return in != nil && in.Assistant.HasToolCalls()
}
