package conversationnode

import (
	"context"

	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
)

// DispatchTools appends the assistant request turn, then one tool turn per
// invocation in the order received. Invocations run one after another.
func DispatchTools(ctx context.Context, in *GraphState, tools contractx.ToolRegistry) (*GraphState, error) {
	if err := validState(in); err != nil {
		return nil, err
	}

	in.Transcript = append(in.Transcript, in.Assistant.Turn())
	for _, call := range in.Assistant.ToolCalls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out := tools.Invoke(ctx, call.Name, call.Args, in.Env)
		turn := contractx.Turn{
			Role:       contractx.RoleTool,
			Content:    out.Content,
			ToolCallID: call.ID,
			ToolName:   call.Name,
		}
		in.ToolTurns = append(in.ToolTurns, turn)
		in.Transcript = append(in.Transcript, turn)
		if out.ComplaintID != "" {
			in.ComplaintIDs = append(in.ComplaintIDs, out.ComplaintID)
		}
	}
	return in, nil
}
