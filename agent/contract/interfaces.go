package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"
	"github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/complaint"
)

// Gateway turns a transcript into one normalized assistant turn. Tools are
// offered to the model only when the slice is non-empty.
type Gateway interface {
	Respond(ctx context.Context, transcript []Turn, tools []*schema.ToolInfo) (AssistantTurn, error)
}

// ToolEnv is the per-request handle passed through a cycle to the tools. A
// tool that needs a missing handle reports it in its payload.
type ToolEnv struct {
	Complaints complaint.Sink
}

// ToolRegistry dispatches model-requested tools. Invoke never fails: problems
// are reported inside the returned payload.
type ToolRegistry interface {
	Schemas() []*schema.ToolInfo
	Invoke(ctx context.Context, name string, args map[string]any, env ToolEnv) ToolOutcome
}
