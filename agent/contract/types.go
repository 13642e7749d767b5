package contract

import "strings"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type PartType string

const (
	PartText     PartType = "text"
	PartImageURL PartType = "image_url"
)

// ContentPart is one segment of a multi-part user turn.
type ContentPart struct {
	Type     PartType `json:"type"`
	Text     string   `json:"text,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
}

// Turn is one entry of a session transcript.
//
// A tool turn answers exactly one ToolInvocationRequest of the assistant turn
// directly before it; ToolCallID carries the request id.
type Turn struct {
	Role       Role                    `json:"role"`
	Content    string                  `json:"content,omitempty"`
	Parts      []ContentPart           `json:"parts,omitempty"`
	ToolCalls  []ToolInvocationRequest `json:"tool_calls,omitempty"`
	ToolCallID string                  `json:"tool_call_id,omitempty"`
	ToolName   string                  `json:"tool_name,omitempty"`
}

func (t Turn) HasAttachment() bool {
	for _, p := range t.Parts {
		if p.Type == PartImageURL && strings.TrimSpace(p.ImageURL) != "" {
			return true
		}
	}
	return false
}

type ToolInvocationRequest struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// AssistantTurn is the normalized model output. Content is empty whenever
// ToolCalls is non-empty.
type AssistantTurn struct {
	Content   string
	ToolCalls []ToolInvocationRequest
}

func (a AssistantTurn) HasToolCalls() bool {
	return len(a.ToolCalls) > 0
}

func (a AssistantTurn) Turn() Turn {
	return Turn{
		Role:      RoleAssistant,
		Content:   a.Content,
		ToolCalls: a.ToolCalls,
	}.Clone()
}

// ToolOutcome is what a tool hands back to the conversation. Content is the
// JSON payload placed in the tool turn; ComplaintID is set only when a
// complaint record was committed.
type ToolOutcome struct {
	Content     string
	ComplaintID string
}

// CloneTurns deep-copies turns so callers and stores never share parts, tool
// calls or argument maps.
func CloneTurns(in []Turn) []Turn {
	if in == nil {
		return nil
	}
	out := make([]Turn, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}

func (t Turn) Clone() Turn {
	if t.Parts != nil {
		t.Parts = append([]ContentPart(nil), t.Parts...)
	}
	if t.ToolCalls != nil {
		calls := make([]ToolInvocationRequest, len(t.ToolCalls))
		for i, c := range t.ToolCalls {
			c.Args = cloneArgs(c.Args)
			calls[i] = c
		}
		t.ToolCalls = calls
	}
	return t
}

func cloneArgs(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneArgs(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
