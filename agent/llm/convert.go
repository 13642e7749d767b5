package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
)

var fencedBlock = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n?(.*?)\\n?```$")

func toMessages(transcript []contractx.Turn) ([]*schema.Message, error) {
	out := make([]*schema.Message, 0, len(transcript))
	for i, turn := range transcript {
		switch turn.Role {
		case contractx.RoleSystem:
			out = append(out, schema.SystemMessage(turn.Content))
		case contractx.RoleUser:
			out = append(out, userMessage(turn))
		case contractx.RoleAssistant:
			out = append(out, schema.AssistantMessage(turn.Content, toToolCalls(turn.ToolCalls)))
		case contractx.RoleTool:
			out = append(out, &schema.Message{
				Role:       schema.Tool,
				Content:    turn.Content,
				ToolCallID: turn.ToolCallID,
			})
		default:
			return nil, fmt.Errorf("%w: turn %d has unknown role %q", contractx.ErrValidation, i, turn.Role)
		}
	}
	return out, nil
}

func userMessage(turn contractx.Turn) *schema.Message {
	if len(turn.Parts) == 0 {
		return schema.UserMessage(turn.Content)
	}
	parts := make([]schema.ChatMessagePart, 0, len(turn.Parts))
	for _, p := range turn.Parts {
		switch p.Type {
		case contractx.PartImageURL:
			parts = append(parts, schema.ChatMessagePart{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL:    p.ImageURL,
					Detail: schema.ImageURLDetailAuto,
				},
			})
		default:
			parts = append(parts, schema.ChatMessagePart{
				Type: schema.ChatMessagePartTypeText,
				Text: p.Text,
			})
		}
	}
	return &schema.Message{Role: schema.User, MultiContent: parts}
}

func toToolCalls(reqs []contractx.ToolInvocationRequest) []schema.ToolCall {
	if len(reqs) == 0 {
		return nil
	}
	calls := make([]schema.ToolCall, 0, len(reqs))
	for _, r := range reqs {
		args := "{}"
		if len(r.Args) > 0 {
			if raw, err := json.Marshal(r.Args); err == nil {
				args = string(raw)
			}
		}
		calls = append(calls, schema.ToolCall{
			ID:   r.ID,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      r.Name,
				Arguments: args,
			},
		})
	}
	return calls
}

// normalizeAssistant maps a provider message onto the AssistantTurn contract.
// Tool calls win over content; ids are made unique; bad argument JSON becomes
// an empty argument map.
func normalizeAssistant(msg *schema.Message, logger *zerolog.Logger) contractx.AssistantTurn {
	if len(msg.ToolCalls) == 0 {
		return contractx.AssistantTurn{Content: stripFence(msg.Content)}
	}

	seen := make(map[string]struct{}, len(msg.ToolCalls))
	reqs := make([]contractx.ToolInvocationRequest, 0, len(msg.ToolCalls))
	for i, call := range msg.ToolCalls {
		id := strings.TrimSpace(call.ID)
		if _, dup := seen[id]; id == "" || dup {
			for n := i + 1; ; n++ {
				id = fmt.Sprintf("call_%d", n)
				if _, taken := seen[id]; !taken {
					break
				}
			}
		}
		seen[id] = struct{}{}

		args := map[string]any{}
		if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				logger.Warn().
					Err(fmt.Errorf("%w: tool arguments: %v", contractx.ErrSchemaViolation, err)).
					Str("tool", call.Function.Name).
					Msg("discarding malformed tool arguments")
				args = map[string]any{}
			}
		}

		reqs = append(reqs, contractx.ToolInvocationRequest{
			ID:   id,
			Name: strings.TrimSpace(call.Function.Name),
			Args: args,
		})
	}
	return contractx.AssistantTurn{ToolCalls: reqs}
}

func stripFence(content string) string {
	content = strings.TrimSpace(content)
	if m := fencedBlock.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return content
}
