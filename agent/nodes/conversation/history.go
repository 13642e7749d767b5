package conversationnode

import (
	"strings"

	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
)

// NormalizeHistory repairs stored history before it is sent to the model:
// system turns are dropped, tool turns must directly answer a request of the
// preceding assistant turn, and unanswered requests are stripped.
func NormalizeHistory(in []contractx.Turn) []contractx.Turn {
	out := make([]contractx.Turn, 0, len(in))
	for i := 0; i < len(in); i++ {
		turn := in[i]
		switch turn.Role {
		case contractx.RoleUser:
			out = append(out, turn)
		case contractx.RoleAssistant:
			if len(turn.ToolCalls) == 0 {
				out = append(out, turn)
				continue
			}

			pending := make(map[string]struct{}, len(turn.ToolCalls))
			for _, c := range turn.ToolCalls {
				pending[c.ID] = struct{}{}
			}
			var answers []contractx.Turn
			j := i + 1
			for ; j < len(in) && in[j].Role == contractx.RoleTool; j++ {
				if _, ok := pending[in[j].ToolCallID]; ok {
					answers = append(answers, in[j])
					delete(pending, in[j].ToolCallID)
				}
			}
			i = j - 1

			kept := make([]contractx.ToolInvocationRequest, 0, len(turn.ToolCalls))
			for _, c := range turn.ToolCalls {
				if _, unanswered := pending[c.ID]; !unanswered {
					kept = append(kept, c)
				}
			}
			turn.ToolCalls = kept
			if len(kept) == 0 {
				turn.ToolCalls = nil
				if strings.TrimSpace(turn.Content) != "" {
					out = append(out, turn)
				}
				continue
			}
			out = append(out, turn)
			out = append(out, answers...)
		}
	}
	return out
}

// CompactUserTurn replaces an attachment with a short marker so stored
// history does not carry the image payload.
func CompactUserTurn(turn contractx.Turn) contractx.Turn {
	if !turn.HasAttachment() {
		turn.Parts = nil
		return turn
	}
	text := strings.TrimSpace(turn.Content)
	if text == ImageOnlyPrompt {
		text = ""
	}
	return contractx.Turn{
		Role:    contractx.RoleUser,
		Content: strings.TrimSpace(text + " " + AttachmentMarker),
	}
}
