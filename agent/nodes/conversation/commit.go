package conversationnode

import (
	"encoding/json"
	"regexp"
	"strings"

	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
)

var (
	codeFence   = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	toolMarkers = []string{`"tool_calls"`, `"function_call"`, "<tool_call>", "</tool_call>"}
)

// CommitReply finishes a cycle in which the model answered directly.
// toolNames are the advertised tools whose call syntax must not leak.
func CommitReply(in *GraphState, toolNames []string) (GraphOutput, error) {
	if err := validState(in); err != nil {
		return GraphOutput{}, err
	}
	return commit(in, in.Assistant, toolNames), nil
}

// CommitToolReply finishes a cycle that went through tool dispatch.
func CommitToolReply(in *GraphState, toolNames []string) (GraphOutput, error) {
	if err := validState(in); err != nil {
		return GraphOutput{}, err
	}
	return commit(in, in.Final, toolNames), nil
}

// commit appends only the compact user turn and the final assistant turn;
// intermediate tool traffic is not kept in history.
func commit(in *GraphState, assistant contractx.AssistantTurn, toolNames []string) GraphOutput {
	reply := SanitizeReply(assistant.Content, len(in.ComplaintIDs) > 0, toolNames)

	history := make([]contractx.Turn, 0, len(in.History)+2)
	history = append(history, in.History...)
	history = append(history,
		CompactUserTurn(in.UserTurn),
		contractx.Turn{Role: contractx.RoleAssistant, Content: reply},
	)

	return GraphOutput{
		Reply:        reply,
		History:      history,
		ComplaintIDs: append([]string(nil), in.ComplaintIDs...),
	}
}

// SanitizeReply keeps raw JSON and tool-call syntax away from citizens.
func SanitizeReply(content string, registered bool, toolNames []string) string {
	reply := strings.TrimSpace(content)
	if m := codeFence.FindStringSubmatch(reply); m != nil {
		reply = strings.TrimSpace(m[1])
	}
	if reply == "" || looksLikeMachineOutput(reply, toolNames) {
		if registered {
			return RegisteredMessage
		}
		return FollowUpMessage
	}
	return reply
}

func looksLikeMachineOutput(s string, toolNames []string) bool {
	if (strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")) && json.Valid([]byte(s)) {
		return true
	}
	for _, m := range toolMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	for _, name := range toolNames {
		if callsTool(s, name) {
			return true
		}
	}
	return false
}

// callsTool reports whether name appears as a whole word followed by an
// opening parenthesis, e.g. `save_complaint_to_db (`.
func callsTool(s, name string) bool {
	if name == "" {
		return false
	}
	for from := 0; ; {
		i := strings.Index(s[from:], name)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(name)
		from = end
		if start > 0 && isWordByte(s[start-1]) {
			continue
		}
		rest := strings.TrimLeft(s[end:], " \t")
		if strings.HasPrefix(rest, "(") {
			return true
		}
	}
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
