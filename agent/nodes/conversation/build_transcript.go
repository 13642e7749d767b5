package conversationnode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
)

func BuildTranscript(in *GraphState, systemPrompt string) (*GraphState, error) {
	if err := validState(in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: system prompt", contractx.ErrPromptMissing)
	}

	transcript := make([]contractx.Turn, 0, len(in.History)+2)
	transcript = append(transcript, contractx.Turn{Role: contractx.RoleSystem, Content: systemPrompt})
	transcript = append(transcript, in.History...)
	transcript = append(transcript, in.UserTurn)
	in.Transcript = transcript
	return in, nil
}
