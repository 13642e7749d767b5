package conversationnode

import (
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
)

var ErrInvalidMessage = errors.New("message is empty")

const (
	ApologyMessage    = "죄송합니데이, 시스템에 잠시 문제가 생긴 것 같네예. 잠시 뒤에 다시 말해주이소."
	AttachmentMessage = "사진 형식을 처리할 수 없어요. JPG, PNG, GIF, WEBP 형식의 사진으로 다시 올려주세요."
	FollowUpMessage   = "말씀 잘 들었습니더. 접수를 위해 조금만 더 자세히 알려주시겠어예?"
	RegisteredMessage = "민원이 정상적으로 시스템에 등록되었습니다. 담당 부서에서 빠르게 확인하겠습니더."
	AttachmentMarker  = "[사진 첨부됨]"
	ImageOnlyPrompt   = "첨부한 사진을 보고 불편 사항을 확인해 주세요."
)

type GraphInput struct {
	History   []contractx.Turn
	Message   string
	ImageData string
	Env       contractx.ToolEnv
}

// GraphState is shared by pointer across nodes so the caller can still read
// committed side effects (saved complaint ids) after a failed cycle.
type GraphState struct {
	Env contractx.ToolEnv

	History    []contractx.Turn
	UserTurn   contractx.Turn
	Transcript []contractx.Turn

	Assistant contractx.AssistantTurn
	ToolTurns []contractx.Turn
	Final     contractx.AssistantTurn

	ComplaintIDs []string
}

type GraphOutput struct {
	Reply        string
	History      []contractx.Turn
	ComplaintIDs []string
}

// PrepareState validates the inbound message and builds the user turn.
func PrepareState(in GraphInput) (*GraphState, error) {
	text := strings.TrimSpace(in.Message)
	image := strings.TrimSpace(in.ImageData)
	if text == "" && image == "" {
		return nil, ErrInvalidMessage
	}

	user := contractx.Turn{Role: contractx.RoleUser, Content: text}
	if image != "" {
		if err := ValidateImageDataURL(image); err != nil {
			return nil, err
		}
		prompt := text
		if prompt == "" {
			prompt = ImageOnlyPrompt
		}
		user.Content = prompt
		user.Parts = []contractx.ContentPart{
			{Type: contractx.PartText, Text: prompt},
			{Type: contractx.PartImageURL, ImageURL: image},
		}
	}

	return &GraphState{
		Env:      in.Env,
		History:  NormalizeHistory(in.History),
		UserTurn: user,
	}, nil
}

func validState(in *GraphState) error {
	if in == nil {
		return fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	return nil
}
