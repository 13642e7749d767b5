package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
	nodex "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/nodes/conversation"
)

var ErrInvalidMessage = nodex.ErrInvalidMessage

type Input struct {
	History   []contractx.Turn
	Message   string
	ImageData string
	// Env is handed to every tool invoked during this cycle.
	Env contractx.ToolEnv
}

type Result struct {
	Reply               string
	History             []contractx.Turn
	ComplaintRegistered bool
	ComplaintIDs        []string
	// Failed is set when generation failed and the reply is a fixed notice.
	Failed bool
}

// Controller runs one conversation cycle: a model call, optional tool
// dispatch and a final model call.
type Controller struct {
	gateway      contractx.Gateway
	tools        contractx.ToolRegistry
	systemPrompt string
	toolNames    []string

	graphRunner compose.Runnable[*nodex.GraphState, nodex.GraphOutput]
}

func New(gateway contractx.Gateway, tools contractx.ToolRegistry, systemPrompt string) (*Controller, error) {
	if gateway == nil {
		return nil, errors.New("model gateway is required")
	}
	if tools == nil {
		return nil, errors.New("tool registry is required")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: system prompt", contractx.ErrPromptMissing)
	}

	c := &Controller{
		gateway:      gateway,
		tools:        tools,
		systemPrompt: systemPrompt,
	}
	for _, info := range tools.Schemas() {
		if info != nil {
			c.toolNames = append(c.toolNames, info.Name)
		}
	}

	graphRunner, err := c.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	c.graphRunner = graphRunner

	return c, nil
}

// Handle returns an error only for caller mistakes (an empty message).
// Generation failures are reported through Result.Failed with the input
// history left untouched.
func (c *Controller) Handle(ctx context.Context, in Input) (Result, error) {
	st, err := nodex.PrepareState(nodex.GraphInput{
		History:   in.History,
		Message:   in.Message,
		ImageData: in.ImageData,
		Env:       in.Env,
	})
	if err != nil {
		if errors.Is(err, contractx.ErrUnsupportedAttachment) {
			log.Ctx(ctx).Warn().Err(err).Msg("rejected attachment")
			return failed(in.History, nodex.AttachmentMessage, nil), nil
		}
		return Result{}, err
	}

	out, err := c.graphRunner.Invoke(ctx, st)
	if err != nil {
		reply := nodex.ApologyMessage
		if errors.Is(err, contractx.ErrUnsupportedAttachment) {
			reply = nodex.AttachmentMessage
		}
		log.Ctx(ctx).Error().
			Err(err).
			Strs("complaint_ids", st.ComplaintIDs).
			Msg("conversation cycle failed")
		return failed(in.History, reply, st.ComplaintIDs), nil
	}

	return Result{
		Reply:               out.Reply,
		History:             out.History,
		ComplaintRegistered: len(out.ComplaintIDs) > 0,
		ComplaintIDs:        out.ComplaintIDs,
	}, nil
}

func failed(history []contractx.Turn, reply string, ids []string) Result {
	return Result{
		Reply:               reply,
		History:             contractx.CloneTurns(history),
		ComplaintRegistered: len(ids) > 0,
		ComplaintIDs:        append([]string(nil), ids...),
		Failed:              true,
	}
}
