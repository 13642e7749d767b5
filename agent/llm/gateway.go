package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
)

// Provider error fragments that mean the attached image was rejected.
var attachmentErrorMarkers = []string{
	"image_parse_error",
	"invalid_image",
	"invalid image",
	"unsupported image",
	"image format",
	"could not process image",
}

// Gateway wraps a tool-calling chat model behind the Respond contract.
type Gateway struct {
	model   einomodel.ToolCallingChatModel
	timeout time.Duration
}

var _ contractx.Gateway = (*Gateway)(nil)

func NewGateway(model einomodel.ToolCallingChatModel, timeout time.Duration) (*Gateway, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	return &Gateway{model: model, timeout: timeout}, nil
}

// NewGatewayFromConfig builds the provider model, or the offline stand-in
// when no API key is configured.
func NewGatewayFromConfig(ctx context.Context, cfg Config) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Offline() {
		log.Warn().Msg("llm api key not configured, using offline model")
		return NewGateway(NewOfflineModel(), cfg.Timeout)
	}
	orCfg := cfg.OpenRouter()
	m, err := orCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	return NewGateway(m, cfg.Timeout)
}

func (g *Gateway) Respond(ctx context.Context, transcript []contractx.Turn, tools []*schema.ToolInfo) (contractx.AssistantTurn, error) {
	if len(transcript) == 0 {
		return contractx.AssistantTurn{}, fmt.Errorf("%w: transcript is empty", contractx.ErrValidation)
	}

	msgs, err := toMessages(transcript)
	if err != nil {
		return contractx.AssistantTurn{}, err
	}

	var chat einomodel.BaseChatModel = g.model
	if len(tools) > 0 {
		bound, err := g.model.WithTools(tools)
		if err != nil {
			return contractx.AssistantTurn{}, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
		}
		chat = bound
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	msg, err := chat.Generate(ctx, msgs)
	if err != nil {
		return contractx.AssistantTurn{}, classifyError(err)
	}
	if msg == nil {
		return contractx.AssistantTurn{}, fmt.Errorf("%w: empty model response", contractx.ErrModelInvoke)
	}

	logger := log.Ctx(ctx)
	out := normalizeAssistant(msg, logger)
	logger.Debug().
		Int("turns", len(transcript)).
		Bool("tools_offered", len(tools) > 0).
		Int("tool_calls", len(out.ToolCalls)).
		Dur("took", time.Since(start)).
		Msg("model responded")
	return out, nil
}

func classifyError(err error) error {
	text := strings.ToLower(err.Error())
	for _, marker := range attachmentErrorMarkers {
		if strings.Contains(text, marker) {
			return fmt.Errorf("%w: %w: %v", contractx.ErrModelInvoke, contractx.ErrUnsupportedAttachment, err)
		}
	}
	return fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
}
