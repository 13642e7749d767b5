package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/complaint"
)

const (
	BriefingFallback = "Unable to generate insight at this time."
	ReportFallback   = "분석 보고서를 생성할 수 없습니다. 잠시 후 다시 시도해 주세요."

	briefingPrompt = `You are the Insight Agent for the Busan Civil Complaint Dashboard.
Write a concise, professional daily briefing from the complaint statistics you are given.
Output HTML-safe text: use <br> for new lines and <strong> for emphasis.
Keep an administrative, data-driven tone and focus on trends, hotspots and recommendations.`

	reportPrompt = `부산광역시 민원 분석 보고서를 한국어로 작성합니다.
문체는 공공기관 보고서처럼 간결하고 전략적으로 작성하고, 형식은 Markdown입니다.
다음 세 절을 포함합니다.
1. 현황 분석 (심각성 위주)
2. 연관 패턴 (발견된 문제점)
3. 전략적 제언 (구체적 실행 방안)
영어 제목은 쓰지 않습니다.`
)

type Config struct {
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Agent writes dashboard briefings and per-complaint reports. A nil client
// makes every call return the fixed fallback text.
type Agent struct {
	client *openaisdk.Client
	cfg    Config
}

func New(client *openaisdk.Client, cfg Config) *Agent {
	return &Agent{client: client, cfg: cfg}
}

func (a *Agent) Briefing(ctx context.Context, stats complaint.Stats) string {
	raw, err := json.Marshal(stats)
	if err != nil {
		return BriefingFallback
	}
	out, err := a.complete(ctx, briefingPrompt, "Generate a briefing for these stats: "+string(raw))
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("insight briefing failed")
		return BriefingFallback
	}
	return out
}

func (a *Agent) Report(ctx context.Context, rec complaint.Record) string {
	raw, err := json.Marshal(map[string]any{
		"summary":           rec.Summary,
		"original_text":     rec.OriginalText,
		"category":          rec.Category,
		"location":          rec.Location,
		"urgency_score":     rec.UrgencyScore,
		"safety_risk_score": rec.SafetyRiskScore,
	})
	if err != nil {
		return ReportFallback
	}
	out, err := a.complete(ctx, reportPrompt, "민원 데이터: "+string(raw))
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("complaint_id", rec.ID).Msg("complaint report failed")
		return ReportFallback
	}
	return out
}

func (a *Agent) complete(ctx context.Context, system, user string) (string, error) {
	if a == nil || a.client == nil {
		return "", fmt.Errorf("insight client is not configured")
	}

	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(a.cfg.Model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(system),
			openaisdk.UserMessage(user),
		},
	}
	if a.cfg.Temperature > 0 {
		params.Temperature = openaisdk.Float(float64(a.cfg.Temperature))
	}

	var opts []option.RequestOption
	if a.cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(a.cfg.Timeout))
	}

	resp, err := a.client.Chat.Completions.New(ctx, params, opts...)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chat completion returned empty content")
	}
	return content, nil
}
