package llm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
)

type fakeToolCallingModel struct {
	responses  []*schema.Message
	err        error
	idx        int
	boundTools []*schema.ToolInfo
	inputs     [][]*schema.Message
	block      bool
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.inputs = append(f.inputs, input)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	f.boundTools = tools
	return f, nil
}

func transcript(text string) []contractx.Turn {
	return []contractx.Turn{
		{Role: contractx.RoleSystem, Content: "system"},
		{Role: contractx.RoleUser, Content: text},
	}
}

func TestRespondPlainContent(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{{Role: schema.Assistant, Content: "  어디서 발생했나예?  "}}}
	gw, err := NewGateway(fake, time.Second)
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}

	out, err := gw.Respond(context.Background(), transcript("도로에 큰 구멍이 있어요"), nil)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if out.Content != "어디서 발생했나예?" {
		t.Fatalf("unexpected content: %q", out.Content)
	}
	if out.HasToolCalls() {
		t.Fatalf("unexpected tool calls: %#v", out.ToolCalls)
	}
	if fake.boundTools != nil {
		t.Fatal("tools must not be bound when none are offered")
	}
}

func TestRespondToolCallsWinOverContent(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{{
		Role:    schema.Assistant,
		Content: "잠시만예",
		ToolCalls: []schema.ToolCall{
			{ID: "call_a", Function: schema.FunctionCall{Name: "get_location_info", Arguments: `{"query":"서면"}`}},
			{ID: "", Function: schema.FunctionCall{Name: "search_admin_manual", Arguments: `not json`}},
			{ID: "call_a", Function: schema.FunctionCall{Name: "save_complaint_to_db", Arguments: ""}},
		},
	}}}
	gw, _ := NewGateway(fake, 0)

	tools := []*schema.ToolInfo{{Name: "get_location_info"}}
	out, err := gw.Respond(context.Background(), transcript("서면"), tools)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if out.Content != "" {
		t.Fatalf("content must be cleared when tool calls are present, got %q", out.Content)
	}
	if len(out.ToolCalls) != 3 {
		t.Fatalf("expected 3 tool calls, got %d", len(out.ToolCalls))
	}
	if out.ToolCalls[0].ID != "call_a" || out.ToolCalls[0].Args["query"] != "서면" {
		t.Fatalf("unexpected first call: %#v", out.ToolCalls[0])
	}
	if out.ToolCalls[1].ID != "call_2" || len(out.ToolCalls[1].Args) != 0 {
		t.Fatalf("unexpected second call: %#v", out.ToolCalls[1])
	}
	if out.ToolCalls[2].ID != "call_3" {
		t.Fatalf("duplicate id must be replaced, got %q", out.ToolCalls[2].ID)
	}
	if len(fake.boundTools) != 1 {
		t.Fatalf("expected tools to be bound, got %#v", fake.boundTools)
	}
}

func callsWithIDs(ids ...string) *schema.Message {
	msg := &schema.Message{Role: schema.Assistant}
	for _, id := range ids {
		msg.ToolCalls = append(msg.ToolCalls, schema.ToolCall{
			ID:       id,
			Function: schema.FunctionCall{Name: "get_location_info", Arguments: `{"query":"서면"}`},
		})
	}
	return msg
}

func TestNormalizeAssistantKeepsIDsUnique(t *testing.T) {
	t.Parallel()

	logger := zerolog.Nop()
	for _, ids := range [][]string{
		{"call_2", ""},
		{"", ""},
		{"", "call_1", "call_1"},
		{"call_2", "call_3", "", ""},
	} {
		out := normalizeAssistant(callsWithIDs(ids...), &logger)
		seen := map[string]bool{}
		for _, call := range out.ToolCalls {
			if call.ID == "" || seen[call.ID] {
				t.Fatalf("ids %q normalized to non-unique %#v", ids, out.ToolCalls)
			}
			seen[call.ID] = true
		}
		if len(out.ToolCalls) != len(ids) {
			t.Fatalf("expected %d calls, got %d", len(ids), len(out.ToolCalls))
		}
	}
}

func TestNormalizeAssistantCollidingProviderID(t *testing.T) {
	t.Parallel()

	logger := zerolog.Nop()
	out := normalizeAssistant(callsWithIDs("call_2", ""), &logger)
	if out.ToolCalls[0].ID != "call_2" || out.ToolCalls[1].ID != "call_3" {
		t.Fatalf("unexpected ids: %q, %q", out.ToolCalls[0].ID, out.ToolCalls[1].ID)
	}
}

func TestNormalizeAssistantLogsSchemaViolation(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	msg := &schema.Message{Role: schema.Assistant, ToolCalls: []schema.ToolCall{
		{ID: "c1", Function: schema.FunctionCall{Name: "save_complaint_to_db", Arguments: `{"summary":`}},
	}}

	out := normalizeAssistant(msg, &logger)
	if len(out.ToolCalls[0].Args) != 0 {
		t.Fatalf("malformed arguments must become an empty map, got %#v", out.ToolCalls[0].Args)
	}
	if !strings.Contains(buf.String(), contractx.ErrSchemaViolation.Error()) {
		t.Fatalf("expected schema violation in log, got %s", buf.String())
	}
}

func TestRespondWrapsProviderError(t *testing.T) {
	t.Parallel()

	gw, _ := NewGateway(&fakeToolCallingModel{err: errors.New("503 upstream")}, 0)
	_, err := gw.Respond(context.Background(), transcript("hi"), nil)
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
	if errors.Is(err, contractx.ErrUnsupportedAttachment) {
		t.Fatal("generic failure must not be classified as attachment error")
	}
}

func TestRespondClassifiesImageRejection(t *testing.T) {
	t.Parallel()

	gw, _ := NewGateway(&fakeToolCallingModel{err: errors.New("400 Bad Request: invalid_image_format")}, 0)
	_, err := gw.Respond(context.Background(), transcript("사진"), nil)
	if !errors.Is(err, contractx.ErrUnsupportedAttachment) {
		t.Fatalf("expected ErrUnsupportedAttachment, got %v", err)
	}
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke too, got %v", err)
	}
}

func TestRespondTimeout(t *testing.T) {
	t.Parallel()

	gw, _ := NewGateway(&fakeToolCallingModel{block: true}, 20*time.Millisecond)
	_, err := gw.Respond(context.Background(), transcript("hi"), nil)
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke on timeout, got %v", err)
	}
}

func TestRespondRejectsEmptyTranscript(t *testing.T) {
	t.Parallel()

	gw, _ := NewGateway(&fakeToolCallingModel{}, 0)
	if _, err := gw.Respond(context.Background(), nil, nil); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRespondStripsJSONFence(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{{Content: "```\n접수했습니더\n```"}}}
	gw, _ := NewGateway(fake, 0)
	out, err := gw.Respond(context.Background(), transcript("hi"), nil)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if out.Content != "접수했습니더" {
		t.Fatalf("unexpected content: %q", out.Content)
	}
}

func TestToMessagesMapsRolesAndParts(t *testing.T) {
	t.Parallel()

	msgs, err := toMessages([]contractx.Turn{
		{Role: contractx.RoleSystem, Content: "sys"},
		{Role: contractx.RoleUser, Content: "사진 봐주세요", Parts: []contractx.ContentPart{
			{Type: contractx.PartText, Text: "사진 봐주세요"},
			{Type: contractx.PartImageURL, ImageURL: "data:image/png;base64,AAAA"},
		}},
		{Role: contractx.RoleAssistant, ToolCalls: []contractx.ToolInvocationRequest{
			{ID: "call_1", Name: "get_location_info", Args: map[string]any{"query": "서면"}},
		}},
		{Role: contractx.RoleTool, Content: `{"status":"success"}`, ToolCallID: "call_1", ToolName: "get_location_info"},
	})
	if err != nil {
		t.Fatalf("toMessages() error = %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if len(msgs[1].MultiContent) != 2 || msgs[1].MultiContent[1].ImageURL == nil {
		t.Fatalf("unexpected user parts: %#v", msgs[1].MultiContent)
	}
	if msgs[1].MultiContent[1].ImageURL.URL != "data:image/png;base64,AAAA" {
		t.Fatalf("unexpected image url: %s", msgs[1].MultiContent[1].ImageURL.URL)
	}
	if len(msgs[2].ToolCalls) != 1 || msgs[2].ToolCalls[0].Function.Arguments != `{"query":"서면"}` {
		t.Fatalf("unexpected assistant tool calls: %#v", msgs[2].ToolCalls)
	}
	if msgs[3].Role != schema.Tool || msgs[3].ToolCallID != "call_1" {
		t.Fatalf("unexpected tool message: %#v", msgs[3])
	}
}

func TestToMessagesRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	_, err := toMessages([]contractx.Turn{{Role: "narrator", Content: "x"}})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestOfflineGatewayNeverRequestsTools(t *testing.T) {
	t.Parallel()

	gw, err := NewGatewayFromConfig(context.Background(), Config{Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewGatewayFromConfig() error = %v", err)
	}
	out, err := gw.Respond(context.Background(), transcript("도로에 큰 구멍이 있어요"), []*schema.ToolInfo{{Name: "save_complaint_to_db"}})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if out.HasToolCalls() {
		t.Fatal("offline model must never request tools")
	}
	if out.Content != OfflineContent {
		t.Fatalf("unexpected offline content: %q", out.Content)
	}
}

func TestConfigInsightOverrides(t *testing.T) {
	t.Parallel()

	cfg := Config{APIKey: "k", Model: "base", Temperature: 0.5, InsightModel: "brief", InsightTemperature: 0.2}
	got := cfg.InsightOpenRouter()
	if got.Model != "brief" || got.Temperature != 0.2 {
		t.Fatalf("unexpected insight config: %#v", got)
	}
	if cfg.Offline() {
		t.Fatal("config with api key must not be offline")
	}
}
