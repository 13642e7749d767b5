package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/complaint"
	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
	promptx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/prompt"
)

type fakeSink struct {
	mu      sync.Mutex
	err     error
	records []*complaint.Record
}

func (f *fakeSink) Insert(ctx context.Context, rec *complaint.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *rec
	f.records = append(f.records, &cp)
	return nil
}

type fakePublisher struct {
	err    error
	bodies [][]byte
}

func (f *fakePublisher) Publish(ctx context.Context, body []byte) error {
	f.bodies = append(f.bodies, body)
	return f.err
}

type fakeGeocoder struct {
	place Place
	err   error
	calls int
}

func (f *fakeGeocoder) Geocode(ctx context.Context, query string) (Place, error) {
	f.calls++
	return f.place, f.err
}

func mustProfile(t *testing.T) *promptx.Profile {
	t.Helper()
	p, err := promptx.LoadProfile()
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	return p
}

func newTestRegistry(t *testing.T, deps Deps) *Registry {
	t.Helper()
	reg, err := New(mustProfile(t), deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return reg
}

func decodePayload(t *testing.T, content string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		t.Fatalf("tool content is not JSON: %v (%s)", err, content)
	}
	return out
}

func TestRegistrySchemasFollowProfile(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, Deps{})
	schemas := reg.Schemas()
	if len(schemas) != 3 {
		t.Fatalf("expected 3 tool schemas, got %d", len(schemas))
	}
	want := []string{ToolLocationInfo, ToolSearchManual, ToolSaveComplaint}
	for i, name := range want {
		if schemas[i].Name != name {
			t.Fatalf("schema[%d] = %s, want %s", i, schemas[i].Name, name)
		}
		if schemas[i].ParamsOneOf == nil {
			t.Fatalf("schema %s has no parameters", name)
		}
	}
}

func TestNewRejectsToolWithoutHandler(t *testing.T) {
	t.Parallel()

	profile := &promptx.Profile{
		SystemPrompt: "x",
		Tools:        []promptx.ToolSpec{{Name: "launch_rocket"}},
	}
	if _, err := New(profile, Deps{}); err == nil {
		t.Fatal("expected error for tool without handler")
	}
}

func TestInvokeUnknownToolReturnsSentinel(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, Deps{})
	out := reg.Invoke(context.Background(), "delete_everything", map[string]any{"x": 1}, contractx.ToolEnv{})

	payload := decodePayload(t, out.Content)
	if payload["status"] != "error" {
		t.Fatalf("unexpected status: %v", payload["status"])
	}
	if payload["error"] != "unknown tool: delete_everything" {
		t.Fatalf("unexpected error: %v", payload["error"])
	}
	if out.ComplaintID != "" {
		t.Fatalf("unexpected complaint id: %s", out.ComplaintID)
	}
}

func TestSaveWithoutStorageReturnsFailurePayload(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, Deps{})
	out := reg.Invoke(context.Background(), ToolSaveComplaint, map[string]any{
		"summary":  "도로 파손",
		"location": "서면",
	}, contractx.ToolEnv{})

	payload := decodePayload(t, out.Content)
	if payload["status"] != "error" {
		t.Fatalf("expected error payload, got %v", payload)
	}
	if out.ComplaintID != "" {
		t.Fatal("complaint must not be reported as saved")
	}
}

func TestSaveUsesStorageHandedPerRequest(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, Deps{})
	first, second := &fakeSink{}, &fakeSink{}
	args := map[string]any{"summary": "가로등 고장", "location": "연제구"}

	reg.Invoke(context.Background(), ToolSaveComplaint, args, contractx.ToolEnv{Complaints: first})
	missing := reg.Invoke(context.Background(), ToolSaveComplaint, args, contractx.ToolEnv{})
	reg.Invoke(context.Background(), ToolSaveComplaint, args, contractx.ToolEnv{Complaints: second})

	if len(first.records) != 1 || len(second.records) != 1 {
		t.Fatalf("records = %d/%d, want 1/1", len(first.records), len(second.records))
	}
	payload := decodePayload(t, missing.Content)
	if payload["error"] != "complaint storage is not available" || missing.ComplaintID != "" {
		t.Fatalf("unexpected outcome without storage: %s", missing.Content)
	}
}

func TestSaveAppliesDefaultsForOptionalFields(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	reg := newTestRegistry(t, Deps{Now: func() time.Time { return now }})

	out := reg.Invoke(context.Background(), ToolSaveComplaint, map[string]any{
		"summary":       "도로에 큰 구멍",
		"original_text": "도로에 큰 구멍이 있어요",
		"location":      "부산진구 서면로",
		"category":      "도로/교통",
	}, contractx.ToolEnv{Complaints: sink})

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(sink.records))
	}
	rec := sink.records[0]
	if out.ComplaintID == "" || out.ComplaintID != rec.ID {
		t.Fatalf("ComplaintID = %q, record id = %q", out.ComplaintID, rec.ID)
	}

	for name, score := range map[string]int{
		"urgency":       rec.UrgencyScore,
		"safety":        rec.SafetyRiskScore,
		"inconvenience": rec.InconvenienceScore,
		"visual":        rec.VisualImpactScore,
		"sentiment":     rec.SentimentScore,
	} {
		if score != DefaultScore {
			t.Fatalf("%s score = %d, want %d", name, score, DefaultScore)
		}
	}
	if !InServiceArea(rec.Lat, rec.Lng) {
		t.Fatalf("coordinates outside service area: %f,%f", rec.Lat, rec.Lng)
	}
	if rec.EstimatedCost != DefaultEstimatedCost || rec.LegalRisk != DefaultLegalRisk {
		t.Fatalf("unexpected cost/risk: %s/%s", rec.EstimatedCost, rec.LegalRisk)
	}
	if rec.DepartmentInCharge != "도로관리과" {
		t.Fatalf("unexpected department: %s", rec.DepartmentInCharge)
	}
	if rec.Status != complaint.StatusReceived {
		t.Fatalf("unexpected status: %s", rec.Status)
	}
	if !rec.CreatedAt.Equal(now) {
		t.Fatalf("unexpected created_at: %v", rec.CreatedAt)
	}

	payload := decodePayload(t, out.Content)
	if payload["status"] != "success" || payload["message"] != SaveSuccessMessage {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if payload["complaint_id"] != rec.ID {
		t.Fatalf("payload id = %v, want %s", payload["complaint_id"], rec.ID)
	}
}

func TestSaveGeneratesDistinctIDs(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	reg := newTestRegistry(t, Deps{})
	args := map[string]any{"summary": "소음", "location": "해운대", "category": "소음"}

	first := reg.Invoke(context.Background(), ToolSaveComplaint, args, contractx.ToolEnv{Complaints: sink})
	second := reg.Invoke(context.Background(), ToolSaveComplaint, args, contractx.ToolEnv{Complaints: sink})

	if first.ComplaintID == "" || second.ComplaintID == "" {
		t.Fatal("expected both saves to succeed")
	}
	if first.ComplaintID == second.ComplaintID {
		t.Fatalf("ids must differ, got %s twice", first.ComplaintID)
	}
}

func TestSaveKeepsInAreaCoordinatesAndReplacesOthers(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	reg := newTestRegistry(t, Deps{
		Rand: func() float64 { return 0.5 },
	})

	reg.Invoke(context.Background(), ToolSaveComplaint, map[string]any{
		"summary": "a", "location": "b", "lat": 35.1796, "lng": 129.0756,
	}, contractx.ToolEnv{Complaints: sink})
	reg.Invoke(context.Background(), ToolSaveComplaint, map[string]any{
		"summary": "a", "location": "b", "lat": 37.56, "lng": 126.97,
	}, contractx.ToolEnv{Complaints: sink})

	if got := sink.records[0]; got.Lat != 35.1796 || got.Lng != 129.0756 {
		t.Fatalf("in-area coordinates changed: %f,%f", got.Lat, got.Lng)
	}
	got := sink.records[1]
	wantLat := MinLat + 0.5*(MaxLat-MinLat)
	wantLng := MinLng + 0.5*(MaxLng-MinLng)
	if got.Lat != wantLat || got.Lng != wantLng {
		t.Fatalf("placeholder = %f,%f want %f,%f", got.Lat, got.Lng, wantLat, wantLng)
	}
}

func TestSaveClampsScoresAndMapsLegacyFields(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	reg := newTestRegistry(t, Deps{})

	reg.Invoke(context.Background(), ToolSaveComplaint, map[string]any{
		"summary_standard":          "낙석 위험",
		"complaint_type":            "안전",
		"location":                  "황령산",
		"severity_level":            float64(4),
		"is_urgent":                 true,
		"inconvenience_score":       float64(42),
		"sentiment_score":           "-3",
		"probability_of_escalation": float64(130),
		"estimated_cost":            "HIGH",
		"legal_risk":                "unknown",
	}, contractx.ToolEnv{Complaints: sink})

	rec := sink.records[0]
	if rec.Category != "안전" || rec.DepartmentInCharge != "안전총괄과" {
		t.Fatalf("unexpected category/department: %s/%s", rec.Category, rec.DepartmentInCharge)
	}
	if rec.SafetyRiskScore != 8 {
		t.Fatalf("safety = %d, want 8 from legacy severity", rec.SafetyRiskScore)
	}
	if rec.UrgencyScore != 8 {
		t.Fatalf("urgency = %d, want 8", rec.UrgencyScore)
	}
	if rec.InconvenienceScore != 10 || rec.SentimentScore != 1 {
		t.Fatalf("scores not clamped: %d/%d", rec.InconvenienceScore, rec.SentimentScore)
	}
	if rec.ProbabilityOfEscalation != 100 {
		t.Fatalf("escalation = %f, want 100", rec.ProbabilityOfEscalation)
	}
	if rec.EstimatedCost != "High" || rec.LegalRisk != DefaultLegalRisk {
		t.Fatalf("unexpected levels: %s/%s", rec.EstimatedCost, rec.LegalRisk)
	}
	if rec.OriginalText != "낙석 위험" {
		t.Fatalf("original text should fall back to summary, got %q", rec.OriginalText)
	}
}

func TestSaveClampsOutOfRangeNumbers(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	reg := newTestRegistry(t, Deps{})
	reg.Invoke(context.Background(), ToolSaveComplaint, map[string]any{
		"summary":           "맨홀 뚜껑 이탈",
		"location":          "사하구",
		"safety_risk_score": 1e300,
		"urgency_score":     -1e300,
	}, contractx.ToolEnv{Complaints: sink})
	reg.Invoke(context.Background(), ToolSaveComplaint, map[string]any{
		"summary":        "맨홀 뚜껑 이탈",
		"location":       "사하구",
		"severity_level": "1e20",
	}, contractx.ToolEnv{Complaints: sink})

	rec := sink.records[0]
	if rec.SafetyRiskScore != 10 || rec.UrgencyScore != 1 {
		t.Fatalf("safety/urgency = %d/%d, want 10/1", rec.SafetyRiskScore, rec.UrgencyScore)
	}
	if legacy := sink.records[1]; legacy.UrgencyScore != 10 || legacy.SafetyRiskScore != 10 {
		t.Fatalf("legacy severity should clamp to 10, got %d/%d", legacy.UrgencyScore, legacy.SafetyRiskScore)
	}
}

func TestSaveRejectsMissingText(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	reg := newTestRegistry(t, Deps{})
	out := reg.Invoke(context.Background(), ToolSaveComplaint, map[string]any{"location": "서면"}, contractx.ToolEnv{Complaints: sink})

	if decodePayload(t, out.Content)["status"] != "error" {
		t.Fatalf("expected error payload, got %s", out.Content)
	}
	if len(sink.records) != 0 {
		t.Fatal("nothing should be stored")
	}
}

func TestSaveRedactsPersonalIdentifiers(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	reg := newTestRegistry(t, Deps{})
	reg.Invoke(context.Background(), ToolSaveComplaint, map[string]any{
		"summary":       "연락처 010-1234-5678",
		"original_text": "제 메일은 kim@example.com 이고 주민번호 900101-1234567 입니다",
		"location":      "동래구",
	}, contractx.ToolEnv{Complaints: sink})

	rec := sink.records[0]
	for _, leaked := range []string{"010-1234-5678", "kim@example.com", "900101-1234567"} {
		if strings.Contains(rec.Summary+rec.OriginalText, leaked) {
			t.Fatalf("identifier %q was stored", leaked)
		}
	}
	if !strings.Contains(rec.Summary, "[전화번호]") {
		t.Fatalf("unexpected summary: %s", rec.Summary)
	}
}

func TestSaveInsertFailureReturnsErrorPayload(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, Deps{})
	env := contractx.ToolEnv{Complaints: &fakeSink{err: errors.New("disk full")}}
	out := reg.Invoke(context.Background(), ToolSaveComplaint, map[string]any{"summary": "a", "location": "b"}, env)

	payload := decodePayload(t, out.Content)
	if payload["status"] != "error" {
		t.Fatalf("expected error payload, got %v", payload)
	}
	if strings.Contains(out.Content, "disk full") {
		t.Fatal("storage error text must not leak into the tool payload")
	}
	if out.ComplaintID != "" {
		t.Fatal("failed insert must not report a complaint id")
	}
}

func TestSavePublishesEventBestEffort(t *testing.T) {
	t.Parallel()

	ok := &fakePublisher{}
	broken := &fakePublisher{err: errors.New("queue down")}
	sink := &fakeSink{}
	reg := newTestRegistry(t, Deps{
		Publishers: []Publisher{broken, ok},
	})

	out := reg.Invoke(context.Background(), ToolSaveComplaint, map[string]any{
		"summary": "싱크홀", "location": "사상구", "category": "안전", "safety_risk_score": float64(9),
	}, contractx.ToolEnv{Complaints: sink})
	if out.ComplaintID == "" {
		t.Fatal("publisher failure must not fail the save")
	}
	if len(ok.bodies) != 1 || len(broken.bodies) != 1 {
		t.Fatalf("expected both publishers to be called, got %d/%d", len(ok.bodies), len(broken.bodies))
	}

	var event ComplaintEvent
	if err := json.Unmarshal(ok.bodies[0], &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.Event != EventComplaintRegistered || event.ComplaintID != out.ComplaintID || !event.HighRisk {
		t.Fatalf("unexpected event: %#v", event)
	}
}

func TestLookupLocationOffline(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, Deps{})
	out := reg.Invoke(context.Background(), ToolLocationInfo, map[string]any{"query": "서면역"}, contractx.ToolEnv{})

	payload := decodePayload(t, out.Content)
	if payload["address"] != "부산광역시 행정동 정보 (서면역)" {
		t.Fatalf("unexpected address: %v", payload["address"])
	}
	if payload["source"] != "offline" {
		t.Fatalf("unexpected source: %v", payload["source"])
	}
}

func TestLookupLocationUsesGeocoderInsideArea(t *testing.T) {
	t.Parallel()

	geo := &fakeGeocoder{place: Place{Address: "서면역, 부산진구", Lat: 35.1577, Lng: 129.0593}}
	reg := newTestRegistry(t, Deps{Geocoder: geo})
	out := reg.Invoke(context.Background(), ToolLocationInfo, map[string]any{"query": "서면역"}, contractx.ToolEnv{})

	payload := decodePayload(t, out.Content)
	if payload["source"] != "geocoder" || payload["address"] != "서면역, 부산진구" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestLookupLocationFallsBackWhenGeocoderMisses(t *testing.T) {
	t.Parallel()

	for _, geo := range []*fakeGeocoder{
		{err: ErrPlaceNotFound},
		{place: Place{Address: "서울역", Lat: 37.55, Lng: 126.97}},
	} {
		reg := newTestRegistry(t, Deps{Geocoder: geo})
		out := reg.Invoke(context.Background(), ToolLocationInfo, map[string]any{"query": "역 앞"}, contractx.ToolEnv{})
		if decodePayload(t, out.Content)["source"] != "offline" {
			t.Fatalf("expected offline fallback, got %s", out.Content)
		}
		if geo.calls != 1 {
			t.Fatalf("geocoder calls = %d, want 1", geo.calls)
		}
	}
}

func TestLookupLocationRequiresQuery(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, Deps{})
	out := reg.Invoke(context.Background(), ToolLocationInfo, nil, contractx.ToolEnv{})
	if decodePayload(t, out.Content)["status"] != "error" {
		t.Fatalf("expected error payload, got %s", out.Content)
	}
}

func TestSearchManualRanksMatches(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, Deps{})
	out := reg.Invoke(context.Background(), ToolSearchManual, map[string]any{"keywords": "포트홀 구멍 처리 기한"}, contractx.ToolEnv{})

	var payload struct {
		Status  string      `json:"status"`
		Results []manualHit `json:"results"`
	}
	if err := json.Unmarshal([]byte(out.Content), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != "success" || len(payload.Results) == 0 {
		t.Fatalf("unexpected payload: %s", out.Content)
	}
	if payload.Results[0].Title != "도로 파손 (포트홀)" {
		t.Fatalf("unexpected top hit: %s", payload.Results[0].Title)
	}
}

func TestSearchManualFallsBackToGeneralGuidance(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, Deps{})
	out := reg.Invoke(context.Background(), ToolSearchManual, map[string]any{"keywords": "zzz"}, contractx.ToolEnv{})
	if !strings.Contains(out.Content, "일반 민원 안내") {
		t.Fatalf("expected general guidance, got %s", out.Content)
	}
}
