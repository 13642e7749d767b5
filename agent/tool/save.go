package tool

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/complaint"
	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
)

const (
	SaveSuccessMessage = "민원이 정상적으로 시스템에 등록되었습니다."

	DefaultScore             = 5
	DefaultCategory          = "기타"
	DefaultEstimatedCost     = "Medium"
	DefaultLegalRisk         = "Low"
	DefaultRequiredPersonnel = "미정"
	DefaultLocation          = "위치 미상"

	maxSummaryRunes = 120
)

var errMissingText = errors.New("summary or original_text is required")

func (r *Registry) saveComplaint(ctx context.Context, args map[string]any, env contractx.ToolEnv) contractx.ToolOutcome {
	if env.Complaints == nil {
		return failure("complaint storage is not available")
	}

	rec, err := r.normalizeComplaint(args)
	if err != nil {
		return failure(err.Error())
	}

	if err := env.Complaints.Insert(ctx, rec); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("complaint_id", rec.ID).Msg("insert complaint failed")
		return failure("failed to save complaint")
	}
	log.Ctx(ctx).Info().
		Str("complaint_id", rec.ID).
		Str("category", rec.Category).
		Int("safety_risk_score", rec.SafetyRiskScore).
		Msg("complaint registered")

	r.announce(ctx, rec)

	out := success(map[string]any{
		"complaint_id":         rec.ID,
		"department_in_charge": rec.DepartmentInCharge,
		"message":              SaveSuccessMessage,
	})
	out.ComplaintID = rec.ID
	return out
}

// normalizeComplaint is the single defaulting pass between loosely typed
// model arguments and a persistable record.
func (r *Registry) normalizeComplaint(args map[string]any) (*complaint.Record, error) {
	original := stringArg(args, "original_text", "text")
	summary := stringArg(args, "summary", "summary_standard")
	if summary == "" && original == "" {
		return nil, errMissingText
	}
	if summary == "" {
		summary = truncateRunes(original, maxSummaryRunes)
	}
	if original == "" {
		original = summary
	}

	location := stringArg(args, "location", "address")
	if location == "" {
		location = DefaultLocation
	}
	category := stringArg(args, "category", "complaint_type")
	if category == "" {
		category = DefaultCategory
	}

	// Older schema revisions sent a single 1-5 severity level.
	legacy, hasLegacy := intArg(args, "severity_level")
	scoreOr := func(key string, fromLegacy bool) int {
		if v, ok := intArg(args, key); ok {
			return clampInt(v, 1, 10)
		}
		if fromLegacy && hasLegacy {
			return clampInt(legacy*2, 1, 10)
		}
		return DefaultScore
	}

	urgency := scoreOr("urgency_score", true)
	if boolArg(args, "is_urgent") && urgency < 8 {
		urgency = 8
	}

	rec := &complaint.Record{
		ID:                 r.deps.NewID(),
		Summary:            r.deps.Redactor.Redact(summary),
		OriginalText:       r.deps.Redactor.Redact(original),
		Location:           r.deps.Redactor.Redact(location),
		Category:           category,
		UrgencyScore:       urgency,
		SafetyRiskScore:    scoreOr("safety_risk_score", true),
		InconvenienceScore: scoreOr("inconvenience_score", false),
		VisualImpactScore:  scoreOr("visual_impact_score", false),
		SentimentScore:     scoreOr("sentiment_score", false),
		EstimatedCost:      levelOr(stringArg(args, "estimated_cost"), DefaultEstimatedCost),
		RequiredPersonnel:  stringArg(args, "required_personnel"),
		LegalRisk:          levelOr(stringArg(args, "legal_risk"), DefaultLegalRisk),
		DepartmentInCharge: stringArg(args, "department_in_charge"),
		Status:             complaint.StatusReceived,
		CreatedAt:          r.deps.Now().UTC(),
	}
	if rec.RequiredPersonnel == "" {
		rec.RequiredPersonnel = DefaultRequiredPersonnel
	}
	if rec.DepartmentInCharge == "" {
		rec.DepartmentInCharge = r.profile.DepartmentFor(category)
	}
	if p, ok := floatArg(args, "probability_of_escalation"); ok {
		rec.ProbabilityOfEscalation = clampFloat(p, 0, 100)
	}

	lat, okLat := floatArg(args, "lat", "latitude")
	lng, okLng := floatArg(args, "lng", "longitude")
	if !okLat || !okLng || !InServiceArea(lat, lng) {
		lat, lng = placeholderCoordinates(r.deps.Rand)
	}
	rec.Lat, rec.Lng = lat, lng

	return rec, nil
}

func levelOr(v, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "low":
		return "Low"
	case "medium", "mid":
		return "Medium"
	case "high":
		return "High"
	default:
		return fallback
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
