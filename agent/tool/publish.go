package tool

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/complaint"
)

const (
	EventComplaintRegistered = "complaint.registered"
	publishTimeout           = 5 * time.Second
)

// Publisher delivers an encoded event to a downstream channel (queue, webhook).
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

type ComplaintEvent struct {
	Event              string    `json:"event"`
	ComplaintID        string    `json:"complaint_id"`
	Category           string    `json:"category"`
	Location           string    `json:"location"`
	DepartmentInCharge string    `json:"department_in_charge"`
	SafetyRiskScore    int       `json:"safety_risk_score"`
	HighRisk           bool      `json:"high_risk"`
	CreatedAt          time.Time `json:"created_at"`
}

func newComplaintEvent(rec *complaint.Record) ComplaintEvent {
	return ComplaintEvent{
		Event:              EventComplaintRegistered,
		ComplaintID:        rec.ID,
		Category:           rec.Category,
		Location:           rec.Location,
		DepartmentInCharge: rec.DepartmentInCharge,
		SafetyRiskScore:    rec.SafetyRiskScore,
		HighRisk:           rec.IsHighRisk(),
		CreatedAt:          rec.CreatedAt,
	}
}

// announce runs after the insert committed, so failures are only logged.
func (r *Registry) announce(ctx context.Context, rec *complaint.Record) {
	if len(r.deps.Publishers) == 0 {
		return
	}
	body, err := json.Marshal(newComplaintEvent(rec))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("complaint_id", rec.ID).Msg("encode complaint event")
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	for _, p := range r.deps.Publishers {
		if p == nil {
			continue
		}
		if err := p.Publish(pctx, body); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("complaint_id", rec.ID).Msg("publish complaint event")
		}
	}
}
