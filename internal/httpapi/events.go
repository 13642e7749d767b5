package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	toolx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/tool"
	qstashx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/pkg/qstash"
)

const maxEventBytes = 64 << 10

// ComplaintEvent receives complaint notifications delivered by the queue
// service and raises an alert for high-risk ones.
func (h *Handler) ComplaintEvent(c *gin.Context) {
	ctx := c.Request.Context()
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBytes))
	if err != nil {
		fail(c, http.StatusBadRequest, "failed to read body")
		return
	}
	if err := h.events.Verify(c.GetHeader(qstashx.SignatureHeader), body); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("rejected event delivery")
		fail(c, http.StatusUnauthorized, "invalid signature")
		return
	}

	var evt toolx.ComplaintEvent
	if err := json.Unmarshal(body, &evt); err != nil || evt.ComplaintID == "" {
		fail(c, http.StatusBadRequest, "invalid event")
		return
	}

	logger := log.Ctx(ctx).With().
		Str("complaint_id", evt.ComplaintID).
		Str("department", evt.DepartmentInCharge).
		Int("safety_risk_score", evt.SafetyRiskScore).
		Logger()
	if evt.HighRisk {
		logger.Warn().Str("location", evt.Location).Msg("high risk complaint registered")
	} else {
		logger.Info().Msg("complaint event received")
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
