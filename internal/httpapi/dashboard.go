package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/complaint"
)

const (
	descriptionRunes = 50
	mapItemLimit     = 500
	highRiskLimit    = 50
)

type highRiskItem struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	TimeText        string    `json:"time_text"`
	Location        string    `json:"location"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	SafetyRiskScore int       `json:"safety_risk_score"`
	CreatedAt       time.Time `json:"created_at"`
}

type mapItem struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Lat       float64        `json:"lat"`
	Lng       float64        `json:"lng"`
	Size      string         `json:"size"`
	ClassName string         `json:"class_name"`
	Style     map[string]any `json:"style"`
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := complaint.Summarize(c.Request.Context(), h.complaints)
	if err != nil {
		log.Ctx(c.Request.Context()).Error().Err(err).Msg("summarize complaints failed")
		fail(c, http.StatusInternalServerError, "failed to load stats")
		return
	}
	c.JSON(http.StatusOK, statsPayload(stats))
}

func statsPayload(stats complaint.Stats) gin.H {
	categories := make(map[string]int64, len(stats.ByCategory))
	for _, cc := range stats.ByCategory {
		categories[cc.Category] = cc.Count
	}
	return gin.H{
		"active_complaints": stats.Total,
		"resolved_today":    0,
		"categories":        categories,
	}
}

func (h *Handler) HighRisk(c *gin.Context) {
	recs, err := h.complaints.HighRisk(c.Request.Context(), complaint.HighRiskThreshold, highRiskLimit)
	if err != nil {
		log.Ctx(c.Request.Context()).Error().Err(err).Msg("load high risk complaints failed")
		fail(c, http.StatusInternalServerError, "failed to load complaints")
		return
	}

	now := h.now()
	items := make([]highRiskItem, 0, len(recs))
	for _, rec := range recs {
		title := rec.Summary
		if title == "" {
			title = "긴급 민원"
		}
		icon := "water_drop"
		if rec.SafetyRiskScore >= 9 {
			icon = "warning"
		}
		items = append(items, highRiskItem{
			ID:              rec.ID,
			Title:           title,
			TimeText:        relativeTime(now, rec.CreatedAt),
			Location:        rec.Location,
			Description:     truncateDescription(rec.OriginalText),
			Category:        icon,
			SafetyRiskScore: rec.SafetyRiskScore,
			CreatedAt:       rec.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) MapItems(c *gin.Context) {
	recs, err := h.complaints.List(c.Request.Context(), mapItemLimit)
	if err != nil {
		log.Ctx(c.Request.Context()).Error().Err(err).Msg("load map items failed")
		fail(c, http.StatusInternalServerError, "failed to load complaints")
		return
	}

	items := make([]mapItem, 0, len(recs))
	for _, rec := range recs {
		if rec.Lat == 0 || rec.Lng == 0 {
			continue
		}
		text := rec.Category
		if text == "" {
			text = "민원"
		}
		item := mapItem{
			ID:        rec.ID,
			Text:      text,
			Lat:       rec.Lat,
			Lng:       rec.Lng,
			Size:      "2rem",
			ClassName: "text-blue-600 font-bold",
			Style:     map[string]any{"zIndex": 1000},
		}
		if rec.IsHighRisk() {
			item.Size = "3rem"
			item.ClassName = "text-red-600 font-black animate-pulse"
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) Insight(c *gin.Context) {
	ctx := c.Request.Context()
	stats, err := complaint.Summarize(ctx, h.complaints)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("summarize complaints failed")
		fail(c, http.StatusInternalServerError, "failed to load stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": h.insights.Briefing(ctx, stats)})
}

func (h *Handler) AnalyzeComplaint(c *gin.Context) {
	ctx := c.Request.Context()
	rec, err := h.complaints.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, complaint.ErrNotFound) {
			fail(c, http.StatusNotFound, "Complaint not found")
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("load complaint failed")
		fail(c, http.StatusInternalServerError, "failed to load complaint")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"complaint": gin.H{
			"id":                rec.ID,
			"summary":           rec.Summary,
			"original_text":     rec.OriginalText,
			"category":          rec.Category,
			"location":          rec.Location,
			"urgency_score":     rec.UrgencyScore,
			"safety_risk_score": rec.SafetyRiskScore,
		},
		"analysis_report": h.insights.Report(ctx, *rec),
	})
}

func truncateDescription(s string) string {
	if s == "" {
		return ""
	}
	if utf8.RuneCountInString(s) <= descriptionRunes {
		return s
	}
	return string([]rune(s)[:descriptionRunes]) + "..."
}

func relativeTime(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "방금 전"
	case d < time.Hour:
		return fmt.Sprintf("%d분 전", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d시간 전", int(d.Hours()))
	default:
		return fmt.Sprintf("%d일 전", int(d.Hours()/24))
	}
}
