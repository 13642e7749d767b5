package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/agents/conversation"
	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
)

const (
	ActionComplaintRegistered = "Complaint Registered"
	ActionGeneralChat         = "General Chat"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	ImageData string `json:"image_data"`
}

type chatResponse struct {
	Response            string   `json:"response"`
	ActionTaken         string   `json:"action_taken"`
	ComplaintRegistered bool     `json:"complaint_registered"`
	ComplaintIDs        []string `json:"complaint_ids"`
}

func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid json")
		return
	}

	ctx := c.Request.Context()
	res, err := h.chat.Chat(ctx, req.SessionID, req.Message, req.ImageData, h.toolEnv())
	if err != nil {
		if errors.Is(err, conversation.ErrInvalidMessage) {
			fail(c, http.StatusBadRequest, "message or image_data is required")
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("chat failed")
		fail(c, http.StatusInternalServerError, "failed to process message")
		return
	}

	action := ActionGeneralChat
	if res.ComplaintRegistered {
		action = ActionComplaintRegistered
	}
	ids := res.ComplaintIDs
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, chatResponse{
		Response:            res.Reply,
		ActionTaken:         action,
		ComplaintRegistered: res.ComplaintRegistered,
		ComplaintIDs:        ids,
	})
}

func (h *Handler) GetSession(c *gin.Context) {
	id := conversation.SessionIDOrDefault(c.Param("id"))
	turns, err := h.chat.History(c.Request.Context(), id)
	if err != nil {
		log.Ctx(c.Request.Context()).Error().Err(err).Str("session_id", id).Msg("load session failed")
		fail(c, http.StatusInternalServerError, "failed to load session")
		return
	}
	if turns == nil {
		turns = []contractx.Turn{}
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "turns": turns})
}

func (h *Handler) DeleteSession(c *gin.Context) {
	id := conversation.SessionIDOrDefault(c.Param("id"))
	if err := h.chat.Reset(c.Request.Context(), id); err != nil {
		log.Ctx(c.Request.Context()).Error().Err(err).Str("session_id", id).Msg("delete session failed")
		fail(c, http.StatusInternalServerError, "failed to delete session")
		return
	}
	c.Status(http.StatusNoContent)
}

// toolEnv builds the handle the save tool writes through for this request.
func (h *Handler) toolEnv() contractx.ToolEnv {
	var env contractx.ToolEnv
	if h.complaints != nil {
		env.Complaints = h.complaints
	}
	return env
}
