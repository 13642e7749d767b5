package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/agents/conversation"
	"github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/complaint"
	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
)

type Config struct {
	Addr            string        `default:":8000"`
	ProfilePath     string        `split_words:"true"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
	ReleaseMode     bool          `split_words:"true" default:"false"`
}

type ChatService interface {
	Chat(ctx context.Context, sessionID, message, imageData string, env contractx.ToolEnv) (conversation.Result, error)
	History(ctx context.Context, sessionID string) ([]contractx.Turn, error)
	Reset(ctx context.Context, sessionID string) error
}

type Insights interface {
	Briefing(ctx context.Context, stats complaint.Stats) string
	Report(ctx context.Context, rec complaint.Record) string
}

// SignatureVerifier authenticates inbound event deliveries.
type SignatureVerifier interface {
	Verify(signature string, body []byte) error
}

type Deps struct {
	Chat       ChatService
	Complaints complaint.Repository
	Insights   Insights
	// Events enables the delivery endpoint when set.
	Events SignatureVerifier

	Now func() time.Time
}

type Handler struct {
	chat       ChatService
	complaints complaint.Repository
	insights   Insights
	events     SignatureVerifier
	now        func() time.Time
}

func NewRouter(deps Deps) *gin.Engine {
	h := &Handler{
		chat:       deps.Chat,
		complaints: deps.Complaints,
		insights:   deps.Insights,
		events:     deps.Events,
		now:        deps.Now,
	}
	if h.now == nil {
		h.now = time.Now
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(RequestID(), RequestLogger(), Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", RequestIDHeader},
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		fail(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.GET("/", h.Health)

	api := r.Group("/api")
	api.POST("/chat", h.Chat)
	api.GET("/chat/sessions/:id", h.GetSession)
	api.DELETE("/chat/sessions/:id", h.DeleteSession)

	api.GET("/dashboard/stats", h.Stats)
	api.GET("/dashboard/high-risk", h.HighRisk)
	api.GET("/dashboard/insight", h.Insight)
	api.GET("/map/items", h.MapItems)
	api.GET("/complaint/:id/analyze", h.AnalyzeComplaint)

	if h.events != nil {
		api.POST("/events/complaint", h.ComplaintEvent)
	}
	return r
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "Busan AI Platform Backend Running"})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}
