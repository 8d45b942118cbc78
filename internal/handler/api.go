package handler

import (
	_ "embed"
	"errors"
	"net/http"

	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/conversation"
	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/highlight"
	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/models"
	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

//go:embed web/index.html
var reviewPage []byte

// Handler handles HTTP requests
type Handler struct {
	ctrl      *session.Controller
	logger    *zap.Logger
	theme     string
	sessionID string
}

// NewHandler creates a new API handler
func NewHandler(ctrl *session.Controller, theme, sessionID string, logger *zap.Logger) *Handler {
	return &Handler{
		ctrl:      ctrl,
		logger:    logger,
		theme:     theme,
		sessionID: sessionID,
	}
}

// RegisterRoutes registers all routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.ReviewPage)

	api := r.Group("/api/v1")
	{
		api.GET("/session", h.GetSession)
		api.POST("/session/save", h.SaveAnnotation)
		api.POST("/session/next", h.Next)
		api.POST("/session/previous", h.Previous)
		api.POST("/session/generate", h.Generate)
		api.POST("/session/highlight", h.Highlight)
	}

	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// ReviewPage serves the embedded single-page review form
func (h *Handler) ReviewPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", reviewPage)
}

// sessionPayload decorates a record view with presentation extras.
func (h *Handler) sessionPayload(view models.RecordView) gin.H {
	payload := gin.H{
		"record":    view,
		"annotator": h.ctrl.Annotator(),
		"theme":     h.theme,
	}
	if parsed, err := conversation.Parse(view.Reference); err == nil {
		payload["turn_options"] = conversation.TurnOptions(parsed)
	}
	return payload
}

// GetSession returns the current record view
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessionPayload(h.ctrl.Current()))
}

// SaveAnnotation persists the edited text for the current record
func (h *Handler) SaveAnnotation(c *gin.Context) {
	var req models.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.ctrl.Completed() {
		c.JSON(http.StatusConflict, gin.H{"error": "session already completed"})
		return
	}

	result, err := h.ctrl.Save(req.Annotated)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNothingToSave):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, session.ErrPersistence):
			// The edit stays in memory; the client can retry the save.
			h.logger.Error("Failed to save annotation", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to save annotation", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		}
		return
	}

	payload := h.sessionPayload(result.Record)
	payload["flag"] = result.Flag
	payload["status"] = result.Status
	payload["completed"] = result.Completed
	c.JSON(http.StatusOK, payload)
}

// Next advances the cursor; unsaved edits on the client are discarded
func (h *Handler) Next(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessionPayload(h.ctrl.Advance()))
}

// Previous moves the cursor back
func (h *Handler) Previous(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessionPayload(h.ctrl.Retreat()))
}

// Generate requests a fresh candidate for the current record
func (h *Handler) Generate(c *gin.Context) {
	candidate, err := h.ctrl.Generate(c.Request.Context())
	if err != nil {
		if errors.Is(err, session.ErrGenerationNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Generation failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "generation failed"})
		return
	}

	payload := gin.H{"candidate": candidate}
	if parsed, err := conversation.Parse(candidate); err == nil {
		payload["turn_options"] = conversation.TurnOptions(parsed)
	}
	c.JSON(http.StatusOK, payload)
}

// Highlight locates a conversation turn inside the current record's context
func (h *Handler) Highlight(c *gin.Context) {
	var req models.HighlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The freshly generated candidate wins when asked for and present.
	source := h.ctrl.Reference()
	if req.Source == "candidate" && h.ctrl.Candidate() != "" {
		source = h.ctrl.Candidate()
	}

	theme := req.Theme
	if theme == "" {
		theme = h.theme
	}

	parsed, err := conversation.Parse(source)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	marked, turnText := highlight.Highlight(h.ctrl.Context(), parsed, req.Turn, theme)
	c.JSON(http.StatusOK, gin.H{
		"highlighted": marked,
		"turn_text":   turnText,
	})
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"service":    "dialog-fa-ui",
		"session_id": h.sessionID,
		"annotator":  h.ctrl.Annotator(),
		"annotated":  h.ctrl.CountAnnotated(),
	})
}
