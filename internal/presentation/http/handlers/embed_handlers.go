package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/application/services"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/analytics"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/banner"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/consent-banner-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/consent-banner-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// GenerateRequest is the body of POST /api/v1/embed/generate.
type GenerateRequest struct {
	WidgetID string               `json:"widgetId"`
	Config   banner.Customization `json:"config"`
}

// EmbedHandlers serves the public endpoints used by the loader and the live runtime
type EmbedHandlers struct {
	widgetService    *services.WidgetService
	embedService     *services.EmbedService
	analyticsService *services.AnalyticsService
	logger           *logging.ChanneledLogger
	perfTracker      *performance.Tracker
}

// NewEmbedHandlers creates embed handlers with injected dependencies
func NewEmbedHandlers(widgetService *services.WidgetService, embedService *services.EmbedService,
	analyticsService *services.AnalyticsService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *EmbedHandlers {
	return &EmbedHandlers{
		widgetService:    widgetService,
		embedService:     embedService,
		analyticsService: analyticsService,
		logger:           logger,
		perfTracker:      perfTracker,
	}
}

// GetEmbedConfig returns the public projection of a widget for the runtime
func (h *EmbedHandlers) GetEmbedConfig(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("get_embed_config_request", tenantCtx.TenantID)
	defer marker.Complete()

	widgetID := c.Param("id")
	embed, err := h.widgetService.Embed(c.Request.Context(), tenantCtx, widgetID)
	if err != nil {
		marker.SetError(err)
		if errorStatus(err) == http.StatusInternalServerError {
			h.logger.LogError(logging.ChannelEmbed, "get_embed_config", err, tenantCtx.TenantID, map[string]any{"widgetId": widgetID})
		}
		respondError(c, err)
		return
	}

	marker.SetSuccess(true)
	c.Header("Cache-Control", "public, max-age=60")
	c.JSON(http.StatusOK, embed)
}

// PostEvent ingests one banner interaction. Browsers send these with sendBeacon as
// text/plain, so the body is decoded as JSON whatever the content type.
func (h *EmbedHandlers) PostEvent(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("post_embed_event_request", tenantCtx.TenantID)
	defer marker.Complete()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, config.MaxEventBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "event body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	var event analytics.Event
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event body", "details": err.Error()})
		return
	}

	if _, err := h.analyticsService.Ingest(tenantCtx, event, c.Request.UserAgent()); err != nil {
		marker.SetError(err)
		if errorStatus(err) == http.StatusInternalServerError {
			h.logger.LogError(logging.ChannelAnalytics, "ingest_event", err, tenantCtx.TenantID, map[string]any{"widgetId": event.WidgetID})
		}
		respondError(c, err)
		return
	}

	marker.SetSuccess(true)
	c.Status(http.StatusNoContent)
}

// PostGenerate builds the standalone snippet for an unsaved customization
func (h *EmbedHandlers) PostGenerate(c *gin.Context) {
	start := time.Now()
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	snippet, err := h.embedService.Standalone(req.Config, req.WidgetID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Embed().Debug("Generate request completed", "lines", snippet.Lines, "duration", time.Since(start))
	c.JSON(http.StatusOK, snippet)
}

// GetLoader serves /embed.js, which boots the wasm runtime for every hosted tag on the page
func (h *EmbedHandlers) GetLoader(c *gin.Context) {
	src, err := h.embedService.Loader(publicBaseURL(c))
	if err != nil {
		h.logger.LogError(logging.ChannelEmbed, "render_loader", err, "", nil)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", []byte(src))
}
