package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/application/services"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/consent-banner-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/consent-banner-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// WidgetHandlers contains the authenticated dashboard endpoints
type WidgetHandlers struct {
	widgetService    *services.WidgetService
	embedService     *services.EmbedService
	analyticsService *services.AnalyticsService
	broadcaster      *messaging.EventBroadcaster
	logger           *logging.ChanneledLogger
	perfTracker      *performance.Tracker
	allowOrigin      func(origin string) bool
}

// NewWidgetHandlers creates widget handlers with injected dependencies
func NewWidgetHandlers(widgetService *services.WidgetService, embedService *services.EmbedService,
	analyticsService *services.AnalyticsService, broadcaster *messaging.EventBroadcaster,
	logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *WidgetHandlers {
	return &WidgetHandlers{
		widgetService:    widgetService,
		embedService:     embedService,
		analyticsService: analyticsService,
		broadcaster:      broadcaster,
		logger:           logger,
		perfTracker:      perfTracker,
		allowOrigin:      middleware.OriginChecker(config.DashboardOrigins),
	}
}

// GetAllWidgets lists the tenant's widgets
func (h *WidgetHandlers) GetAllWidgets(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("get_all_widgets_request", tenantCtx.TenantID)
	defer marker.Complete()

	all, err := h.widgetService.List(tenantCtx)
	if err != nil {
		marker.SetError(err)
		h.logger.LogError(logging.ChannelEmbed, "list_widgets", err, tenantCtx.TenantID, nil)
		respondError(c, err)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"widgets": all, "count": len(all)})
}

// GetWidgetByID returns one widget
func (h *WidgetHandlers) GetWidgetByID(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	w, err := h.widgetService.GetByID(tenantCtx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// CreateWidget stores a new widget. Fields that fell back to defaults are listed under "normalized".
func (h *WidgetHandlers) CreateWidget(c *gin.Context) {
	start := time.Now()
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("create_widget_request", tenantCtx.TenantID)
	defer marker.Complete()

	var req services.WidgetInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	w, warnings, err := h.widgetService.Create(tenantCtx, req)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	marker.SetSuccess(true)
	h.logger.Embed().Info("Create widget request completed", "widgetId", w.ID, "duration", time.Since(start))
	c.JSON(http.StatusCreated, gin.H{"widget": w, "normalized": nonNil(warnings)})
}

// UpdateWidget replaces a widget's name, type and configuration
func (h *WidgetHandlers) UpdateWidget(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("update_widget_request", tenantCtx.TenantID)
	defer marker.Complete()

	var req services.WidgetInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	w, warnings, err := h.widgetService.Update(c.Request.Context(), tenantCtx, c.Param("id"), req)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"widget": w, "normalized": nonNil(warnings)})
}

// DeleteWidget removes a widget
func (h *WidgetHandlers) DeleteWidget(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	if err := h.widgetService.Delete(c.Request.Context(), tenantCtx, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSnippets returns the hosted and standalone embed code side by side
func (h *WidgetHandlers) GetSnippets(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("get_snippets_request", tenantCtx.TenantID)
	defer marker.Complete()

	cmp, err := h.embedService.Compare(tenantCtx, publicBaseURL(c), c.Param("id"), config.EnableMultiTenant)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, cmp)
}

// GetStats returns per-type event counts. ?since takes RFC 3339, ?days a window in days.
func (h *WidgetHandlers) GetStats(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	var since time.Time
	if s := c.Query("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC 3339"})
			return
		}
		since = t
	} else if d := c.Query("days"); d != "" {
		days, err := strconv.Atoi(d)
		if err != nil || days <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		since = time.Now().AddDate(0, 0, -days)
	}

	stats, err := h.analyticsService.Stats(tenantCtx, c.Param("id"), since)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"widgetId":   stats.WidgetID,
		"counts":     stats.Counts,
		"since":      stats.Since,
		"acceptRate": stats.AcceptRate(),
	})
}

// GetRecentEvents returns the newest stored events of a widget
func (h *WidgetHandlers) GetRecentEvents(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	widgetID := c.Param("id")
	if _, err := h.widgetService.GetByID(tenantCtx, widgetID); err != nil {
		respondError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := h.analyticsService.Recent(tenantCtx, widgetID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// StreamEvents upgrades to a websocket that pushes each new event of the widget
func (h *WidgetHandlers) StreamEvents(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	widgetID := c.Param("id")
	if _, err := h.widgetService.GetByID(tenantCtx, widgetID); err != nil {
		respondError(c, err)
		return
	}

	logger := h.logger.WithTenant(logging.ChannelStream, tenantCtx.TenantID).With("widgetId", widgetID)
	logger.Info("Event stream opened")
	err := h.broadcaster.StreamEvents(c.Request.Context(), c.Writer, c.Request, tenantCtx.TenantID, widgetID,
		config.StreamPingInterval, func(r *http.Request) bool { return h.allowOrigin(r.Header.Get("Origin")) })
	if err != nil {
		logger.Debug("Event stream ended", "error", err.Error())
		return
	}
	logger.Info("Event stream closed")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
