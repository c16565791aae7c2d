package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/tenant"
	"github.com/AtRiskMedia/consent-banner-go/pkg/config"
	"github.com/gin-gonic/gin"
)

type tenantHealth struct {
	TenantID string `json:"tenantId"`
	Backend  string `json:"backend"`
	Healthy  bool   `json:"healthy"`
	Error    string `json:"error,omitempty"`
}

// HealthHandlers reports database, cache and request timing state
type HealthHandlers struct {
	tenantManager *tenant.Manager
	cache         interfaces.WidgetCache
	perfTracker   *performance.Tracker
	started       time.Time
}

// NewHealthHandlers creates health handlers with injected dependencies
func NewHealthHandlers(tenantManager *tenant.Manager, cache interfaces.WidgetCache, perfTracker *performance.Tracker) *HealthHandlers {
	return &HealthHandlers{
		tenantManager: tenantManager,
		cache:         cache,
		perfTracker:   perfTracker,
		started:       time.Now(),
	}
}

// GetHealth answers 200 when every open tenant database pings, 503 otherwise
func (h *HealthHandlers) GetHealth(c *gin.Context) {
	contexts := h.tenantManager.ActiveContexts()
	tenants := make([]tenantHealth, 0, len(contexts))
	healthy := true
	for _, tctx := range contexts {
		th := tenantHealth{TenantID: tctx.TenantID, Healthy: true}
		if tctx.Database != nil {
			th.Backend = tctx.Database.Backend()
		}
		if err := tctx.Database.Ping(); err != nil {
			th.Healthy = false
			th.Error = err.Error()
			healthy = false
		}
		tenants = append(tenants, th)
	}
	sort.Slice(tenants, func(i, j int) bool { return tenants[i].TenantID < tenants[j].TenantID })

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":      status,
		"multiTenant": config.EnableMultiTenant,
		"uptime":      time.Since(h.started).Round(time.Second).String(),
		"tenants":     tenants,
		"cache":       h.cache.Stats(),
		"operations":  h.perfTracker.Snapshot(),
	})
}
