// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/AtRiskMedia/consent-banner-go/internal/application/services"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/tenant"
	"github.com/AtRiskMedia/consent-banner-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	WidgetService    *services.WidgetService
	EmbedService     *services.EmbedService
	AnalyticsService *services.AnalyticsService
	AuthService      *services.AuthService

	// Infrastructure Dependencies
	TenantManager *tenant.Manager
	WidgetCache   interfaces.WidgetCache
	Broadcaster   *messaging.EventBroadcaster
	Logger        *logging.ChanneledLogger
	PerfTracker   *performance.Tracker
}

// NewContainer creates and wires all singleton services
func NewContainer(tenantManager *tenant.Manager, cache interfaces.WidgetCache, logger *logging.ChanneledLogger) *Container {
	broadcaster := messaging.NewEventBroadcaster(logger)
	widgetService := services.NewWidgetService(cache, logger)

	return &Container{
		WidgetService:    widgetService,
		EmbedService:     services.NewEmbedService(widgetService, logger),
		AnalyticsService: services.NewAnalyticsService(broadcaster, logger),
		AuthService:      services.NewAuthService(logger, config.JWTTTL),

		TenantManager: tenantManager,
		WidgetCache:   cache,
		Broadcaster:   broadcaster,
		Logger:        logger,
		PerfTracker:   performance.NewTracker(logger, config.SlowQueryThreshold),
	}
}
