// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"os"

	"github.com/AtRiskMedia/consent-banner-go/internal/application/container"
	"github.com/AtRiskMedia/consent-banner-go/internal/generator"
	"github.com/AtRiskMedia/consent-banner-go/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/consent-banner-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/consent-banner-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(container.Logger))
	r.Use(middleware.CORSMiddleware(config.DashboardOrigins))

	// Initialize handlers
	embedHandlers := handlers.NewEmbedHandlers(container.WidgetService, container.EmbedService, container.AnalyticsService, container.Logger, container.PerfTracker)
	widgetHandlers := handlers.NewWidgetHandlers(container.WidgetService, container.EmbedService, container.AnalyticsService, container.Broadcaster, container.Logger, container.PerfTracker)
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.Logger, container.PerfTracker)
	healthHandlers := handlers.NewHealthHandlers(container.TenantManager, container.WidgetCache, container.PerfTracker)

	// Loader and wasm runtime assets
	r.GET(generator.LoaderPath, embedHandlers.GetLoader)
	if info, err := os.Stat(config.RuntimeDir); err == nil && info.IsDir() {
		r.Static("/runtime", config.RuntimeDir)
	} else {
		container.Logger.System().Warn("Runtime assets directory missing, hosted banners will not load", "dir", config.RuntimeDir)
	}

	r.GET("/api/v1/health", healthHandlers.GetHealth)

	tenantMiddleware := middleware.TenantMiddleware(container.TenantManager, container.PerfTracker)

	// Public embed API used by customer pages
	embed := r.Group("/api/v1/embed")
	embed.Use(tenantMiddleware)
	{
		embed.POST("/generate", embedHandlers.PostGenerate)

		pages := embed.Group("")
		pages.Use(middleware.DomainValidationMiddleware(container.TenantManager))
		pages.GET("/:id", embedHandlers.GetEmbedConfig)
		pages.POST("/events", embedHandlers.PostEvent)
	}

	api := r.Group("/api/v1")
	api.Use(tenantMiddleware)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandlers.PostLogin)
			auth.POST("/logout", authHandlers.PostLogout)
		}

		widgets := api.Group("/widgets")
		widgets.Use(middleware.AuthMiddleware(container.AuthService))
		{
			widgets.GET("", widgetHandlers.GetAllWidgets)
			widgets.POST("", widgetHandlers.CreateWidget)
			widgets.GET("/:id", widgetHandlers.GetWidgetByID)
			widgets.PUT("/:id", widgetHandlers.UpdateWidget)
			widgets.DELETE("/:id", widgetHandlers.DeleteWidget)
			widgets.GET("/:id/snippet", widgetHandlers.GetSnippets)
			widgets.GET("/:id/stats", widgetHandlers.GetStats)
			widgets.GET("/:id/events", widgetHandlers.GetRecentEvents)
			widgets.GET("/:id/events/stream", widgetHandlers.StreamEvents)
		}
	}

	return r
}
