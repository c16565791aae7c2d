package middleware

import (
	"strings"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/generator"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var defaultDashboardOrigins = []string{
	"http://localhost:4321",
	"http://127.0.0.1:4321",
	"http://[::1]:4321",
}

// IsEmbedPath reports whether path is served to arbitrary customer pages.
func IsEmbedPath(path string) bool {
	return path == generator.LoaderPath ||
		strings.HasPrefix(path, "/runtime/") ||
		strings.HasPrefix(path, "/api/v1/embed/")
}

// EmbedCORS is the policy for the loader, the runtime assets and the public embed API.
// Any page may load a banner, so every origin is allowed and no credentials are sent.
func EmbedCORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "X-Tenant-ID"},
		MaxAge:          12 * time.Hour,
	})
}

// DashboardCORS is the policy for the authenticated dashboard API.
func DashboardCORS(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		origins = defaultDashboardOrigins
	}
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			"X-Tenant-ID", "X-Requested-With", "Cache-Control",
		},
		AllowCredentials: true,
		AllowWebSockets:  true,
		ExposeHeaders:    []string{"Content-Type", "Cache-Control"},
	})
}

// CORSMiddleware picks the embed or dashboard policy by path. It is installed globally so
// preflights for unmatched routes still get an answer.
func CORSMiddleware(dashboardOrigins []string) gin.HandlerFunc {
	embed := EmbedCORS()
	dashboard := DashboardCORS(dashboardOrigins)
	return func(c *gin.Context) {
		if IsEmbedPath(c.Request.URL.Path) {
			embed(c)
			return
		}
		dashboard(c)
	}
}

// OriginChecker returns a websocket origin check that accepts the dashboard origins and
// requests without an Origin header.
func OriginChecker(origins []string) func(origin string) bool {
	if len(origins) == 0 {
		origins = defaultDashboardOrigins
	}
	return func(origin string) bool {
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}
