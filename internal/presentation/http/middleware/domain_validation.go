package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/tenant"
	"github.com/gin-gonic/gin"
)

// DomainValidationMiddleware checks that the page embedding a banner belongs to the
// tenant's registered domains. Requests without Origin or Referer come from servers and
// tooling and are let through.
func DomainValidationMiddleware(tenantManager *tenant.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		domain := pageDomain(c.Request)
		if domain == "" || isLoopback(domain) {
			c.Next()
			return
		}

		tenantCtx, exists := GetTenantContext(c)
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "tenant context required"})
			return
		}

		if !tenantManager.GetDetector().ValidateDomain(tenantCtx.TenantID, domain) {
			tenantManager.GetLogger().Tenant().Warn("Embed request from unregistered domain",
				"tenantId", tenantCtx.TenantID, "domain", domain)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "domain not allowed for tenant"})
			return
		}

		c.Next()
	}
}

func pageDomain(r *http.Request) string {
	for _, h := range []string{"Origin", "Referer"} {
		v := r.Header.Get(h)
		if v == "" || v == "null" {
			continue
		}
		if u, err := url.Parse(v); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	return ""
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "::1" || strings.HasPrefix(host, "127.")
}
