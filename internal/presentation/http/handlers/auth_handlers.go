package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/application/services"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/consent-banner-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// LoginRequest represents the dashboard login body
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// AuthHandlers contains authentication-related HTTP handlers
type AuthHandlers struct {
	authService *services.AuthService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAuthHandlers creates auth handlers with injected dependencies
func NewAuthHandlers(authService *services.AuthService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// PostLogin exchanges the admin password for a dashboard token. The token is returned in
// the body and also set as an HttpOnly cookie.
func (h *AuthHandlers) PostLogin(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("login_request", tenantCtx.TenantID)
	defer marker.Complete()

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}

	result, err := h.authService.AuthenticateAdmin(req.Password, tenantCtx)
	if err != nil {
		marker.SetError(err)
		switch {
		case errors.Is(err, services.ErrLoginDisabled):
			c.JSON(http.StatusForbidden, gin.H{"error": "login is disabled for this tenant"})
		case errors.Is(err, security.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		default:
			h.logger.LogError(logging.ChannelAuth, "login", err, tenantCtx.TenantID, nil)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	maxAge := int(time.Until(result.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AuthCookie, result.Token, maxAge, "/", "", c.Request.TLS != nil, true)

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, result)
}

// PostLogout clears the auth cookie
func (h *AuthHandlers) PostLogout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AuthCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	c.Status(http.StatusNoContent)
}
