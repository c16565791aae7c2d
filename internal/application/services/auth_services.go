package services

import (
	"errors"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/tenant"
)

// ErrLoginDisabled is returned when the tenant has no admin password hash configured.
var ErrLoginDisabled = errors.New("login disabled: no ADMIN_PASSWORD_HASH configured")

// AuthService handles dashboard authentication and JWT operations
type AuthService struct {
	logger *logging.ChanneledLogger
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthService creates a new authentication service issuing tokens valid for ttl
func NewAuthService(logger *logging.ChanneledLogger, ttl time.Duration) *AuthService {
	return &AuthService{logger: logger, ttl: ttl, now: time.Now}
}

// AuthResult holds authentication result data
type AuthResult struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthenticateAdmin validates the admin password and issues a dashboard token.
func (a *AuthService) AuthenticateAdmin(password string, tenantCtx *tenant.Context) (*AuthResult, error) {
	if tenantCtx.Config.AdminPasswordHash == "" {
		a.logger.LogAuthOperation("login", tenantCtx.TenantID, false)
		return nil, ErrLoginDisabled
	}
	if err := security.CheckPassword(tenantCtx.Config.AdminPasswordHash, password); err != nil {
		a.logger.LogAuthOperation("login", tenantCtx.TenantID, false)
		return nil, err
	}

	now := a.now()
	token, err := security.GenerateDashboardToken(tenantCtx.TenantID, security.RoleAdmin, tenantCtx.Config.JWTSecret, a.ttl, now)
	if err != nil {
		return nil, err
	}
	a.logger.LogAuthOperation("login", tenantCtx.TenantID, true)
	return &AuthResult{Token: token, Role: security.RoleAdmin, ExpiresAt: now.Add(a.ttl).UTC()}, nil
}

// ValidateToken checks a bearer token against the tenant's secret.
func (a *AuthService) ValidateToken(token string, tenantCtx *tenant.Context) (*security.DashboardClaims, error) {
	return security.ValidateDashboardToken(token, tenantCtx.TenantID, tenantCtx.Config.JWTSecret)
}
