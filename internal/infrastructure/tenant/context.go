package tenant

import (
	domainAnalytics "github.com/AtRiskMedia/consent-banner-go/internal/domain/analytics"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/widgets"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/persistence/analytics"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/persistence/database"
	persistenceWidgets "github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/persistence/widgets"
)

// Context holds tenant-specific request context
type Context struct {
	TenantID string
	Config   *Config
	Database *Database
	Status   string
	Logger   *logging.ChanneledLogger
}

func (ctx *Context) db() *database.DB {
	return database.Wrap(ctx.Database.Conn, ctx.TenantID, ctx.Logger)
}

// WidgetRepo returns a widget repository bound to the tenant database.
func (ctx *Context) WidgetRepo() widgets.Repository {
	return persistenceWidgets.NewSQLWidgetRepository(ctx.db())
}

// EventRepo returns an event repository bound to the tenant database.
func (ctx *Context) EventRepo() domainAnalytics.EventRepository {
	return analytics.NewSQLEventRepository(ctx.db())
}

// IsActive returns true if the tenant is active
func (ctx *Context) IsActive() bool {
	return ctx.Status == StatusActive
}
