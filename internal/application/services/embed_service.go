package services

import (
	"fmt"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/banner"
	"github.com/AtRiskMedia/consent-banner-go/internal/generator"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/tenant"
)

// EmbedService produces the copy-paste snippets of both delivery paths.
type EmbedService struct {
	widgets *WidgetService
	logger  *logging.ChanneledLogger
}

func NewEmbedService(widgetService *WidgetService, logger *logging.ChanneledLogger) *EmbedService {
	return &EmbedService{widgets: widgetService, logger: logger}
}

// Standalone generates the self-contained snippet for an unsaved customization.
func (s *EmbedService) Standalone(c banner.Customization, widgetID string) (generator.Snippet, error) {
	snip, err := generator.Generate(c, generator.Options{WidgetID: widgetID})
	if err != nil {
		return generator.Snippet{}, fmt.Errorf("%w: %v", ErrInvalidWidget, err)
	}
	s.logger.Embed().Debug("Standalone snippet generated", "widgetId", widgetID, "lines", snip.Lines)
	return snip, nil
}

// Compare returns the hosted and standalone snippets for a stored widget. The hosted tag
// omits the tenant in single-tenant mode.
func (s *EmbedService) Compare(tenantCtx *tenant.Context, baseURL, id string, multiTenant bool) (*generator.Comparison, error) {
	w, err := s.widgets.GetByID(tenantCtx, id)
	if err != nil {
		return nil, err
	}
	if err := w.Kind.Mountable(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWidget, err)
	}

	tenantAttr := ""
	if multiTenant {
		tenantAttr = tenantCtx.TenantID
	}
	standalone, err := generator.Generate(w.Config, generator.Options{WidgetID: w.ID})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWidget, err)
	}
	cmp := &generator.Comparison{
		Hosted:     generator.Hosted(baseURL, w.ID, tenantAttr),
		Standalone: standalone,
	}
	s.logger.WithTenant(logging.ChannelEmbed, tenantCtx.TenantID).Info("Snippets generated",
		"widgetId", w.ID, "hostedLines", cmp.Hosted.Lines, "standaloneLines", cmp.Standalone.Lines)
	return cmp, nil
}

// Loader returns the /embed.js body for apiBase.
func (s *EmbedService) Loader(apiBase string) (string, error) {
	return generator.Loader(apiBase)
}
