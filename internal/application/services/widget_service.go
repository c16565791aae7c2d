// Package services provides application-level services that orchestrate
// business logic and coordinate between repositories and domain entities.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/banner"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/widgets"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/tenant"
)

// ErrInvalidWidget wraps every input rejection so handlers can answer 400.
var ErrInvalidWidget = errors.New("invalid widget")

// WidgetInput is the writable part of a widget.
type WidgetInput struct {
	Name   string               `json:"name"`
	Kind   string               `json:"type"`
	Config banner.Customization `json:"config"`
}

// WidgetService orchestrates widget CRUD with a cache-first embed lookup
type WidgetService struct {
	cache  interfaces.WidgetCache
	logger *logging.ChanneledLogger
	now    func() time.Time
}

// NewWidgetService creates a new widget application service
func NewWidgetService(cache interfaces.WidgetCache, logger *logging.ChanneledLogger) *WidgetService {
	return &WidgetService{cache: cache, logger: logger, now: time.Now}
}

// prepare normalizes the customization and rejects triggers no delivery path can run.
func (s *WidgetService) prepare(in WidgetInput) (widgets.Kind, banner.Customization, []string, error) {
	kindStr := in.Kind
	if kindStr == "" {
		kindStr = string(widgets.KindCookie)
	}
	kind, err := widgets.ParseKind(kindStr)
	if err != nil {
		return "", banner.Customization{}, nil, fmt.Errorf("%w: %v", ErrInvalidWidget, err)
	}
	cfg, warnings := banner.Normalize(in.Config)
	if err := banner.Validate(cfg); err != nil {
		return "", banner.Customization{}, nil, fmt.Errorf("%w: %v", ErrInvalidWidget, err)
	}
	return kind, cfg, warnings, nil
}

// Create stores a new widget under a fresh ULID. Normalization warnings are returned so
// the dashboard can show which fields fell back to defaults.
func (s *WidgetService) Create(tenantCtx *tenant.Context, in WidgetInput) (*widgets.Widget, []string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, nil, fmt.Errorf("%w: name is required", ErrInvalidWidget)
	}
	kind, cfg, warnings, err := s.prepare(in)
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	w := &widgets.Widget{ID: security.GenerateULID(), Name: name, Kind: kind, Config: cfg, CreatedAt: now, UpdatedAt: now}
	if err := tenantCtx.WidgetRepo().Store(tenantCtx.TenantID, w); err != nil {
		return nil, nil, fmt.Errorf("failed to create widget: %w", err)
	}
	s.logger.WithTenant(logging.ChannelEmbed, tenantCtx.TenantID).Info("Widget created", "widgetId", w.ID, "type", w.Kind)
	return w, warnings, nil
}

// Update replaces name, kind and config and drops the cached embed.
func (s *WidgetService) Update(ctx context.Context, tenantCtx *tenant.Context, id string, in WidgetInput) (*widgets.Widget, []string, error) {
	repo := tenantCtx.WidgetRepo()
	w, err := repo.FindByID(tenantCtx.TenantID, id)
	if err != nil {
		return nil, nil, err
	}
	kind, cfg, warnings, err := s.prepare(in)
	if err != nil {
		return nil, nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		w.Name = name
	}
	w.Kind = kind
	w.Config = cfg
	w.UpdatedAt = s.now().UTC()

	if err := repo.Update(tenantCtx.TenantID, w); err != nil {
		return nil, nil, err
	}
	s.cache.InvalidateEmbed(ctx, tenantCtx.TenantID, id)
	s.logger.WithTenant(logging.ChannelEmbed, tenantCtx.TenantID).Info("Widget updated", "widgetId", id)
	return w, warnings, nil
}

// Delete removes a widget and its cached embed.
func (s *WidgetService) Delete(ctx context.Context, tenantCtx *tenant.Context, id string) error {
	if err := tenantCtx.WidgetRepo().Delete(tenantCtx.TenantID, id); err != nil {
		return err
	}
	s.cache.InvalidateEmbed(ctx, tenantCtx.TenantID, id)
	s.logger.WithTenant(logging.ChannelEmbed, tenantCtx.TenantID).Info("Widget deleted", "widgetId", id)
	return nil
}

func (s *WidgetService) GetByID(tenantCtx *tenant.Context, id string) (*widgets.Widget, error) {
	if id == "" {
		return nil, widgets.ErrWidgetNotFound
	}
	return tenantCtx.WidgetRepo().FindByID(tenantCtx.TenantID, id)
}

func (s *WidgetService) List(tenantCtx *tenant.Context) ([]*widgets.Widget, error) {
	all, err := tenantCtx.WidgetRepo().FindAll(tenantCtx.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list widgets: %w", err)
	}
	if all == nil {
		all = []*widgets.Widget{}
	}
	return all, nil
}

// Embed returns the public projection served to the live runtime (cache-first).
func (s *WidgetService) Embed(ctx context.Context, tenantCtx *tenant.Context, id string) (*widgets.EmbedResponse, error) {
	if cached, ok := s.cache.GetEmbed(ctx, tenantCtx.TenantID, id); ok {
		return cached, nil
	}
	w, err := s.GetByID(tenantCtx, id)
	if err != nil {
		return nil, err
	}
	embed := w.Embed()
	s.cache.SetEmbed(ctx, tenantCtx.TenantID, id, &embed)
	return &embed, nil
}
