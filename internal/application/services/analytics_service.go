package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/analytics"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/widgets"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/tenant"
)

// maxFieldLen bounds the free-text columns of an ingested event.
const maxFieldLen = 2048

// DefaultStatsWindow is the range of GET /widgets/:id/stats without a since parameter.
const DefaultStatsWindow = 30 * 24 * time.Hour

// AnalyticsService ingests banner events, stores them and fans them out to live streams.
type AnalyticsService struct {
	broadcaster messaging.Broadcaster
	logger      *logging.ChanneledLogger
	now         func() time.Time
}

func NewAnalyticsService(broadcaster messaging.Broadcaster, logger *logging.ChanneledLogger) *AnalyticsService {
	return &AnalyticsService{broadcaster: broadcaster, logger: logger, now: time.Now}
}

// Ingest validates and stores one event. Events for widgets the tenant does not own are
// rejected with widgets.ErrWidgetNotFound.
func (s *AnalyticsService) Ingest(tenantCtx *tenant.Context, event analytics.Event, userAgent string) (*analytics.StoredEvent, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	if _, err := tenantCtx.WidgetRepo().FindByID(tenantCtx.TenantID, event.WidgetID); err != nil {
		return nil, err
	}

	if event.UserAgent == "" {
		event.UserAgent = userAgent
	}
	event.VisitorID = clip(event.VisitorID)
	event.SessionID = clip(event.SessionID)
	event.PageURL = clip(event.PageURL)
	event.Referrer = clip(event.Referrer)
	event.UserAgent = clip(event.UserAgent)

	stored := &analytics.StoredEvent{ID: security.GenerateULID(), Event: event, CreatedAt: s.now().UTC()}
	if err := tenantCtx.EventRepo().Store(tenantCtx.TenantID, stored); err != nil {
		return nil, err
	}
	s.broadcaster.Publish(tenantCtx.TenantID, stored)

	s.logger.WithTenant(logging.ChannelAnalytics, tenantCtx.TenantID).Debug("Event ingested",
		"widgetId", event.WidgetID, "type", event.Type, "eventId", stored.ID)
	return stored, nil
}

// Stats counts a widget's events since the given time. A zero since uses the default window.
func (s *AnalyticsService) Stats(tenantCtx *tenant.Context, widgetID string, since time.Time) (*analytics.Stats, error) {
	if _, err := tenantCtx.WidgetRepo().FindByID(tenantCtx.TenantID, widgetID); err != nil {
		return nil, err
	}
	if since.IsZero() {
		since = s.now().Add(-DefaultStatsWindow)
	}
	counts, err := tenantCtx.EventRepo().CountByType(tenantCtx.TenantID, widgetID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return &analytics.Stats{WidgetID: widgetID, Counts: counts, Since: since.UTC()}, nil
}

// Recent returns the newest events of a widget.
func (s *AnalyticsService) Recent(tenantCtx *tenant.Context, widgetID string, limit int) ([]*analytics.StoredEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	events, err := tenantCtx.EventRepo().FindRecent(tenantCtx.TenantID, widgetID, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*analytics.StoredEvent{}
	}
	return events, nil
}

// IsClientError reports whether err comes from bad input rather than storage.
func IsClientError(err error) bool {
	return errors.Is(err, analytics.ErrInvalidEventType) ||
		errors.Is(err, analytics.ErrMissingWidgetID) ||
		errors.Is(err, ErrInvalidWidget)
}

// IsNotFound reports whether err means the widget does not exist for the tenant.
func IsNotFound(err error) bool {
	return errors.Is(err, widgets.ErrWidgetNotFound)
}

// clip trims s and cuts it to at most maxFieldLen bytes without splitting a rune.
func clip(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxFieldLen {
		return s
	}
	n := maxFieldLen
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
