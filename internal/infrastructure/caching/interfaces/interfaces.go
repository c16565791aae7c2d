// Package interfaces defines cache operation contracts for multi-tenant widget configs.
package interfaces

import (
	"context"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/widgets"
)

// WidgetCache holds the public embed projection of widgets, keyed by tenant and widget id.
// Implementations must keep tenants isolated.
type WidgetCache interface {
	GetEmbed(ctx context.Context, tenantID, widgetID string) (*widgets.EmbedResponse, bool)
	SetEmbed(ctx context.Context, tenantID, widgetID string, embed *widgets.EmbedResponse)
	InvalidateEmbed(ctx context.Context, tenantID, widgetID string)
	Stats() Stats
}

// Sweeper is a cache that needs periodic eviction of expired entries.
type Sweeper interface {
	Sweep() int
}

// Stats reports cache effectiveness.
type Stats struct {
	Backend string `json:"backend"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Entries int    `json:"entries"`
}
