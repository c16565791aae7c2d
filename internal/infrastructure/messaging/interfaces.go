// Package messaging fans ingested banner events out to live dashboard streams.
package messaging

import "github.com/AtRiskMedia/consent-banner-go/internal/domain/analytics"

// Broadcaster delivers stored events to subscribers of one tenant's widget.
type Broadcaster interface {
	Subscribe(tenantID, widgetID string) (<-chan *analytics.StoredEvent, func())
	Publish(tenantID string, event *analytics.StoredEvent)
	SubscriberCount(tenantID, widgetID string) int
}
