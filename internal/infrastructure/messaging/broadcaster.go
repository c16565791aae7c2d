package messaging

import (
	"sync"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/analytics"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
)

// subscriberBuffer bounds how far a slow stream may fall behind before events are dropped.
const subscriberBuffer = 32

// EventBroadcaster manages tenant- and widget-scoped subscriptions.
type EventBroadcaster struct {
	subs   map[string]map[string][]chan *analytics.StoredEvent // tenantId -> widgetId -> channels
	mu     sync.Mutex
	logger *logging.ChanneledLogger
}

func NewEventBroadcaster(logger *logging.ChanneledLogger) *EventBroadcaster {
	return &EventBroadcaster{
		subs:   make(map[string]map[string][]chan *analytics.StoredEvent),
		logger: logger,
	}
}

// Subscribe registers a stream. The returned func unsubscribes and closes the channel; it
// is safe to call more than once.
func (b *EventBroadcaster) Subscribe(tenantID, widgetID string) (<-chan *analytics.StoredEvent, func()) {
	ch := make(chan *analytics.StoredEvent, subscriberBuffer)

	b.mu.Lock()
	if b.subs[tenantID] == nil {
		b.subs[tenantID] = make(map[string][]chan *analytics.StoredEvent)
	}
	b.subs[tenantID][widgetID] = append(b.subs[tenantID][widgetID], ch)
	b.mu.Unlock()

	b.logger.Stream().Debug("Stream subscribed", "tenantId", tenantID, "widgetId", widgetID)

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.remove(tenantID, widgetID, ch) })
	}
}

func (b *EventBroadcaster) remove(tenantID, widgetID string, ch chan *analytics.StoredEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	widgetSubs := b.subs[tenantID]
	kept := widgetSubs[widgetID][:0]
	for _, c := range widgetSubs[widgetID] {
		if c != ch {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		delete(widgetSubs, widgetID)
	} else {
		widgetSubs[widgetID] = kept
	}
	if len(widgetSubs) == 0 {
		delete(b.subs, tenantID)
	}
	close(ch)
	b.logger.Stream().Debug("Stream unsubscribed", "tenantId", tenantID, "widgetId", widgetID)
}

// Publish never blocks. A full subscriber misses the event.
func (b *EventBroadcaster) Publish(tenantID string, event *analytics.StoredEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs[tenantID][event.Event.WidgetID] {
		select {
		case ch <- event:
		default:
			b.logger.Stream().Warn("Stream buffer full, event dropped",
				"tenantId", tenantID, "widgetId", event.Event.WidgetID, "eventId", event.ID)
		}
	}
}

func (b *EventBroadcaster) SubscriberCount(tenantID, widgetID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[tenantID][widgetID])
}
