// Package analytics defines banner interaction events, the client-side emitter that
// reports them, and the repository contract for storing them.
package analytics

import (
	"errors"
	"fmt"
	"time"
)

// EventType names a banner interaction.
type EventType string

const (
	EventView     EventType = "view"
	EventAccept   EventType = "cookie_accept"
	EventDecline  EventType = "cookie_decline"
	EventSettings EventType = "cookie_settings"
)

// EventTypes lists every accepted event type.
var EventTypes = []EventType{EventView, EventAccept, EventDecline, EventSettings}

var (
	ErrInvalidEventType = errors.New("invalid event type")
	ErrMissingWidgetID  = errors.New("missing widget id")
)

// Event is the AnalyticsEventPayload posted by a mounted banner.
type Event struct {
	WidgetID  string         `json:"widgetId"`
	Type      EventType      `json:"type"`
	VisitorID string         `json:"visitorId"`
	SessionID string         `json:"sessionId"`
	PageURL   string         `json:"pageUrl"`
	Referrer  string         `json:"referrer"`
	UserAgent string         `json:"userAgent"`
	Data      map[string]any `json:"data,omitempty"`
}

// Validate checks the fields the ingest endpoint relies on.
func (e Event) Validate() error {
	if e.WidgetID == "" {
		return ErrMissingWidgetID
	}
	for _, t := range EventTypes {
		if e.Type == t {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidEventType, e.Type)
}

// StoredEvent is an ingested event as persisted for one tenant.
type StoredEvent struct {
	ID        string    `json:"id"`
	Event     Event     `json:"event"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stats is the per-type counter view of a widget's events.
type Stats struct {
	WidgetID string            `json:"widgetId"`
	Counts   map[EventType]int `json:"counts"`
	Since    time.Time         `json:"since"`
}

// AcceptRate is accepts over decisions, or 0 with no decisions.
func (s Stats) AcceptRate() float64 {
	decided := s.Counts[EventAccept] + s.Counts[EventDecline] + s.Counts[EventSettings]
	if decided == 0 {
		return 0
	}
	return float64(s.Counts[EventAccept]+s.Counts[EventSettings]) / float64(decided)
}

// EventRepository stores and counts banner events.
type EventRepository interface {
	// Store saves an ingested event.
	Store(tenantID string, event *StoredEvent) error

	// CountByType counts a widget's events per type since the given time.
	CountByType(tenantID, widgetID string, since time.Time) (map[EventType]int, error)

	// FindRecent returns the newest events of a widget, newest first.
	FindRecent(tenantID, widgetID string, limit int) ([]*StoredEvent, error)
}
