package analytics

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/consent"
)

// Storage keys for the reporting identity.
const (
	VisitorKey = "cookie_banner_visitor_id"
	SessionKey = "cookie_banner_session_id"
)

// ContentType labels event bodies in the browser. It is CORS-safelisted, so neither
// sendBeacon nor the keepalive fetch needs a preflight.
const ContentType = "text/plain;charset=UTF-8"

// Transport delivers a serialized event. Beacon reports whether the browser queued the
// payload; KeepAlive is the fallback request.
type Transport interface {
	Beacon(url string, body []byte) bool
	KeepAlive(url string, body []byte) error
}

// PageInfo describes the host page an event was raised on.
type PageInfo struct {
	URL       string
	Referrer  string
	UserAgent string
}

// Identity holds the visitor and session ids attached to every event.
type Identity struct {
	VisitorID string
	SessionID string
}

// LoadIdentity reads or creates the long-lived visitor id and the per-session id.
// Unavailable storage yields fresh ids that last for this page only.
func LoadIdentity(local, session consent.Storage) Identity {
	return Identity{
		VisitorID: persistentID(local, VisitorKey),
		SessionID: persistentID(session, SessionKey),
	}
}

func persistentID(s consent.Storage, key string) (id string) {
	id = uuid.NewString()
	if s == nil {
		return id
	}
	defer func() { _ = recover() }()

	if v, ok, err := s.GetItem(key); err == nil && ok && v != "" {
		return v
	}
	_ = s.SetItem(key, id)
	return id
}

// Emitter reports banner events for one widget instance.
type Emitter struct {
	endpoint  string
	transport Transport
	identity  Identity
	page      PageInfo
}

// NewEmitter creates an emitter posting to endpoint. A nil transport disables delivery.
func NewEmitter(endpoint string, transport Transport, identity Identity, page PageInfo) *Emitter {
	return &Emitter{endpoint: endpoint, transport: transport, identity: identity, page: page}
}

// Report sends one event. Delivery is fire-and-forget: failures and panics inside the
// transport are swallowed.
func (e *Emitter) Report(widgetID string, t EventType, data map[string]any) {
	if e == nil {
		return
	}
	ev := Event{
		WidgetID:  widgetID,
		Type:      t,
		VisitorID: e.identity.VisitorID,
		SessionID: e.identity.SessionID,
		PageURL:   e.page.URL,
		Referrer:  e.page.Referrer,
		UserAgent: e.page.UserAgent,
		Data:      data,
	}

	defer func() { _ = recover() }()

	if e.transport == nil || e.endpoint == "" {
		return
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if e.transport.Beacon(e.endpoint, body) {
		return
	}
	_ = e.transport.KeepAlive(e.endpoint, body)
}

// DecisionEvent maps a button action to its event type.
func DecisionEvent(action string) (EventType, bool) {
	switch action {
	case "accept":
		return EventAccept, true
	case "decline":
		return EventDecline, true
	case "settings":
		return EventSettings, true
	default:
		return "", false
	}
}
