package messaging

import (
	"context"
	"net/http"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/analytics"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Upgrader is copied per request with the caller's origin check.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// StreamEvents upgrades the request and writes every event from the subscription as a JSON
// text frame until the client goes away or ctx ends. Pings keep idle proxies open.
func (b *EventBroadcaster) StreamEvents(ctx context.Context, w http.ResponseWriter, r *http.Request,
	tenantID, widgetID string, ping time.Duration, checkOrigin func(*http.Request) bool) error {
	up := Upgrader
	up.CheckOrigin = checkOrigin
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	events, unsubscribe := b.Subscribe(tenantID, widgetID)
	defer unsubscribe()

	// The read pump only notices the close frame; the stream is one-way.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(ping)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return writeClose(conn)
		case <-gone:
			return nil
		case ev, ok := <-events:
			if !ok {
				return writeClose(conn)
			}
			if err := writeEvent(conn, ev); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev *analytics.StoredEvent) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}

func writeClose(conn *websocket.Conn) error {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
	return conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
