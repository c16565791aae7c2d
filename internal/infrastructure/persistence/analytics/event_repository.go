// Package analytics provides the SQL implementation of banner event persistence.
package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/analytics"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/persistence/database"
)

// SQLEventRepository stores ingested events in the embed_events table.
type SQLEventRepository struct {
	db *database.DB
}

// NewSQLEventRepository creates a new instance of the repository.
func NewSQLEventRepository(db *database.DB) *SQLEventRepository {
	return &SQLEventRepository{db: db}
}

// Store saves an ingested event.
func (r *SQLEventRepository) Store(tenantID string, event *analytics.StoredEvent) error {
	const query = `
		INSERT INTO embed_events (id, widget_id, event_type, visitor_id, session_id, page_url, referrer, user_agent, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var data sql.NullString
	if len(event.Event.Data) > 0 {
		raw, err := json.Marshal(event.Event.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal event data: %w", err)
		}
		data = sql.NullString{String: string(raw), Valid: true}
	}

	e := event.Event
	_, err := r.db.ExecTimed(context.Background(), query,
		event.ID, e.WidgetID, string(e.Type), e.VisitorID, e.SessionID,
		e.PageURL, e.Referrer, e.UserAgent, data, event.CreatedAt.UnixMilli(),
	)
	if err != nil {
		r.db.Logger().Database().Error("Event insert failed",
			"error", err.Error(), "tenantId", tenantID, "widgetId", e.WidgetID, "type", e.Type)
		return fmt.Errorf("failed to store event: %w", err)
	}
	return nil
}

// CountByType counts a widget's events per type since the given time. Every known type is
// present in the result, zero when absent.
func (r *SQLEventRepository) CountByType(tenantID, widgetID string, since time.Time) (map[analytics.EventType]int, error) {
	const query = `
		SELECT event_type, COUNT(*) FROM embed_events
		WHERE widget_id = ? AND created_at >= ?
		GROUP BY event_type`

	rows, err := r.db.QueryTimed(context.Background(), query, widgetID, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[analytics.EventType]int, len(analytics.EventTypes))
	for _, t := range analytics.EventTypes {
		counts[t] = 0
	}
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		counts[analytics.EventType(t)] = n
	}
	return counts, rows.Err()
}

// FindRecent returns the newest events of a widget, newest first.
func (r *SQLEventRepository) FindRecent(tenantID, widgetID string, limit int) ([]*analytics.StoredEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, widget_id, event_type, visitor_id, session_id, page_url, referrer, user_agent, data, created_at
		FROM embed_events WHERE widget_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryTimed(context.Background(), query, widgetID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*analytics.StoredEvent
	for rows.Next() {
		var (
			se      analytics.StoredEvent
			typ     string
			data    sql.NullString
			created int64
		)
		e := &se.Event
		if err := rows.Scan(&se.ID, &e.WidgetID, &typ, &e.VisitorID, &e.SessionID,
			&e.PageURL, &e.Referrer, &e.UserAgent, &data, &created); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Type = analytics.EventType(typ)
		if data.Valid {
			if err := json.Unmarshal([]byte(data.String), &e.Data); err != nil {
				r.db.Logger().Database().Warn("Dropping unreadable event data",
					"tenantId", tenantID, "eventId", se.ID, "error", err.Error())
			}
		}
		se.CreatedAt = time.UnixMilli(created).UTC()
		events = append(events, &se)
	}
	return events, rows.Err()
}
