// Package widgets provides the SQL implementation of widget persistence.
package widgets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/widgets"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/persistence/database"
)

// SQLWidgetRepository stores widgets with their customization as a JSON column.
type SQLWidgetRepository struct {
	db *database.DB
}

func NewSQLWidgetRepository(db *database.DB) *SQLWidgetRepository {
	return &SQLWidgetRepository{db: db}
}

const selectWidget = `SELECT id, name, type, config, created_at, updated_at FROM widgets`

type scanner interface {
	Scan(dest ...any) error
}

func scanWidget(s scanner) (*widgets.Widget, error) {
	w := &widgets.Widget{}
	var (
		kind, raw        string
		created, updated int64
	)
	if err := s.Scan(&w.ID, &w.Name, &kind, &raw, &created, &updated); err != nil {
		return nil, err
	}
	w.Kind = widgets.Kind(kind)
	if err := json.Unmarshal([]byte(raw), &w.Config); err != nil {
		return nil, fmt.Errorf("failed to decode config of widget %s: %w", w.ID, err)
	}
	w.CreatedAt = time.UnixMilli(created).UTC()
	w.UpdatedAt = time.UnixMilli(updated).UTC()
	return w, nil
}

// FindByID returns widgets.ErrWidgetNotFound when no row matches.
func (r *SQLWidgetRepository) FindByID(tenantID, id string) (*widgets.Widget, error) {
	row := r.db.QueryRowTimed(context.Background(), selectWidget+` WHERE id = ?`, id)
	w, err := scanWidget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, widgets.ErrWidgetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load widget %s: %w", id, err)
	}
	return w, nil
}

func (r *SQLWidgetRepository) FindAll(tenantID string) ([]*widgets.Widget, error) {
	rows, err := r.db.QueryTimed(context.Background(), selectWidget+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list widgets: %w", err)
	}
	defer rows.Close()

	var out []*widgets.Widget
	for rows.Next() {
		w, err := scanWidget(rows)
		if err != nil {
			r.db.Logger().Database().Warn("Skipping unreadable widget", "tenantId", tenantID, "error", err.Error())
			continue
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *SQLWidgetRepository) Store(tenantID string, w *widgets.Widget) error {
	raw, err := json.Marshal(w.Config)
	if err != nil {
		return fmt.Errorf("failed to encode widget config: %w", err)
	}
	_, err = r.db.ExecTimed(context.Background(),
		`INSERT INTO widgets (id, name, type, config, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		w.ID, w.Name, string(w.Kind), string(raw), w.CreatedAt.UnixMilli(), w.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert widget %s: %w", w.ID, err)
	}
	return nil
}

// Update rewrites name, type and config. Returns widgets.ErrWidgetNotFound for a missing id.
func (r *SQLWidgetRepository) Update(tenantID string, w *widgets.Widget) error {
	raw, err := json.Marshal(w.Config)
	if err != nil {
		return fmt.Errorf("failed to encode widget config: %w", err)
	}
	res, err := r.db.ExecTimed(context.Background(),
		`UPDATE widgets SET name = ?, type = ?, config = ?, updated_at = ? WHERE id = ?`,
		w.Name, string(w.Kind), string(raw), w.UpdatedAt.UnixMilli(), w.ID)
	if err != nil {
		return fmt.Errorf("failed to update widget %s: %w", w.ID, err)
	}
	return mustAffect(res)
}

func (r *SQLWidgetRepository) Delete(tenantID, id string) error {
	res, err := r.db.ExecTimed(context.Background(), `DELETE FROM widgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete widget %s: %w", id, err)
	}
	return mustAffect(res)
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return widgets.ErrWidgetNotFound
	}
	return nil
}
