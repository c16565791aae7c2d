// Package database wraps a tenant connection with query timing so repositories report
// slow statements on the slow-query channel.
package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/consent-banner-go/pkg/config"
)

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
	TenantID string
	logger   *logging.ChanneledLogger
}

// Wrap binds conn to a tenant and logger.
func Wrap(conn *sql.DB, tenantID string, logger *logging.ChanneledLogger) *DB {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &DB{DB: conn, TenantID: tenantID, logger: logger}
}

// Logger returns the logger the repositories share.
func (db *DB) Logger() *logging.ChanneledLogger {
	return db.logger
}

// ExecTimed runs a statement and reports it when it exceeds the slow-query threshold.
func (db *DB) ExecTimed(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := db.ExecContext(ctx, query, args...)
	db.observe(query, start)
	return res, err
}

// QueryTimed is ExecTimed for row-returning statements.
func (db *DB) QueryTimed(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.QueryContext(ctx, query, args...)
	db.observe(query, start)
	return rows, err
}

// QueryRowTimed is ExecTimed for single-row statements.
func (db *DB) QueryRowTimed(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := db.QueryRowContext(ctx, query, args...)
	db.observe(query, start)
	return row
}

func (db *DB) observe(query string, start time.Time) {
	if d := time.Since(start); d > config.SlowQueryThreshold {
		db.logger.LogSlowQuery(query, d, db.TenantID)
	}
}
