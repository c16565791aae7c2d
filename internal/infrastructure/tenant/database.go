package tenant

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	schema "github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/database"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/consent-banner-go/pkg/config"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

var (
	connectionPools = make(map[string]*sql.DB)
	poolMutex       = &sync.RWMutex{}
)

// Database is a tenant's migrated connection.
type Database struct {
	Conn     *sql.DB
	TenantID string
	UseTurso bool
}

// NewDatabase opens (or reuses) the tenant's connection and applies migrations. Turso is
// used when the tenant enables it; otherwise a local SQLite file under the data dir.
func NewDatabase(cfg *Config, logger *logging.ChanneledLogger) (*Database, error) {
	poolKey := getPoolKey(cfg)

	poolMutex.Lock()
	defer poolMutex.Unlock()

	if pooled, exists := connectionPools[poolKey]; exists {
		if err := pooled.Ping(); err == nil {
			return &Database{Conn: pooled, TenantID: cfg.TenantID, UseTurso: cfg.UseTurso()}, nil
		}
		pooled.Close()
		delete(connectionPools, poolKey)
	}

	start := time.Now()
	var (
		conn *sql.DB
		err  error
	)
	if cfg.UseTurso() {
		conn, err = sql.Open("libsql", cfg.TursoDatabase+"?authToken="+cfg.TursoToken)
		if err != nil {
			return nil, fmt.Errorf("tenant %s degraded: turso open failed: %w", cfg.TenantID, err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		conn, err = sql.Open("sqlite3", cfg.SQLitePath+"?_busy_timeout=5000&_journal_mode=WAL")
		if err != nil {
			return nil, fmt.Errorf("sqlite connection failed: %w", err)
		}
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tenant %s database ping failed: %w", cfg.TenantID, err)
	}

	conn.SetMaxOpenConns(config.DBMaxOpenConns)
	conn.SetMaxIdleConns(config.DBMaxIdleConns)
	conn.SetConnMaxLifetime(time.Duration(config.DBConnMaxLifetimeMinutes) * time.Minute)
	conn.SetConnMaxIdleTime(time.Duration(config.DBConnMaxIdleMinutes) * time.Minute)

	if err := schema.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tenant %s: %w", cfg.TenantID, err)
	}

	connectionPools[poolKey] = conn
	db := &Database{Conn: conn, TenantID: cfg.TenantID, UseTurso: cfg.UseTurso()}
	logger.Database().Info("Tenant database ready",
		"tenantId", cfg.TenantID, "backend", db.Backend(), "duration", time.Since(start))
	return db, nil
}

func getPoolKey(cfg *Config) string {
	if cfg.UseTurso() {
		return "turso:" + cfg.TenantID
	}
	return "sqlite:" + cfg.SQLitePath
}

// Backend names the driver in use.
func (db *Database) Backend() string {
	if db.UseTurso {
		return "turso"
	}
	return "sqlite3"
}

// Ping checks connectivity for health reporting.
func (db *Database) Ping() error {
	if db == nil || db.Conn == nil {
		return fmt.Errorf("no database connection")
	}
	return db.Conn.Ping()
}

// CleanupStaleConnections drops pooled connections that no longer answer a ping and
// returns how many were removed.
func CleanupStaleConnections() int {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	removed := 0
	for key, conn := range connectionPools {
		if err := conn.Ping(); err != nil {
			conn.Close()
			delete(connectionPools, key)
			removed++
		}
	}
	return removed
}

// CloseAll closes every pooled connection.
func CloseAll() {
	poolMutex.Lock()
	defer poolMutex.Unlock()
	for key, conn := range connectionPools {
		conn.Close()
		delete(connectionPools, key)
	}
}
