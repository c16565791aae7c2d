// Package tenant handles loading and providing tenant-specific configurations.
package tenant

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/security"
)

// DefaultTenantID is used in single-tenant mode.
const DefaultTenantID = "default"

// Status values recorded in the registry.
const (
	StatusInactive = "inactive"
	StatusActive   = "active"
	StatusReserved = "reserved"
)

var ErrUnknownTenant = errors.New("unknown tenant")

// Config represents the structure of a single tenant's env.json
type Config struct {
	TenantID          string   `json:"tenantId"`
	Domains           []string `json:"domains,omitempty"`
	TursoDatabase     string   `json:"TURSO_DATABASE_URL,omitempty"`
	TursoToken        string   `json:"TURSO_AUTH_TOKEN,omitempty"`
	TursoEnabled      bool     `json:"TURSO_ENABLED"`
	JWTSecret         string   `json:"JWT_SECRET"`
	AdminPasswordHash string   `json:"ADMIN_PASSWORD_HASH,omitempty"`
	SQLitePath        string   `json:"-"`
}

// UseTurso reports whether the tenant is configured for a remote libsql database.
func (c *Config) UseTurso() bool {
	return c.TursoEnabled && c.TursoDatabase != "" && c.TursoToken != ""
}

func configDir(dataDir, tenantID string) string {
	return filepath.Join(dataDir, "config", tenantID)
}

func configPath(dataDir, tenantID string) string {
	return filepath.Join(configDir(dataDir, tenantID), "env.json")
}

func registryPath(dataDir string) string {
	return filepath.Join(dataDir, "config", "tenants.json")
}

// LoadTenantConfig loads configuration for a specific tenant from its env.json file. The
// default tenant gets a fresh env.json with a generated JWT secret on first use.
func LoadTenantConfig(dataDir, tenantID string) (*Config, error) {
	path := configPath(dataDir, tenantID)
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if tenantID != DefaultTenantID {
			return nil, fmt.Errorf("%w: no config at %s", ErrUnknownTenant, path)
		}
		return initTenantConfig(dataDir, tenantID)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read tenant config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse tenant config json: %w", err)
	}
	cfg.TenantID = tenantID
	cfg.SQLitePath = filepath.Join(dataDir, "db", tenantID, "consent.db")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("tenant %s has no JWT_SECRET", tenantID)
	}
	return &cfg, nil
}

func initTenantConfig(dataDir, tenantID string) (*Config, error) {
	secret, err := security.GenerateSecureKey(64)
	if err != nil {
		return nil, err
	}
	cfg := &Config{TenantID: tenantID, JWTSecret: secret}
	if err := SaveTenantConfig(dataDir, cfg); err != nil {
		return nil, err
	}
	cfg.SQLitePath = filepath.Join(dataDir, "db", tenantID, "consent.db")
	return cfg, nil
}

// SaveTenantConfig writes env.json for cfg.TenantID.
func SaveTenantConfig(dataDir string, cfg *Config) error {
	if err := os.MkdirAll(configDir(dataDir, cfg.TenantID), 0o755); err != nil {
		return fmt.Errorf("failed to create tenant config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tenant config: %w", err)
	}
	if err := os.WriteFile(configPath(dataDir, cfg.TenantID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write tenant config: %w", err)
	}
	return nil
}

// TenantRegistry holds the global tenant configuration
type TenantRegistry struct {
	Tenants map[string]TenantInfo `json:"tenants"`
}

// TenantInfo holds tenant metadata
type TenantInfo struct {
	TenantID     string   `json:"tenantId"`
	Domains      []string `json:"domains"`
	Status       string   `json:"status"`
	DatabaseType string   `json:"databaseType"`
}

// LoadTenantRegistry loads the global tenant registry. A missing file yields a registry
// holding only the default tenant.
func LoadTenantRegistry(dataDir string) (*TenantRegistry, error) {
	data, err := os.ReadFile(registryPath(dataDir))
	if errors.Is(err, os.ErrNotExist) {
		return &TenantRegistry{Tenants: map[string]TenantInfo{
			DefaultTenantID: {TenantID: DefaultTenantID, Domains: []string{"*"}, Status: StatusInactive},
		}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tenant registry: %w", err)
	}

	var registry TenantRegistry
	if err := json.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse tenant registry: %w", err)
	}
	if registry.Tenants == nil {
		registry.Tenants = make(map[string]TenantInfo)
	}
	return &registry, nil
}

// SaveTenantRegistry writes tenants.json.
func SaveTenantRegistry(dataDir string, registry *TenantRegistry) error {
	path := registryPath(dataDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}
	data, err := json.MarshalIndent(registry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	return nil
}
