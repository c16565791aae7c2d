package tenant

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// TenantHeader carries the tenant id in multi-tenant mode.
const TenantHeader = "X-Tenant-ID"

var tenantIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// Detector handles tenant detection from HTTP requests
type Detector struct {
	dataDir     string
	multiTenant bool

	mu       sync.RWMutex
	registry *TenantRegistry
}

// NewDetector creates a new tenant detector
func NewDetector(dataDir string, multiTenant bool) (*Detector, error) {
	registry, err := LoadTenantRegistry(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant registry: %w", err)
	}
	return &Detector{dataDir: dataDir, multiTenant: multiTenant, registry: registry}, nil
}

// DetectTenant extracts the tenant id from the request. In multi-tenant mode the header is
// required, with a tenantId query parameter as fallback for websocket upgrades and script
// loads that cannot set headers.
func (d *Detector) DetectTenant(c *gin.Context) (string, error) {
	if !d.multiTenant {
		return DefaultTenantID, nil
	}

	tenantID := strings.TrimSpace(c.GetHeader(TenantHeader))
	if tenantID == "" {
		tenantID = strings.TrimSpace(c.Query("tenantId"))
	}
	if tenantID == "" {
		return "", fmt.Errorf("missing %s header in multi-tenant mode", TenantHeader)
	}
	if err := d.Known(tenantID); err != nil {
		return "", err
	}
	return tenantID, nil
}

// Known checks the registry, auto-registering tenants that have a config directory.
func (d *Detector) Known(tenantID string) error {
	if !tenantIDPattern.MatchString(tenantID) {
		return fmt.Errorf("%w: %q", ErrUnknownTenant, tenantID)
	}

	d.mu.RLock()
	_, exists := d.registry.Tenants[tenantID]
	d.mu.RUnlock()
	if exists {
		return nil
	}

	if tenantID != DefaultTenantID {
		if _, err := os.Stat(configDir(d.dataDir, tenantID)); err != nil {
			return fmt.Errorf("%w: %s", ErrUnknownTenant, tenantID)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.registry.Tenants[tenantID]; !exists {
		d.registry.Tenants[tenantID] = TenantInfo{TenantID: tenantID, Domains: []string{"*"}, Status: StatusInactive}
	}
	return nil
}

// ValidateDomain checks if the request domain is allowed for the tenant
func (d *Detector) ValidateDomain(tenantID, domain string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	info, exists := d.registry.Tenants[tenantID]
	if !exists {
		return false
	}
	for _, allowed := range info.Domains {
		if allowed == "*" || strings.EqualFold(allowed, domain) {
			return true
		}
	}
	return false
}

// GetTenantStatus returns the current status of a tenant
func (d *Detector) GetTenantStatus(tenantID string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if info, exists := d.registry.Tenants[tenantID]; exists {
		return info.Status
	}
	return "unknown"
}

// UpdateTenantStatus updates the cached registry status and persists it.
func (d *Detector) UpdateTenantStatus(tenantID, status, dbType string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	info, exists := d.registry.Tenants[tenantID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownTenant, tenantID)
	}
	info.Status = status
	if dbType != "" {
		info.DatabaseType = dbType
	}
	d.registry.Tenants[tenantID] = info
	return SaveTenantRegistry(d.dataDir, d.registry)
}

// TenantIDs lists every registered tenant.
func (d *Detector) TenantIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.registry.Tenants))
	for id := range d.registry.Tenants {
		ids = append(ids, id)
	}
	return ids
}
