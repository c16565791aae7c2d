// Package tenant manages tenant-specific configurations and databases, isolating
// multi-tenancy logic from the rest of the application.
package tenant

import (
	"fmt"
	"sync"

	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
)

// Manager coordinates tenant detection and context creation
type Manager struct {
	dataDir        string
	detector       *Detector
	contexts       map[string]*Context
	contextMutexes sync.Map
	globalMutex    sync.RWMutex
	logger         *logging.ChanneledLogger
}

// NewManager creates and initializes a new tenant manager.
func NewManager(dataDir string, multiTenant bool, logger *logging.ChanneledLogger) (*Manager, error) {
	detector, err := NewDetector(dataDir, multiTenant)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tenant detector: %w", err)
	}
	return &Manager{
		dataDir:  dataDir,
		detector: detector,
		contexts: make(map[string]*Context),
		logger:   logger,
	}, nil
}

// GetContext creates or retrieves a tenant context for the request
func (m *Manager) GetContext(c *gin.Context) (*Context, error) {
	tenantID, err := m.detector.DetectTenant(c)
	if err != nil {
		return nil, fmt.Errorf("tenant detection failed: %w", err)
	}
	return m.ContextFor(tenantID)
}

// ContextFor returns the context of a known tenant, creating it on first use.
func (m *Manager) ContextFor(tenantID string) (*Context, error) {
	if ctx := m.cached(tenantID); ctx != nil {
		return ctx, nil
	}

	if err := m.detector.Known(tenantID); err != nil {
		return nil, err
	}

	mu, _ := m.contextMutexes.LoadOrStore(tenantID, &sync.Mutex{})
	tenantMutex := mu.(*sync.Mutex)
	tenantMutex.Lock()
	defer tenantMutex.Unlock()

	if ctx := m.cached(tenantID); ctx != nil {
		return ctx, nil
	}
	return m.createContext(tenantID)
}

func (m *Manager) cached(tenantID string) *Context {
	m.globalMutex.RLock()
	defer m.globalMutex.RUnlock()
	if ctx, exists := m.contexts[tenantID]; exists && ctx.Database != nil && ctx.Database.Conn != nil {
		return ctx
	}
	return nil
}

func (m *Manager) createContext(tenantID string) (*Context, error) {
	cfg, err := LoadTenantConfig(m.dataDir, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant config: %w", err)
	}

	db, err := NewDatabase(cfg, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	if m.detector.GetTenantStatus(tenantID) != StatusActive {
		if err := m.detector.UpdateTenantStatus(tenantID, StatusActive, db.Backend()); err != nil {
			m.logger.Tenant().Warn("Could not persist tenant status", "tenantId", tenantID, "error", err.Error())
		}
	}

	ctx := &Context{
		TenantID: tenantID,
		Config:   cfg,
		Database: db,
		Status:   StatusActive,
		Logger:   m.logger,
	}

	m.globalMutex.Lock()
	m.contexts[tenantID] = ctx
	m.globalMutex.Unlock()

	m.logger.Tenant().Info("Tenant context created", "tenantId", tenantID, "backend", db.Backend())
	return ctx, nil
}

// PreActivateAllTenants opens every registered tenant during startup and returns the ids
// that failed.
func (m *Manager) PreActivateAllTenants() []string {
	var failed []string
	for _, tenantID := range m.detector.TenantIDs() {
		if _, err := m.ContextFor(tenantID); err != nil {
			m.logger.LogError(logging.ChannelTenant, "pre-activate", err, tenantID, nil)
			failed = append(failed, tenantID)
		}
	}
	return failed
}

// ActiveContexts returns a snapshot of every open tenant context.
func (m *Manager) ActiveContexts() []*Context {
	m.globalMutex.RLock()
	defer m.globalMutex.RUnlock()
	out := make([]*Context, 0, len(m.contexts))
	for _, ctx := range m.contexts {
		out = append(out, ctx)
	}
	return out
}

// GetDetector returns the detector for external access
func (m *Manager) GetDetector() *Detector {
	return m.detector
}

// GetLogger returns the logger for middleware access
func (m *Manager) GetLogger() *logging.ChanneledLogger {
	return m.logger
}

// Close forgets every tenant context and closes the pooled connections.
func (m *Manager) Close() error {
	m.globalMutex.Lock()
	m.contexts = make(map[string]*Context)
	m.globalMutex.Unlock()
	CloseAll()
	return nil
}
