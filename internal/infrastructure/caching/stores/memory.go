// Package stores provides concrete cache store implementations
package stores

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/widgets"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
)

type entry struct {
	embed   *widgets.EmbedResponse
	expires time.Time
}

type tenantCache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// MemoryWidgetStore implements WidgetCache in process with tenant isolation.
type MemoryWidgetStore struct {
	tenantCaches map[string]*tenantCache
	mu           sync.RWMutex
	ttl          time.Duration
	now          func() time.Time
	logger       *logging.ChanneledLogger
	hits, misses atomic.Int64
}

// NewMemoryWidgetStore creates a store whose entries live for ttl.
func NewMemoryWidgetStore(ttl time.Duration, logger *logging.ChanneledLogger) *MemoryWidgetStore {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	logger.Cache().Info("Initializing in-memory widget cache", "ttl", ttl)
	return &MemoryWidgetStore{
		tenantCaches: make(map[string]*tenantCache),
		ttl:          ttl,
		now:          time.Now,
		logger:       logger,
	}
}

// SetClock replaces the time source. Used by tests.
func (s *MemoryWidgetStore) SetClock(now func() time.Time) {
	s.now = now
}

func (s *MemoryWidgetStore) tenant(tenantID string, create bool) *tenantCache {
	s.mu.RLock()
	tc := s.tenantCaches[tenantID]
	s.mu.RUnlock()
	if tc != nil || !create {
		return tc
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tc = s.tenantCaches[tenantID]; tc == nil {
		tc = &tenantCache{entries: make(map[string]entry)}
		s.tenantCaches[tenantID] = tc
	}
	return tc
}

func (s *MemoryWidgetStore) GetEmbed(_ context.Context, tenantID, widgetID string) (*widgets.EmbedResponse, bool) {
	tc := s.tenant(tenantID, false)
	if tc == nil {
		s.miss(tenantID, widgetID)
		return nil, false
	}
	tc.mu.RLock()
	e, ok := tc.entries[widgetID]
	tc.mu.RUnlock()
	if !ok || !s.now().Before(e.expires) {
		s.miss(tenantID, widgetID)
		return nil, false
	}
	s.hits.Add(1)
	s.logger.LogCacheOperation("get", widgetID, true, tenantID)
	return e.embed, true
}

func (s *MemoryWidgetStore) miss(tenantID, widgetID string) {
	s.misses.Add(1)
	s.logger.LogCacheOperation("get", widgetID, false, tenantID)
}

func (s *MemoryWidgetStore) SetEmbed(_ context.Context, tenantID, widgetID string, embed *widgets.EmbedResponse) {
	tc := s.tenant(tenantID, true)
	tc.mu.Lock()
	tc.entries[widgetID] = entry{embed: embed, expires: s.now().Add(s.ttl)}
	tc.mu.Unlock()
	s.logger.LogCacheOperation("set", widgetID, false, tenantID)
}

func (s *MemoryWidgetStore) InvalidateEmbed(_ context.Context, tenantID, widgetID string) {
	if tc := s.tenant(tenantID, false); tc != nil {
		tc.mu.Lock()
		delete(tc.entries, widgetID)
		tc.mu.Unlock()
	}
	s.logger.LogCacheOperation("invalidate", widgetID, false, tenantID)
}

// Sweep evicts expired entries and returns how many were removed.
func (s *MemoryWidgetStore) Sweep() int {
	now := s.now()
	s.mu.RLock()
	caches := make([]*tenantCache, 0, len(s.tenantCaches))
	for _, tc := range s.tenantCaches {
		caches = append(caches, tc)
	}
	s.mu.RUnlock()

	removed := 0
	for _, tc := range caches {
		tc.mu.Lock()
		for id, e := range tc.entries {
			if !now.Before(e.expires) {
				delete(tc.entries, id)
				removed++
			}
		}
		tc.mu.Unlock()
	}
	return removed
}

func (s *MemoryWidgetStore) Stats() interfaces.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, tc := range s.tenantCaches {
		tc.mu.RLock()
		n += len(tc.entries)
		tc.mu.RUnlock()
	}
	return interfaces.Stats{Backend: "memory", Hits: s.hits.Load(), Misses: s.misses.Load(), Entries: n}
}
