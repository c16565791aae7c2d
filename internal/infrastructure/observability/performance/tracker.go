package performance

import (
	"sort"
	"sync"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
)

// OperationStats aggregates every completed marker of one operation.
type OperationStats struct {
	Operation string        `json:"operation"`
	Count     int64         `json:"count"`
	Failures  int64         `json:"failures"`
	Total     time.Duration `json:"total"`
	Max       time.Duration `json:"max"`
}

// Average is the mean duration, zero before the first sample.
func (s OperationStats) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Tracker collects markers and warns about slow operations.
type Tracker struct {
	mu        sync.Mutex
	ops       map[string]*OperationStats
	threshold time.Duration
	logger    *logging.ChanneledLogger
}

// NewTracker creates a tracker that logs operations slower than threshold.
func NewTracker(logger *logging.ChanneledLogger, threshold time.Duration) *Tracker {
	return &Tracker{ops: make(map[string]*OperationStats), threshold: threshold, logger: logger}
}

// StartOperation begins timing an operation for a tenant.
func (t *Tracker) StartOperation(operation, tenantID string) *Marker {
	return &Marker{Operation: operation, TenantID: tenantID, StartTime: time.Now(), tracker: t}
}

func (t *Tracker) record(m *Marker) {
	t.mu.Lock()
	s, ok := t.ops[m.Operation]
	if !ok {
		s = &OperationStats{Operation: m.Operation}
		t.ops[m.Operation] = s
	}
	s.Count++
	if !m.Success {
		s.Failures++
	}
	s.Total += m.Duration
	if m.Duration > s.Max {
		s.Max = m.Duration
	}
	t.mu.Unlock()

	if t.threshold > 0 && m.Duration > t.threshold && t.logger != nil {
		t.logger.SlowQuery().Warn("Slow operation",
			"operation", m.Operation, "tenantId", m.TenantID, "duration", m.Duration, "success", m.Success)
	}
}

// Snapshot returns every operation's stats sorted by name.
func (t *Tracker) Snapshot() []OperationStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]OperationStats, 0, len(t.ops))
	for _, s := range t.ops {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}
