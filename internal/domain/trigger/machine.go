// Package trigger decides when a banner becomes visible and drives it through
// dismissal. It owns at most one pending timer or scroll listener per instance.
package trigger

import (
	"fmt"
	"sync"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/banner"
)

// State is the lifecycle position of one banner instance.
type State int

const (
	Idle State = iota
	Suppressed
	Armed
	Visible
	Dismissing
	Dismissed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Suppressed:
		return "suppressed"
	case Armed:
		return "armed"
	case Visible:
		return "visible"
	case Dismissing:
		return "dismissing"
	case Dismissed:
		return "dismissed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Suppressed || s == Dismissed
}

// Timers schedules a callback. The returned cancel must be safe to call more than once.
type Timers interface {
	AfterFunc(d time.Duration, f func()) (cancel func())
}

// ScrollMetrics is a snapshot of the document scroll geometry.
type ScrollMetrics struct {
	ScrollTop    float64
	ScrollHeight float64
	ClientHeight float64
}

// Percent returns how far the document has been scrolled.
func (m ScrollMetrics) Percent() float64 {
	return banner.ScrollPercent(m.ScrollTop, m.ScrollHeight, m.ClientHeight)
}

// ScrollSource registers a passive scroll listener and reports the current geometry.
// The returned remove must be safe to call from inside the listener.
type ScrollSource interface {
	OnScroll(f func(ScrollMetrics)) (remove func())
	Metrics() ScrollMetrics
}

// Callbacks are the effects the machine drives. Each is invoked without the machine
// lock held and never after Destroy has returned.
type Callbacks struct {
	// Show attaches the banner and starts the enter animation.
	Show func()
	// Exit starts the exit animation.
	Exit func()
	// Remove detaches the banner subtree.
	Remove func()
}

// Machine is the per-instance trigger state machine.
type Machine struct {
	mu sync.Mutex

	state      State
	plan       banner.TriggerPlan
	exitDelay  time.Duration
	timers     Timers
	scroll     ScrollSource
	cb         Callbacks
	cancel     func()
	generation uint64
	mounted    bool
}

// New creates a machine in the Idle state. durationMs is the exit animation length.
func New(plan banner.TriggerPlan, durationMs int, timers Timers, scroll ScrollSource, cb Callbacks) *Machine {
	return &Machine{
		state:     Idle,
		plan:      plan,
		exitDelay: time.Duration(durationMs) * time.Millisecond,
		timers:    timers,
		scroll:    scroll,
		cb:        cb,
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start runs the arming path. A prior decision moves the machine straight to the
// terminal Suppressed state without attaching anything.
func (m *Machine) Start(decided bool) (State, error) {
	m.mu.Lock()
	if m.state != Idle {
		s := m.state
		m.mu.Unlock()
		return s, nil
	}

	if decided {
		m.state = Suppressed
		m.mu.Unlock()
		return Suppressed, nil
	}

	switch m.plan.Kind {
	case banner.TriggerImmediate:
		m.state = Visible
		m.mounted = true
		m.mu.Unlock()
		m.call(m.cb.Show)
		return Visible, nil

	case banner.TriggerTime:
		if m.timers == nil {
			m.mu.Unlock()
			return Idle, fmt.Errorf("time trigger requires a timer source")
		}
		gen := m.bump()
		m.state = Armed
		m.mu.Unlock()

		cancel := m.timers.AfterFunc(time.Duration(m.plan.DelayMs)*time.Millisecond, func() {
			m.reveal(gen)
		})
		m.keepCancel(gen, cancel)
		return Armed, nil

	case banner.TriggerScroll:
		if m.scroll == nil {
			m.mu.Unlock()
			return Idle, fmt.Errorf("scroll trigger requires a scroll source")
		}
		gen := m.bump()
		m.state = Armed
		m.mu.Unlock()

		threshold := m.plan.ScrollPercent
		remove := m.scroll.OnScroll(func(sm ScrollMetrics) {
			if sm.Percent() >= threshold {
				m.reveal(gen)
			}
		})
		m.keepCancel(gen, remove)

		// A short page or a restored position never emits a scroll event.
		if m.scroll.Metrics().Percent() >= threshold {
			m.reveal(gen)
			return m.State(), nil
		}
		return Armed, nil

	default:
		m.mu.Unlock()
		return Idle, fmt.Errorf("%w: %q", banner.ErrUnsupportedTrigger, m.plan.Kind)
	}
}

// Dismiss moves a visible banner to Dismissing and schedules removal after the exit
// animation. It reports whether the transition happened.
func (m *Machine) Dismiss() bool {
	m.mu.Lock()
	if m.state != Visible {
		m.mu.Unlock()
		return false
	}
	gen := m.bump()
	m.state = Dismissing
	m.mu.Unlock()

	m.call(m.cb.Exit)

	if m.timers == nil {
		m.finish(gen)
		return true
	}
	cancel := m.timers.AfterFunc(m.exitDelay, func() { m.finish(gen) })
	m.keepCancel(gen, cancel)
	return true
}

// Destroy cancels any pending timer or listener and removes a mounted subtree without
// waiting for animation. It is idempotent.
func (m *Machine) Destroy() {
	m.mu.Lock()
	if m.state.Terminal() {
		m.mu.Unlock()
		return
	}
	m.bump()
	cancel := m.cancel
	m.cancel = nil
	mounted := m.mounted
	m.mounted = false
	m.state = Dismissed
	m.mu.Unlock()

	if cancel != nil {
		m.call(cancel)
	}
	if mounted {
		m.call(m.cb.Remove)
	}
}

func (m *Machine) reveal(gen uint64) {
	m.mu.Lock()
	if m.generation != gen || m.state != Armed {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.cancel = nil
	m.state = Visible
	m.mounted = true
	m.mu.Unlock()

	if cancel != nil {
		m.call(cancel)
	}
	m.call(m.cb.Show)
}

func (m *Machine) finish(gen uint64) {
	m.mu.Lock()
	if m.generation != gen || m.state != Dismissing {
		m.mu.Unlock()
		return
	}
	m.cancel = nil
	m.state = Dismissed
	mounted := m.mounted
	m.mounted = false
	m.mu.Unlock()

	if mounted {
		m.call(m.cb.Remove)
	}
}

// keepCancel stores cancel for the current generation. When the generation already
// moved on, the timer or listener is released immediately.
func (m *Machine) keepCancel(gen uint64, cancel func()) {
	if cancel == nil {
		return
	}
	m.mu.Lock()
	if m.generation == gen && (m.state == Armed || m.state == Dismissing) {
		m.cancel = cancel
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.call(cancel)
}

// bump must be called with mu held.
func (m *Machine) bump() uint64 {
	m.generation++
	return m.generation
}

func (m *Machine) call(f func()) {
	if f == nil {
		return
	}
	defer func() { _ = recover() }()
	f()
}
