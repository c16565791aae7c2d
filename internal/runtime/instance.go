package runtime

import (
	"log/slog"
	"sync"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/analytics"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/banner"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/consent"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/trigger"
	templates "github.com/AtRiskMedia/consent-banner-go/internal/presentation/templates/banner"
)

// Instance is one mounted widget.
type Instance struct {
	id       string
	host     Host
	registry *Registry
	markup   templates.Markup
	config   banner.Customization
	store    *consent.Store
	emitter  *analytics.Emitter
	machine  *trigger.Machine
	logger   *slog.Logger

	mu      sync.Mutex
	surface Surface
	decided bool
}

func newInstance(id string, c banner.Customization, markup templates.Markup, host Host, registry *Registry,
	store *consent.Store, emitter *analytics.Emitter, logger *slog.Logger,
) *Instance {
	inst := &Instance{
		id:       id,
		host:     host,
		registry: registry,
		markup:   markup,
		config:   c,
		store:    store,
		emitter:  emitter,
		logger:   logger,
	}
	plan := banner.PlanFor(c)
	inst.machine = trigger.New(plan.Trigger, plan.DurationMs, host, host, trigger.Callbacks{
		Show:   inst.show,
		Exit:   inst.exit,
		Remove: inst.remove,
	})
	return inst
}

// ID returns the widget id.
func (i *Instance) ID() string { return i.id }

// State returns the trigger state.
func (i *Instance) State() trigger.State { return i.machine.State() }

// Config returns the normalized customization the instance was mounted with.
func (i *Instance) Config() banner.Customization { return i.config }

// start checks for a prior decision before anything else runs. A suppressed mount
// reports no view event, so view counts only banners a visitor could still answer and
// the accept rate is not diluted by returning visitors.
func (i *Instance) start() (trigger.State, error) {
	if i.store.Get() != nil {
		return i.machine.Start(true)
	}
	i.emitter.Report(i.id, analytics.EventView, nil)
	return i.machine.Start(false)
}

// Act applies a button action. It records the decision and reports it before the exit
// animation starts. Only the first action on a visible banner counts.
func (i *Instance) Act(action string) bool {
	eventType, ok := analytics.DecisionEvent(action)
	if !ok {
		return false
	}

	i.mu.Lock()
	if i.decided || i.machine.State() != trigger.Visible {
		i.mu.Unlock()
		return false
	}
	i.decided = true
	i.mu.Unlock()

	switch action {
	case templates.ActionAccept:
		i.store.Set(consent.ActionAccepted, consent.GrantAll())
	case templates.ActionDecline:
		i.store.Set(consent.ActionDeclined, consent.DeclineAll())
	case templates.ActionSettings:
		i.store.Set(consent.SettingsDecision())
	}
	i.emitter.Report(i.id, eventType, nil)

	i.machine.Dismiss()
	return true
}

// Destroy tears the instance down synchronously and releases its registry slot.
// Calling it again has no effect.
func (i *Instance) Destroy() {
	i.machine.Destroy()
	i.registry.remove(i.id, i)
}

func (i *Instance) show() {
	surface, err := i.host.Attach(i.id, i.markup)
	if err != nil {
		i.logger.Debug("attach failed", "widgetId", i.id, "error", err)
		return
	}
	i.mu.Lock()
	i.surface = surface
	i.mu.Unlock()

	surface.OnAction(func(action string) { i.Act(action) })
	surface.Enter()
}

func (i *Instance) exit() {
	if s := i.currentSurface(); s != nil {
		s.Exit()
	}
}

func (i *Instance) remove() {
	i.mu.Lock()
	s := i.surface
	i.surface = nil
	i.mu.Unlock()
	if s != nil {
		s.Remove()
	}
}

func (i *Instance) currentSurface() Surface {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.surface
}
