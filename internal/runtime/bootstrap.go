package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/analytics"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/banner"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/consent"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/widgets"
	templates "github.com/AtRiskMedia/consent-banner-go/internal/presentation/templates/banner"
)

// ConfigFetcher resolves a widget's public configuration.
type ConfigFetcher interface {
	Fetch(ctx context.Context, widgetID string) (*widgets.EmbedResponse, error)
}

// Options configures a Bootstrap.
type Options struct {
	// EventsURL receives analytics events. Empty disables reporting.
	EventsURL string
	Logger    *slog.Logger
}

// Bootstrap is created once per page. It owns the registry and mounts one instance per
// widget id.
type Bootstrap struct {
	host      Host
	fetcher   ConfigFetcher
	registry  *Registry
	eventsURL string
	logger    *slog.Logger

	identityOnce sync.Once
	identity     analytics.Identity
}

// NewBootstrap creates a bootstrap. A nil registry gets a fresh one.
func NewBootstrap(host Host, fetcher ConfigFetcher, registry *Registry, opts Options) *Bootstrap {
	if registry == nil {
		registry = NewRegistry()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bootstrap{
		host:      host,
		fetcher:   fetcher,
		registry:  registry,
		eventsURL: opts.EventsURL,
		logger:    logger,
	}
}

// Registry returns the instance registry.
func (b *Bootstrap) Registry() *Registry { return b.registry }

// Load fetches the configuration for widgetID and mounts it. Any failure leaves the
// page untouched; the error is returned for logging only.
func (b *Bootstrap) Load(ctx context.Context, widgetID string) (*Instance, error) {
	if inst, ok := b.registry.Get(widgetID); ok {
		return inst, nil
	}
	if b.fetcher == nil {
		return nil, fmt.Errorf("no config fetcher")
	}

	resp, err := b.fetcher.Fetch(ctx, widgetID)
	if err != nil {
		b.logger.Debug("config fetch failed", "widgetId", widgetID, "error", err)
		return nil, fmt.Errorf("fetch widget %s: %w", widgetID, err)
	}
	return b.Mount(widgetID, resp.Widget.Type, resp.Widget.Config)
}

// Mount mounts a widget from an already resolved configuration. Mounting an id that is
// already registered returns the existing instance.
func (b *Bootstrap) Mount(widgetID string, kind widgets.Kind, c banner.Customization) (inst *Instance, err error) {
	defer func() {
		if r := recover(); r != nil {
			inst, err = nil, fmt.Errorf("mount widget %s: panic: %v", widgetID, r)
		}
	}()

	if existing, ok := b.registry.Get(widgetID); ok {
		return existing, nil
	}
	if err := kind.Mountable(); err != nil {
		return nil, err
	}

	resolved, err := banner.Resolve(c)
	if err != nil {
		return nil, fmt.Errorf("widget %s: %w", widgetID, err)
	}

	markup, err := templates.Render(widgetID, resolved)
	if err != nil {
		return nil, err
	}

	store := consent.NewStore(b.host.LocalStorage(), b.host.Cookies(), consent.Live, widgetID,
		resolved.Consent.HideAfterDays, b.host.Now)
	emitter := analytics.NewEmitter(b.eventsURL, b.host.Transport(), b.loadIdentity(), b.host.Page())

	candidate := newInstance(widgetID, resolved, markup, b.host, b.registry, store, emitter, b.logger)
	inst, added := b.registry.add(candidate)
	if !added {
		return inst, nil
	}

	state, err := inst.start()
	if err != nil {
		inst.Destroy()
		return nil, fmt.Errorf("start widget %s: %w", widgetID, err)
	}
	b.logger.Debug("widget mounted", "widgetId", widgetID, "state", state.String())
	return inst, nil
}

func (b *Bootstrap) loadIdentity() analytics.Identity {
	b.identityOnce.Do(func() {
		b.identity = analytics.LoadIdentity(b.host.LocalStorage(), b.host.SessionStorage())
	})
	return b.identity
}
