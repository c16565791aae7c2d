//go:build js && wasm

// Command consent-runtime is the WebAssembly build of the hosted banner runtime. The
// /embed.js loader queues one entry per script tag on window.ConsentBannerQueue; this
// program drains the queue and then mounts later entries as they are pushed.
package main

import (
	"context"
	"log/slog"
	"os"
	"syscall/js"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/runtime"
	"github.com/AtRiskMedia/consent-banner-go/internal/runtime/jshost"
)

const (
	queueGlobal = "ConsentBannerQueue"
	apiGlobal   = "ConsentBanner"
)

type entry struct {
	widgetID string
	tenantID string
	apiBase  string
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	host := jshost.New()
	registry := runtime.NewRegistry()
	boots := map[string]*runtime.Bootstrap{}

	bootFor := func(e entry) *runtime.Bootstrap {
		key := e.apiBase + "|" + e.tenantID
		if b, ok := boots[key]; ok {
			return b
		}
		f := runtime.NewHTTPFetcher(e.apiBase, e.tenantID)
		b := runtime.NewBootstrap(host, f, registry, runtime.Options{EventsURL: f.EventsURL(), Logger: logger})
		boots[key] = b
		return b
	}

	mount := func(e entry) {
		if e.widgetID == "" {
			return
		}
		b := bootFor(e)
		go func() {
			defer func() { _ = recover() }()
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if _, err := b.Load(ctx, e.widgetID); err != nil {
				logger.Debug("widget not mounted", "widgetId", e.widgetID, "error", err)
			}
		}()
	}

	window := js.Global()
	queue := window.Get(queueGlobal)
	if queue.Type() == js.TypeObject && queue.Get("length").Type() == js.TypeNumber {
		for i := 0; i < queue.Length(); i++ {
			mount(readEntry(queue.Index(i)))
		}
	}

	push := js.FuncOf(func(_ js.Value, args []js.Value) any {
		for _, a := range args {
			mount(readEntry(a))
		}
		return nil
	})
	destroy := js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) == 0 {
			registry.DestroyAll()
			return nil
		}
		if inst, ok := registry.Get(args[0].String()); ok {
			inst.Destroy()
		}
		return nil
	})

	window.Set(queueGlobal, map[string]any{"push": push})
	window.Set(apiGlobal, map[string]any{"destroy": destroy})

	select {}
}

func readEntry(v js.Value) entry {
	str := func(name string) string {
		f := v.Get(name)
		if f.Type() != js.TypeString {
			return ""
		}
		return f.String()
	}
	if v.Type() != js.TypeObject {
		return entry{}
	}
	return entry{widgetID: str("widgetId"), tenantID: str("tenantId"), apiBase: str("apiBase")}
}
