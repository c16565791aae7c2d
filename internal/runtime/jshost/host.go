//go:build js && wasm

// Package jshost implements runtime.Host on top of the browser DOM. Every call into
// JavaScript is guarded so an exception thrown by the page never escapes.
package jshost

import (
	"errors"
	"fmt"
	"syscall/js"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/analytics"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/consent"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/trigger"
	templates "github.com/AtRiskMedia/consent-banner-go/internal/presentation/templates/banner"
	"github.com/AtRiskMedia/consent-banner-go/internal/runtime"
)

var errNoDocument = errors.New("document is not available")

// Host is the browser implementation of runtime.Host.
type Host struct {
	window   js.Value
	document js.Value
	local    *webStorage
	session  *webStorage
}

// New binds a host to the global window.
func New() *Host {
	w := js.Global()
	return &Host{
		window:   w,
		document: w.Get("document"),
		local:    &webStorage{window: w, name: "localStorage"},
		session:  &webStorage{window: w, name: "sessionStorage"},
	}
}

// AfterFunc schedules f with setTimeout.
func (h *Host) AfterFunc(d time.Duration, f func()) func() {
	var (
		cb   js.Func
		id   js.Value
		done bool
	)
	cb = js.FuncOf(func(js.Value, []js.Value) any {
		if done {
			return nil
		}
		done = true
		cb.Release()
		f()
		return nil
	})
	if err := guard(func() { id = h.window.Call("setTimeout", cb, d.Milliseconds()) }); err != nil {
		cb.Release()
		return func() {}
	}
	return func() {
		if done {
			return
		}
		done = true
		_ = guard(func() { h.window.Call("clearTimeout", id) })
		cb.Release()
	}
}

// OnScroll attaches a passive scroll listener to window.
func (h *Host) OnScroll(f func(trigger.ScrollMetrics)) func() {
	var (
		cb      js.Func
		removed bool
	)
	opts := js.ValueOf(map[string]any{"passive": true})
	cb = js.FuncOf(func(js.Value, []js.Value) any {
		if removed {
			return nil
		}
		var m trigger.ScrollMetrics
		if err := guard(func() { m = h.scrollMetrics() }); err != nil {
			return nil
		}
		f(m)
		return nil
	})
	if err := guard(func() { h.window.Call("addEventListener", "scroll", cb, opts) }); err != nil {
		cb.Release()
		return func() {}
	}
	return func() {
		if removed {
			return
		}
		removed = true
		_ = guard(func() { h.window.Call("removeEventListener", "scroll", cb, opts) })
		cb.Release()
	}
}

// Metrics reads the current scroll geometry. A page without a document reports zero
// height, which counts as fully scrolled.
func (h *Host) Metrics() trigger.ScrollMetrics {
	var m trigger.ScrollMetrics
	_ = guard(func() { m = h.scrollMetrics() })
	return m
}

func (h *Host) scrollMetrics() trigger.ScrollMetrics {
	el := h.document.Get("documentElement")
	top := h.window.Get("pageYOffset").Float()
	if t := el.Get("scrollTop").Float(); t > top {
		top = t
	}
	return trigger.ScrollMetrics{
		ScrollTop:    top,
		ScrollHeight: el.Get("scrollHeight").Float(),
		ClientHeight: el.Get("clientHeight").Float(),
	}
}

func (h *Host) LocalStorage() consent.Storage   { return h.local }
func (h *Host) SessionStorage() consent.Storage { return h.session }
func (h *Host) Cookies() consent.CookieJar      { return cookieJar{document: h.document} }
func (h *Host) Transport() analytics.Transport  { return transport{window: h.window} }
func (h *Host) Now() time.Time                  { return time.Now() }

// Page reads the current location, referrer and user agent.
func (h *Host) Page() analytics.PageInfo {
	var p analytics.PageInfo
	_ = guard(func() {
		p.URL = h.window.Get("location").Get("href").String()
		p.Referrer = h.document.Get("referrer").String()
		p.UserAgent = h.window.Get("navigator").Get("userAgent").String()
	})
	return p
}

// Attach mounts the markup inside a shadow root on a fresh element appended to body.
// Browsers without shadow DOM get a plain container.
func (h *Host) Attach(widgetID string, m templates.Markup) (s runtime.Surface, err error) {
	err = guard(func() {
		body := h.document.Get("body")
		if body.IsNull() || body.IsUndefined() {
			panic(errNoDocument)
		}

		el := h.document.Call("createElement", "div")
		el.Call("setAttribute", templates.AttrHost, widgetID)

		root := el
		if fn := el.Get("attachShadow"); fn.Type() == js.TypeFunction {
			root = el.Call("attachShadow", map[string]any{"mode": "open"})
		}

		style := h.document.Call("createElement", "style")
		style.Set("textContent", m.CSS)
		root.Call("appendChild", style)

		container := h.document.Call("createElement", "div")
		container.Set("innerHTML", m.HTML)
		root.Call("appendChild", container)

		body.Call("appendChild", el)
		s = &surface{window: h.window, host: el, root: root}
	})
	if err != nil {
		return nil, fmt.Errorf("attach widget %s: %w", widgetID, err)
	}
	return s, nil
}

// guard converts a JavaScript exception into an error.
func guard(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = v
			default:
				err = fmt.Errorf("%v", v)
			}
		}
	}()
	f()
	return nil
}
