//go:build js && wasm

package jshost

import (
	"errors"
	"syscall/js"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/analytics"
	templates "github.com/AtRiskMedia/consent-banner-go/internal/presentation/templates/banner"
)

type webStorage struct {
	window js.Value
	name   string
}

func (s *webStorage) store() js.Value {
	st := s.window.Get(s.name)
	if st.IsNull() || st.IsUndefined() {
		panic(errors.New(s.name + " is not available"))
	}
	return st
}

func (s *webStorage) GetItem(key string) (value string, ok bool, err error) {
	err = guard(func() {
		v := s.store().Call("getItem", key)
		if v.IsNull() || v.IsUndefined() {
			return
		}
		value, ok = v.String(), true
	})
	return value, ok, err
}

func (s *webStorage) SetItem(key, value string) error {
	return guard(func() { s.store().Call("setItem", key, value) })
}

func (s *webStorage) RemoveItem(key string) error {
	return guard(func() { s.store().Call("removeItem", key) })
}

type cookieJar struct {
	document js.Value
}

func (c cookieJar) SetCookie(raw string) error {
	return guard(func() { c.document.Set("cookie", raw) })
}

type transport struct {
	window js.Value
}

// Beacon queues the payload with navigator.sendBeacon.
func (t transport) Beacon(url string, body []byte) (queued bool) {
	_ = guard(func() {
		nav := t.window.Get("navigator")
		if nav.Get("sendBeacon").Type() != js.TypeFunction {
			return
		}
		blob := t.window.Get("Blob").New([]any{string(body)}, map[string]any{"type": analytics.ContentType})
		queued = nav.Call("sendBeacon", url, blob).Bool()
	})
	return queued
}

// KeepAlive posts with fetch keepalive and discards the outcome.
func (t transport) KeepAlive(url string, body []byte) error {
	return guard(func() {
		promise := t.window.Call("fetch", url, map[string]any{
			"method":    "POST",
			"body":      string(body),
			"keepalive": true,
			"headers":   map[string]any{"Content-Type": analytics.ContentType},
		})
		var swallow js.Func
		swallow = js.FuncOf(func(js.Value, []js.Value) any {
			swallow.Release()
			return nil
		})
		promise.Call("catch", swallow)
	})
}

type surface struct {
	window  js.Value
	host    js.Value
	root    js.Value
	onClick js.Func
	frame   js.Func
	bound   bool
	gone    bool
}

func (s *surface) parts() []js.Value {
	var out []js.Value
	for _, sel := range []string{templates.SelectorBanner, templates.SelectorBackdrop} {
		if el := s.root.Call("querySelector", sel); !el.IsNull() {
			out = append(out, el)
		}
	}
	return out
}

func (s *surface) OnAction(f func(string)) {
	if s.bound {
		return
	}
	s.onClick = js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) == 0 {
			return nil
		}
		var action string
		_ = guard(func() {
			target := args[0].Get("target")
			if target.Get("closest").Type() != js.TypeFunction {
				return
			}
			btn := target.Call("closest", templates.SelectorAction)
			if btn.IsNull() {
				return
			}
			action = btn.Call("getAttribute", templates.AttrAction).String()
		})
		if action != "" {
			f(action)
		}
		return nil
	})
	s.bound = true
	_ = guard(func() { s.root.Call("addEventListener", "click", s.onClick) })
}

// Enter adds the entering class on the next animation frame.
func (s *surface) Enter() {
	s.frame = js.FuncOf(func(js.Value, []js.Value) any {
		s.frame.Release()
		if s.gone {
			return nil
		}
		_ = guard(func() {
			for _, el := range s.parts() {
				el.Get("classList").Call("add", templates.ClassEntering)
			}
		})
		return nil
	})
	if err := guard(func() { s.window.Call("requestAnimationFrame", s.frame) }); err != nil {
		s.frame.Release()
	}
}

func (s *surface) Exit() {
	_ = guard(func() {
		for _, el := range s.parts() {
			cl := el.Get("classList")
			cl.Call("remove", templates.ClassEntering)
			cl.Call("add", templates.ClassLeaving)
		}
	})
}

func (s *surface) Remove() {
	if s.gone {
		return
	}
	s.gone = true
	_ = guard(func() {
		if s.bound {
			s.root.Call("removeEventListener", "click", s.onClick)
		}
		s.host.Call("remove")
	})
	if s.bound {
		s.onClick.Release()
		s.bound = false
	}
}
