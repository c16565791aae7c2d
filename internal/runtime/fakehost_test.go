package runtime

import (
	"sort"
	"sync"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/analytics"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/consent"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/trigger"
	templates "github.com/AtRiskMedia/consent-banner-go/internal/presentation/templates/banner"
)

type fakeTimer struct {
	at        time.Duration
	f         func()
	cancelled bool
}

type fakeStorage struct {
	items map[string]string
}

func (s *fakeStorage) GetItem(k string) (string, bool, error) { v, ok := s.items[k]; return v, ok, nil }
func (s *fakeStorage) SetItem(k, v string) error              { s.items[k] = v; return nil }
func (s *fakeStorage) RemoveItem(k string) error              { delete(s.items, k); return nil }

type fakeCookies struct{ raw []string }

func (c *fakeCookies) SetCookie(raw string) error { c.raw = append(c.raw, raw); return nil }

type fakeTransport struct {
	mu     sync.Mutex
	bodies [][]byte
}

func (t *fakeTransport) Beacon(_ string, body []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bodies = append(t.bodies, body)
	return true
}

func (t *fakeTransport) KeepAlive(string, []byte) error { return nil }

type fakeSurface struct {
	widgetID string
	markup   templates.Markup
	handler  func(string)
	entered  bool
	exited   bool
	removed  bool
}

func (s *fakeSurface) OnAction(f func(string)) { s.handler = f }
func (s *fakeSurface) Enter()                  { s.entered = true }
func (s *fakeSurface) Exit()                   { s.exited = true }
func (s *fakeSurface) Remove()                 { s.removed = true }

func (s *fakeSurface) Click(action string) { s.handler(action) }

// fakeHost is a deterministic page: timers fire only on Advance and scroll events are
// delivered by Scroll.
type fakeHost struct {
	start   time.Time
	elapsed time.Duration
	timers  []*fakeTimer

	scrollListeners map[int]func(trigger.ScrollMetrics)
	nextListener    int
	scroll          trigger.ScrollMetrics

	local     *fakeStorage
	session   *fakeStorage
	cookies   *fakeCookies
	transport *fakeTransport
	surfaces  []*fakeSurface
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		start:           time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		scrollListeners: map[int]func(trigger.ScrollMetrics){},
		scroll:          trigger.ScrollMetrics{ScrollHeight: 1800, ClientHeight: 800},
		local:           &fakeStorage{items: map[string]string{}},
		session:         &fakeStorage{items: map[string]string{}},
		cookies:         &fakeCookies{},
		transport:       &fakeTransport{},
	}
}

func (h *fakeHost) AfterFunc(d time.Duration, f func()) func() {
	t := &fakeTimer{at: h.elapsed + d, f: f}
	h.timers = append(h.timers, t)
	return func() { t.cancelled = true }
}

func (h *fakeHost) Advance(d time.Duration) {
	target := h.elapsed + d
	for {
		sort.SliceStable(h.timers, func(i, j int) bool { return h.timers[i].at < h.timers[j].at })
		var next *fakeTimer
		for _, t := range h.timers {
			if !t.cancelled && t.at <= target {
				next = t
				break
			}
		}
		if next == nil {
			break
		}
		h.elapsed = next.at
		next.cancelled = true
		next.f()
	}
	h.elapsed = target
}

func (h *fakeHost) pendingTimers() int {
	n := 0
	for _, t := range h.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}

func (h *fakeHost) OnScroll(f func(trigger.ScrollMetrics)) func() {
	id := h.nextListener
	h.nextListener++
	h.scrollListeners[id] = f
	return func() { delete(h.scrollListeners, id) }
}

func (h *fakeHost) Metrics() trigger.ScrollMetrics { return h.scroll }

func (h *fakeHost) Scroll(top, scrollHeight, clientHeight float64) {
	h.scroll = trigger.ScrollMetrics{ScrollTop: top, ScrollHeight: scrollHeight, ClientHeight: clientHeight}
	for _, f := range h.scrollListeners {
		f(h.scroll)
	}
}

func (h *fakeHost) LocalStorage() consent.Storage   { return h.local }
func (h *fakeHost) SessionStorage() consent.Storage { return h.session }
func (h *fakeHost) Cookies() consent.CookieJar      { return h.cookies }
func (h *fakeHost) Transport() analytics.Transport  { return h.transport }
func (h *fakeHost) Now() time.Time                  { return h.start.Add(h.elapsed) }

func (h *fakeHost) Page() analytics.PageInfo {
	return analytics.PageInfo{URL: "https://shop.test/cart", Referrer: "https://search.test/", UserAgent: "fake"}
}

func (h *fakeHost) Attach(widgetID string, m templates.Markup) (Surface, error) {
	s := &fakeSurface{widgetID: widgetID, markup: m}
	h.surfaces = append(h.surfaces, s)
	return s, nil
}

func (h *fakeHost) surfaceFor(widgetID string) *fakeSurface {
	for _, s := range h.surfaces {
		if s.widgetID == widgetID && !s.removed {
			return s
		}
	}
	return nil
}
