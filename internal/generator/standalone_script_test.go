package generator

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/dop251/goja"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/banner"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/consent"
)

// pageStartMs is the manual clock origin, 2026-01-01T00:00:00Z.
const pageStartMs = int64(1767225600000)

// fakePage is a minimal browser for the standalone script: a manual clock, a DOM that
// only tracks what the script touches, blockable localStorage and a cookie log.
const fakePage = `
var __now = 0;
var __timers = {};
var __timerSeq = 0;
var __frames = [];
var __winListeners = {};
var __cookieWrites = [];
var __storageBlocked = false;

Date.now = function () { return __now; };

function __advance(ms) {
  var target = __now + ms;
  for (;;) {
    var next = null;
    for (var id in __timers) {
      var t = __timers[id];
      if (t.at <= target && (next === null || t.at < next.at || (t.at === next.at && t.seq < next.seq))) next = t;
    }
    if (next === null) break;
    delete __timers[next.seq];
    __now = next.at;
    next.fn();
  }
  __now = target;
}

function __flushFrames() {
  var q = __frames;
  __frames = [];
  for (var i = 0; i < q.length; i++) q[i]();
}

function ClassList() { this.items = []; }
ClassList.prototype.add = function (c) { if (this.items.indexOf(c) < 0) this.items.push(c); };
ClassList.prototype.remove = function (c) { var i = this.items.indexOf(c); if (i >= 0) this.items.splice(i, 1); };
ClassList.prototype.contains = function (c) { return this.items.indexOf(c) >= 0; };

function El(tag) {
  this.tagName = tag;
  this.attrs = {};
  this.children = [];
  this.parent = null;
  this.parts = [];
  this.listeners = {};
  this.classList = new ClassList();
  this.textContent = "";
  this.shadow = null;
  this.html = "";
}
El.prototype.setAttribute = function (k, v) { this.attrs[k] = String(v); };
El.prototype.getAttribute = function (k) { return Object.prototype.hasOwnProperty.call(this.attrs, k) ? this.attrs[k] : null; };
El.prototype.appendChild = function (c) { c.parent = this; this.children.push(c); return c; };
El.prototype.remove = function () {
  if (!this.parent) return;
  var s = this.parent.children;
  var i = s.indexOf(this);
  if (i >= 0) s.splice(i, 1);
  this.parent = null;
};
El.prototype.attachShadow = function () { this.shadow = new El("#shadow-root"); return this.shadow; };
El.prototype.addEventListener = function (type, fn) { (this.listeners[type] = this.listeners[type] || []).push(fn); };
El.prototype.removeEventListener = function (type, fn) {
  var l = this.listeners[type] || [];
  var i = l.indexOf(fn);
  if (i >= 0) l.splice(i, 1);
};
Object.defineProperty(El.prototype, "innerHTML", {
  get: function () { return this.html; },
  set: function (html) {
    this.html = html;
    this.parts = [];
    var re = /data-part="([^"]+)"/g, m;
    while ((m = re.exec(html)) !== null) {
      var p = new El("div");
      p.attrs["data-part"] = m[1];
      this.parts.push(p);
    }
  }
});
El.prototype.querySelectorAll = function () {
  var out = [];
  (function walk(n) {
    for (var i = 0; i < n.parts.length; i++) out.push(n.parts[i]);
    for (var j = 0; j < n.children.length; j++) walk(n.children[j]);
  })(this);
  return out;
};

function MemStorage() { this.items = {}; }
MemStorage.prototype.getItem = function (k) { return Object.prototype.hasOwnProperty.call(this.items, k) ? this.items[k] : null; };
MemStorage.prototype.setItem = function (k, v) { this.items[k] = String(v); };
MemStorage.prototype.removeItem = function (k) { delete this.items[k]; };
var __local = new MemStorage();

var window = this;
Object.defineProperty(window, "localStorage", {
  get: function () {
    if (__storageBlocked) throw new Error("SecurityError: storage is disabled");
    return __local;
  }
});
window.pageYOffset = 0;
window.setTimeout = function (fn, ms) {
  var seq = ++__timerSeq;
  __timers[seq] = { seq: seq, at: __now + (ms || 0), fn: fn };
  return seq;
};
window.clearTimeout = function (seq) { delete __timers[seq]; };
window.requestAnimationFrame = function (fn) { __frames.push(fn); return __frames.length; };
window.addEventListener = function (type, fn) { (__winListeners[type] = __winListeners[type] || []).push(fn); };
window.removeEventListener = function (type, fn) {
  var l = __winListeners[type] || [];
  var i = l.indexOf(fn);
  if (i >= 0) l.splice(i, 1);
};

var document = {
  body: new El("body"),
  documentElement: { scrollTop: 0, scrollHeight: 1800, clientHeight: 800 },
  createElement: function (tag) { return new El(tag); },
  addEventListener: function () {}
};
Object.defineProperty(document, "cookie", {
  get: function () { return ""; },
  set: function (v) { __cookieWrites.push(v); }
});

function __scroll(top) {
  window.pageYOffset = top;
  document.documentElement.scrollTop = top;
  var l = (__winListeners.scroll || []).slice();
  for (var i = 0; i < l.length; i++) l[i]();
}

function __root() {
  var host = document.body.children[0];
  return host ? (host.shadow || host) : null;
}

function __click(action) {
  var root = __root();
  if (!root) return 0;
  var fns = (root.listeners.click || []).slice();
  var btn = { getAttribute: function () { return action; } };
  var ev = { target: { closest: function () { return btn; } } };
  for (var i = 0; i < fns.length; i++) fns[i](ev);
  return fns.length;
}

function __partsHave(cls) {
  var root = __root();
  if (!root) return false;
  var parts = root.querySelectorAll("[data-part]");
  if (parts.length === 0) return false;
  for (var i = 0; i < parts.length; i++) {
    if (!parts[i].classList.contains(cls)) return false;
  }
  return true;
}
`

type page struct {
	t      *testing.T
	vm     *goja.Runtime
	script string
}

// openPage loads the fake page, lets setup prepare it and then runs the snippet.
func openPage(t *testing.T, snip Snippet, setup func(p *page)) *page {
	t.Helper()
	start := strings.Index(snip.Source, "<script>")
	end := strings.LastIndex(snip.Source, "</script>")
	if start < 0 || end < start {
		t.Fatalf("snippet has no script element:\n%s", snip.Source)
	}

	p := &page{t: t, vm: goja.New(), script: snip.Source[start+len("<script>") : end]}
	p.run(fakePage)
	p.run(fmt.Sprintf("__now = %d;", pageStartMs))
	if setup != nil {
		setup(p)
	}
	p.load()
	return p
}

func (p *page) load() {
	p.t.Helper()
	if _, err := p.vm.RunScript("snippet.js", p.script); err != nil {
		p.t.Fatalf("snippet threw: %v", err)
	}
}

func (p *page) run(src string) goja.Value {
	p.t.Helper()
	v, err := p.vm.RunString(src)
	if err != nil {
		p.t.Fatalf("%s: %v", src, err)
	}
	return v
}

func (p *page) num(src string) int64 { return p.run(src).ToInteger() }

func (p *page) hosts() int64           { return p.num("document.body.children.length") }
func (p *page) scrollListeners() int64 { return p.num("(__winListeners.scroll || []).length") }
func (p *page) pendingTimers() int64   { return p.num("Object.keys(__timers).length") }
func (p *page) advance(ms int64)       { p.run(fmt.Sprintf("__advance(%d);", ms)) }
func (p *page) destroy(id string)      { p.run(fmt.Sprintf("window.__consentStandalone[%s].destroy();", jsString(id))) }

func (p *page) click(action string) int64 {
	return p.num(fmt.Sprintf("__click(%s)", jsString(action)))
}

func (p *page) seed(key, raw string) {
	p.run(fmt.Sprintf("__local.items[%s] = %s;", jsString(key), jsString(raw)))
}

func (p *page) stored(key string) (string, bool) {
	v := p.run(fmt.Sprintf("__local.getItem(%s)", jsString(key)))
	if goja.IsNull(v) {
		return "", false
	}
	return v.String(), true
}

func (p *page) cookieWrites() []string {
	var out []string
	if err := p.vm.ExportTo(p.run("__cookieWrites"), &out); err != nil {
		p.t.Fatal(err)
	}
	return out
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func withTrigger(kind string, delaySeconds, scroll float64) banner.Customization {
	c := banner.Default()
	c.Animation.Trigger = kind
	c.Animation.DelaySeconds = delaySeconds
	c.Animation.ScrollPx = scroll
	c.Animation.SpeedSeconds = 0.4
	return c
}

func mustGenerate(t *testing.T, c banner.Customization) Snippet {
	t.Helper()
	snip, err := Generate(c, Options{})
	if err != nil {
		t.Fatal(err)
	}
	return snip
}

func TestScriptTimeTrigger(t *testing.T) {
	snip := mustGenerate(t, withTrigger(banner.TriggerTime, 2, 0))

	t.Run("shows at the delay", func(t *testing.T) {
		p := openPage(t, snip, nil)
		p.advance(1999)
		if p.hosts() != 0 {
			t.Fatal("banner attached before 2000ms")
		}
		p.advance(1)
		if p.hosts() != 1 {
			t.Fatal("banner absent at 2000ms")
		}
	})

	t.Run("destroy while armed", func(t *testing.T) {
		p := openPage(t, snip, nil)
		p.advance(1000)
		p.destroy(DefaultWidgetID)
		if p.pendingTimers() != 0 {
			t.Error("destroy left the reveal timer pending")
		}
		p.advance(5000)
		if p.hosts() != 0 {
			t.Error("destroyed banner was attached")
		}
		p.destroy(DefaultWidgetID)
	})
}

func TestScriptScrollTrigger(t *testing.T) {
	snip := mustGenerate(t, withTrigger(banner.TriggerScroll, 0, 50))

	t.Run("crossing the threshold", func(t *testing.T) {
		p := openPage(t, snip, nil)
		if p.scrollListeners() != 1 {
			t.Fatalf("scroll listeners = %d", p.scrollListeners())
		}
		p.run("__scroll(499);")
		if p.hosts() != 0 {
			t.Fatal("shown before 50%")
		}
		p.run("__scroll(500);")
		if p.hosts() != 1 {
			t.Fatal("not shown at 50%")
		}
		if p.scrollListeners() != 0 {
			t.Error("scroll listener kept after the crossing")
		}
	})

	t.Run("page that cannot scroll", func(t *testing.T) {
		p := openPage(t, snip, func(p *page) {
			p.run("document.documentElement.scrollHeight = 700; document.documentElement.clientHeight = 700;")
		})
		if p.hosts() != 1 || p.scrollListeners() != 0 {
			t.Errorf("hosts=%d listeners=%d, want the banner shown without a scroll event", p.hosts(), p.scrollListeners())
		}
	})

	t.Run("restored past the threshold", func(t *testing.T) {
		p := openPage(t, snip, func(p *page) {
			p.run("window.pageYOffset = 900;")
		})
		if p.hosts() != 1 || p.scrollListeners() != 0 {
			t.Errorf("hosts=%d listeners=%d", p.hosts(), p.scrollListeners())
		}
	})
}

func TestScriptAcceptWritesRecordAndCookie(t *testing.T) {
	c := withTrigger(banner.TriggerImmediate, 0, 0)
	payload, err := BuildPayload(c, Options{})
	if err != nil {
		t.Fatal(err)
	}
	p := openPage(t, mustGenerate(t, c), nil)

	if p.hosts() != 1 {
		t.Fatal("immediate banner not attached")
	}
	p.run("__flushFrames();")
	if !p.run("__partsHave(" + jsString(payload.ClassEntering) + ")").ToBoolean() {
		t.Error("enter animation class missing after the first frame")
	}

	if p.click("accept") != 1 {
		t.Fatal("no click handler on the isolated root")
	}
	raw, ok := p.stored(payload.StorageKey)
	if !ok {
		t.Fatal("accept stored nothing")
	}
	rec, err := consent.Parse(raw)
	if err != nil {
		t.Fatalf("stored record rejected by the consent store: %v", err)
	}
	if rec.Action != consent.ActionAccepted || rec.Timestamp != pageStartMs || rec.WidgetID != DefaultWidgetID {
		t.Errorf("record = %+v", rec)
	}
	for _, cat := range consent.Categories {
		if !rec.Categories[cat] {
			t.Errorf("category %s not granted", cat)
		}
	}

	cookies := p.cookieWrites()
	want := consent.CookieString(payload.CookieName, rec, payload.HideAfterMs)
	if len(cookies) != 1 || cookies[0] != want {
		t.Errorf("cookie writes = %q, want [%q]", cookies, want)
	}

	if !p.run("__partsHave(" + jsString(payload.ClassLeaving) + ")").ToBoolean() {
		t.Error("exit animation class missing")
	}
	p.click("decline")
	if len(p.cookieWrites()) != 1 {
		t.Error("a second action was recorded")
	}

	p.advance(int64(payload.DurationMs) - 1)
	if p.hosts() != 1 {
		t.Fatal("removed before the exit animation finished")
	}
	p.advance(1)
	if p.hosts() != 0 {
		t.Error("banner still attached after the exit animation")
	}
}

func TestScriptExpiryBoundary(t *testing.T) {
	c := withTrigger(banner.TriggerImmediate, 0, 0)
	payload, err := BuildPayload(c, Options{})
	if err != nil {
		t.Fatal(err)
	}
	snip := mustGenerate(t, c)

	tests := []struct {
		name      string
		ageMs     int64
		wantShown bool
	}{
		{"one millisecond before expiry", payload.HideAfterMs - 1, false},
		{"exactly at expiry", payload.HideAfterMs, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := consent.Record{Action: consent.ActionDeclined, Categories: consent.DeclineAll(), Timestamp: pageStartMs - tt.ageMs}
			raw, _ := json.Marshal(rec)
			p := openPage(t, snip, func(p *page) { p.seed(payload.StorageKey, string(raw)) })

			if got := p.hosts() == 1; got != tt.wantShown {
				t.Errorf("shown = %v, want %v", got, tt.wantShown)
			}
			if expired := consent.Expired(rec, pageStartMs, payload.HideAfterMs); expired != tt.wantShown {
				t.Errorf("consent store disagrees: expired = %v", expired)
			}
			if _, kept := p.stored(payload.StorageKey); kept == tt.wantShown {
				t.Errorf("record kept = %v", kept)
			}
		})
	}
}

func TestScriptDropsCorruptRecords(t *testing.T) {
	c := withTrigger(banner.TriggerImmediate, 0, 0)
	snip := mustGenerate(t, c)
	key := consent.Standalone.StorageKey

	for _, raw := range []string{
		"not json",
		`{"action":"maybe","timestamp":1}`,
		`{"action":"accepted"}`,
		`{"action":"accepted","timestamp":-5}`,
		`null`,
	} {
		t.Run(raw, func(t *testing.T) {
			p := openPage(t, snip, func(p *page) { p.seed(key, raw) })
			if p.hosts() != 1 {
				t.Error("banner suppressed by an unreadable record")
			}
			if _, ok := p.stored(key); ok {
				t.Error("corrupt record was not removed")
			}
			if _, err := consent.Parse(raw); err == nil {
				t.Error("consent store accepts a record the script drops")
			}
		})
	}
}

func TestScriptFailsOpenWithBlockedStorage(t *testing.T) {
	c := withTrigger(banner.TriggerImmediate, 0, 0)
	payload, err := BuildPayload(c, Options{})
	if err != nil {
		t.Fatal(err)
	}
	p := openPage(t, mustGenerate(t, c), func(p *page) { p.run("__storageBlocked = true;") })

	if p.hosts() != 1 {
		t.Fatal("banner not shown when storage is blocked")
	}
	p.click("accept")
	if cookies := p.cookieWrites(); len(cookies) != 1 || !strings.HasPrefix(cookies[0], payload.CookieName+"=accepted;") {
		t.Errorf("cookie writes = %q", cookies)
	}
	p.advance(int64(payload.DurationMs))
	if p.hosts() != 0 {
		t.Error("banner not removed after accept")
	}
}

func TestScriptMountsOncePerWidget(t *testing.T) {
	p := openPage(t, mustGenerate(t, withTrigger(banner.TriggerImmediate, 0, 0)), nil)
	p.load()
	if p.hosts() != 1 {
		t.Errorf("hosts = %d after loading the snippet twice", p.hosts())
	}
}
