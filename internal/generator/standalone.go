package generator

import "text/template"

// standaloneTmpl is the self-executing banner script. Only the CFG literal varies; the
// behavior below mirrors the consent store and trigger machine of the hosted runtime.
var standaloneTmpl = template.Must(template.New("standalone").Funcs(funcs).Parse(`<!-- Cookie consent banner (standalone) -->
<script>
(function () {
  "use strict";
  var CFG = {{json .}};

  var registry = window.__consentStandalone = window.__consentStandalone || {};
  if (registry[CFG.id]) return;

  function safe(fn) {
    try { return fn(); } catch (e) { return undefined; }
  }

  function dropRecord() {
    safe(function () { window.localStorage.removeItem(CFG.storageKey); });
  }

  function readConsent() {
    var raw;
    try {
      raw = window.localStorage.getItem(CFG.storageKey);
    } catch (e) {
      return null;
    }
    if (raw === null || raw === undefined) return null;
    var rec;
    try {
      rec = JSON.parse(raw);
    } catch (e) {
      dropRecord();
      return null;
    }
    if (!rec || (rec.action !== "accepted" && rec.action !== "declined") || !(rec.timestamp > 0)) {
      dropRecord();
      return null;
    }
    if (Date.now() - rec.timestamp >= CFG.hideAfterMs) {
      dropRecord();
      return null;
    }
    var cats = {};
    var src = rec.categories || {};
    for (var k in src) {
      if (Object.prototype.hasOwnProperty.call(src, k)) cats[k] = src[k];
    }
    cats.necessary = true;
    return cats;
  }

  function writeConsent(decision) {
    var cats = {};
    for (var k in decision.categories) {
      if (Object.prototype.hasOwnProperty.call(decision.categories, k)) cats[k] = decision.categories[k];
    }
    cats.necessary = true;
    var rec = { action: decision.action, categories: cats, timestamp: Date.now(), widgetId: CFG.id };
    safe(function () { window.localStorage.setItem(CFG.storageKey, JSON.stringify(rec)); });
    safe(function () {
      var expires = new Date(rec.timestamp + CFG.hideAfterMs).toUTCString();
      document.cookie = CFG.cookieName + "=" + rec.action + "; expires=" + expires + "; path=/; SameSite=Lax";
    });
  }

  var state = "idle";
  var timer = null;
  var unscroll = null;
  var hostEl = null;
  var root = null;

  function parts(fn) {
    if (!root) return;
    var list = root.querySelectorAll(CFG.partSelector);
    for (var i = 0; i < list.length; i++) fn(list[i]);
  }

  function disarm() {
    if (timer !== null) {
      window.clearTimeout(timer);
      timer = null;
    }
    if (unscroll) {
      unscroll();
      unscroll = null;
    }
  }

  function attach() {
    safe(function () {
      hostEl = document.createElement("div");
      hostEl.setAttribute(CFG.hostAttr, CFG.id);
      root = hostEl.attachShadow ? hostEl.attachShadow({ mode: "open" }) : hostEl;
      var style = document.createElement("style");
      style.textContent = CFG.css;
      root.appendChild(style);
      var box = document.createElement("div");
      box.innerHTML = CFG.html;
      root.appendChild(box);
      root.addEventListener("click", onClick);
      document.body.appendChild(hostEl);
      window.requestAnimationFrame(function () {
        if (state !== "visible") return;
        parts(function (el) { el.classList.add(CFG.classEntering); });
      });
    });
  }

  function detach() {
    safe(function () {
      if (root) root.removeEventListener("click", onClick);
      if (hostEl) hostEl.remove();
    });
    hostEl = null;
    root = null;
  }

  function reveal() {
    if (state !== "armed" && state !== "idle") return;
    disarm();
    state = "visible";
    attach();
  }

  function dismiss() {
    if (state !== "visible") return;
    state = "dismissing";
    parts(function (el) {
      el.classList.remove(CFG.classEntering);
      el.classList.add(CFG.classLeaving);
    });
    timer = window.setTimeout(function () {
      timer = null;
      if (state !== "dismissing") return;
      state = "dismissed";
      detach();
    }, CFG.durationMs);
  }

  function onClick(ev) {
    if (state !== "visible") return;
    var target = ev && ev.target;
    var btn = target && target.closest ? target.closest("[" + CFG.actionAttr + "]") : null;
    if (!btn) return;
    var decision = CFG.decisions[btn.getAttribute(CFG.actionAttr)];
    if (!decision) return;
    writeConsent(decision);
    dismiss();
  }

  function destroy() {
    if (state === "suppressed" || state === "dismissed") return;
    disarm();
    state = "dismissed";
    detach();
  }

  function scrollPercent() {
    var el = document.documentElement;
    var top = Math.max(window.pageYOffset || 0, el.scrollTop || 0);
    var span = el.scrollHeight - el.clientHeight;
    return span <= 0 ? 100 : top / span * 100;
  }

  function start() {
    if (readConsent() !== null) {
      state = "suppressed";
      return;
    }
    var t = CFG.trigger;
    if (t.kind === "immediate") {
      reveal();
    } else if (t.kind === "time") {
      state = "armed";
      timer = window.setTimeout(function () {
        timer = null;
        reveal();
      }, t.delayMs);
    } else if (t.kind === "scroll") {
      state = "armed";
      var onScroll = function () {
        if (state === "armed" && scrollPercent() >= t.scrollPercent) reveal();
      };
      var opts = { passive: true };
      window.addEventListener("scroll", onScroll, opts);
      unscroll = function () { window.removeEventListener("scroll", onScroll, opts); };
      safe(onScroll);
    }
  }

  registry[CFG.id] = { destroy: destroy };

  try {
    if (document.body) {
      start();
    } else {
      document.addEventListener("DOMContentLoaded", function () { safe(start); });
    }
  } catch (e) {}
})();
</script>
`))
