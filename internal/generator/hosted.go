package generator

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"text/template"
)

// Runtime asset paths served next to the loader.
const (
	LoaderPath      = "/embed.js"
	WasmExecPath    = "/runtime/wasm_exec.js"
	RuntimeWasmPath = "/runtime/consent-runtime.wasm"
)

// Hosted returns the one-line script tag for an account-backed widget. An empty
// tenantID omits the tenant attribute.
func Hosted(baseURL, widgetID, tenantID string) Snippet {
	base := strings.TrimRight(baseURL, "/")
	var b strings.Builder
	fmt.Fprintf(&b, `<script src="%s%s" data-widget-id="%s"`, html.EscapeString(base), LoaderPath, html.EscapeString(widgetID))
	if tenantID != "" {
		fmt.Fprintf(&b, ` data-tenant-id="%s"`, html.EscapeString(tenantID))
	}
	b.WriteString(` async></script>`)
	return newSnippet(KindHosted, b.String())
}

// Comparison pairs both delivery paths for one widget.
type Comparison struct {
	Hosted     Snippet `json:"hosted"`
	Standalone Snippet `json:"standalone"`
}

type loaderData struct {
	APIBase  string
	WasmExec string
	Wasm     string
}

var loaderTmpl = template.Must(template.New("loader").Funcs(funcs).Parse(`(function () {
  "use strict";
  try {
    var s = document.currentScript;
    if (!s) return;
    var id = s.getAttribute("data-widget-id");
    if (!id) return;
    var base = {{json .APIBase}};
    if (!base) base = new URL(s.src, window.location.href).origin;
    var q = window.ConsentBannerQueue = window.ConsentBannerQueue || [];
    q.push({ widgetId: id, tenantId: s.getAttribute("data-tenant-id") || "", apiBase: base });
    if (window.__consentRuntimeLoading) return;
    window.__consentRuntimeLoading = true;
    var go = document.createElement("script");
    go.src = base + {{json .WasmExec}};
    go.async = true;
    go.onload = function () {
      try {
        var rt = new window.Go();
        var run = function (r) { rt.run(r.instance); };
        var none = function () {};
        var src = base + {{json .Wasm}};
        if (WebAssembly.instantiateStreaming) {
          WebAssembly.instantiateStreaming(fetch(src), rt.importObject).then(run).catch(none);
        } else {
          fetch(src)
            .then(function (r) { return r.arrayBuffer(); })
            .then(function (b) { return WebAssembly.instantiate(b, rt.importObject); })
            .then(run)
            .catch(none);
        }
      } catch (e) {}
    };
    (document.head || document.documentElement).appendChild(go);
  } catch (e) {}
})();
`))

// Loader returns the /embed.js script. An empty apiBase makes the loader use the origin
// it was served from.
func Loader(apiBase string) (string, error) {
	var buf bytes.Buffer
	err := loaderTmpl.Execute(&buf, loaderData{
		APIBase:  strings.TrimRight(apiBase, "/"),
		WasmExec: WasmExecPath,
		Wasm:     RuntimeWasmPath,
	})
	if err != nil {
		return "", fmt.Errorf("execute loader template: %w", err)
	}
	return buf.String(), nil
}
