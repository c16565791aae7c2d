package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/application/container"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/analytics"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/banner"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/tenant"
	"github.com/AtRiskMedia/consent-banner-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/consent-banner-go/pkg/config"
	"github.com/gin-gonic/gin"
)

const adminPassword = "correct horse battery staple"

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.EnableMultiTenant = false
	config.PublicBaseURL = ""
	config.DashboardOrigins = []string{"http://localhost:4321"}
	config.RuntimeDir = t.TempDir()
	if err := os.WriteFile(filepath.Join(config.RuntimeDir, "wasm_exec.js"), []byte("// go"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := logging.NewDiscardLogger()
	m, err := tenant.NewManager(t.TempDir(), false, logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Close() })

	tctx, err := m.ContextFor(tenant.DefaultTenantID)
	if err != nil {
		t.Fatal(err)
	}
	hash, err := security.HashPassword(adminPassword)
	if err != nil {
		t.Fatal(err)
	}
	tctx.Config.AdminPasswordHash = hash

	cache := stores.NewMemoryWidgetStore(time.Minute, logger)
	return SetupRoutes(container.NewContainer(m, cache, logger))
}

func do(r http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r http.Handler) map[string]string {
	t.Helper()
	w := do(r, http.MethodPost, "/api/v1/auth/login", map[string]string{"password": adminPassword}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d body=%s", w.Code, w.Body)
	}
	var res struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil || res.Token == "" {
		t.Fatalf("login body = %s", w.Body)
	}
	return map[string]string{"Authorization": "Bearer " + res.Token}
}

func TestHealth(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodGet, "/api/v1/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	var res struct {
		Status  string `json:"status"`
		Tenants []struct {
			TenantID string `json:"tenantId"`
			Healthy  bool   `json:"healthy"`
		} `json:"tenants"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Status != "ok" || len(res.Tenants) != 1 || !res.Tenants[0].Healthy {
		t.Errorf("health = %+v", res)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodPost, "/api/v1/auth/login", map[string]string{"password": "nope"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", w.Code)
	}
	w = do(r, http.MethodPost, "/api/v1/auth/login", map[string]string{}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing password status = %d", w.Code)
	}
}

func TestLogoutClearsAuthCookie(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodPost, "/api/v1/auth/login", map[string]string{"password": adminPassword}, nil)
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.AuthCookie {
			session = c
		}
	}
	if session == nil || session.Value == "" || !session.HttpOnly {
		t.Fatalf("login cookie = %+v", session)
	}

	w = do(r, http.MethodGet, "/api/v1/widgets", nil, map[string]string{"Cookie": session.Name + "=" + session.Value})
	if w.Code != http.StatusOK {
		t.Fatalf("cookie auth status = %d", w.Code)
	}

	w = do(r, http.MethodPost, "/api/v1/auth/logout", nil, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", w.Code)
	}
	var cleared *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.AuthCookie {
			cleared = c
		}
	}
	if cleared == nil || cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Errorf("logout cookie = %+v, want an expired empty cookie", cleared)
	}
}

func TestWidgetsRequireAuth(t *testing.T) {
	r := newRouter(t)
	if w := do(r, http.MethodGet, "/api/v1/widgets", nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d", w.Code)
	}
	bad := map[string]string{"Authorization": "Bearer not-a-jwt"}
	if w := do(r, http.MethodGet, "/api/v1/widgets", nil, bad); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d", w.Code)
	}
}

func TestWidgetLifecycle(t *testing.T) {
	r := newRouter(t)
	auth := login(t, r)

	cfg := banner.Default()
	cfg.Text.Title = "Cookies <b>here</b>"
	w := do(r, http.MethodPost, "/api/v1/widgets", map[string]any{"name": "Shop", "config": cfg}, auth)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", w.Code, w.Body)
	}
	var created struct {
		Widget struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"widget"`
		Normalized []string `json:"normalized"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	id := created.Widget.ID
	if !security.IsULID(id) || created.Widget.Type != "cookie" {
		t.Fatalf("created = %+v", created)
	}

	w = do(r, http.MethodGet, "/api/v1/widgets", nil, auth)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"count":1`) {
		t.Errorf("list = %d %s", w.Code, w.Body)
	}

	w = do(r, http.MethodGet, "/api/v1/embed/"+id, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("embed status = %d body=%s", w.Code, w.Body)
	}
	var embed struct {
		Widget struct {
			ID     string               `json:"id"`
			Type   string               `json:"type"`
			Config banner.Customization `json:"config"`
		} `json:"widget"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &embed); err != nil {
		t.Fatal(err)
	}
	if embed.Widget.ID != id || embed.Widget.Config.Text.Title != cfg.Text.Title {
		t.Errorf("embed = %+v", embed.Widget)
	}

	beacon := `{"widgetId":"` + id + `","type":"cookie_accept","visitorId":"v1","pageUrl":"https://shop.example/"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/embed/events", strings.NewReader(beacon))
	req.Header.Set("Content-Type", analytics.ContentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("event status = %d body=%s", rec.Code, rec.Body)
	}

	w = do(r, http.MethodGet, "/api/v1/widgets/"+id+"/stats", nil, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d body=%s", w.Code, w.Body)
	}
	var stats struct {
		Counts     map[string]int `json:"counts"`
		AcceptRate float64        `json:"acceptRate"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Counts["cookie_accept"] != 1 || stats.Counts["view"] != 0 || stats.AcceptRate != 1 {
		t.Errorf("stats = %+v", stats)
	}

	w = do(r, http.MethodGet, "/api/v1/widgets/"+id+"/events?limit=5", nil, auth)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"count":1`) {
		t.Errorf("recent = %d %s", w.Code, w.Body)
	}

	w = do(r, http.MethodGet, "/api/v1/widgets/"+id+"/snippet", nil, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("snippet status = %d body=%s", w.Code, w.Body)
	}
	var cmp struct {
		Hosted     struct{ Source string } `json:"hosted"`
		Standalone struct{ Lines int }     `json:"standalone"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &cmp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(cmp.Hosted.Source, `src="http://example.com/embed.js"`) ||
		!strings.Contains(cmp.Hosted.Source, `data-widget-id="`+id+`"`) ||
		strings.Contains(cmp.Hosted.Source, "data-tenant-id") {
		t.Errorf("hosted = %s", cmp.Hosted.Source)
	}
	if cmp.Standalone.Lines <= 1 {
		t.Errorf("standalone lines = %d", cmp.Standalone.Lines)
	}

	if w = do(r, http.MethodDelete, "/api/v1/widgets/"+id, nil, auth); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w = do(r, http.MethodGet, "/api/v1/embed/"+id, nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("embed after delete = %d", w.Code)
	}
	if w = do(r, http.MethodDelete, "/api/v1/widgets/"+id, nil, auth); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d", w.Code)
	}
}

func TestCreateRejectsExitIntent(t *testing.T) {
	r := newRouter(t)
	auth := login(t, r)
	cfg := banner.Default()
	cfg.Animation.Trigger = banner.TriggerExitIntent
	w := do(r, http.MethodPost, "/api/v1/widgets", map[string]any{"name": "Shop", "config": cfg}, auth)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d body=%s", w.Code, w.Body)
	}
}

func TestEventRejections(t *testing.T) {
	r := newRouter(t)

	if w := do(r, http.MethodPost, "/api/v1/embed/events", "{not json", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d", w.Code)
	}
	unknown := `{"widgetId":"01ARZ3NDEKTSV4RRFFQ69G5FAV","type":"view"}`
	if w := do(r, http.MethodPost, "/api/v1/embed/events", unknown, nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown widget = %d", w.Code)
	}
	badType := `{"widgetId":"w","type":"hover"}`
	if w := do(r, http.MethodPost, "/api/v1/embed/events", badType, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad type = %d", w.Code)
	}

	prev := config.MaxEventBodyBytes
	config.MaxEventBodyBytes = 32
	defer func() { config.MaxEventBodyBytes = prev }()
	big := `{"widgetId":"w","type":"view","pageUrl":"` + strings.Repeat("x", 64) + `"}`
	if w := do(r, http.MethodPost, "/api/v1/embed/events", big, nil); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized = %d", w.Code)
	}
}

func TestGenerateStandalone(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodPost, "/api/v1/embed/generate", map[string]any{"widgetId": "preview", "config": banner.Default()}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	var snip struct {
		Kind   string `json:"kind"`
		Source string `json:"source"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &snip); err != nil {
		t.Fatal(err)
	}
	if snip.Kind != "standalone" || !strings.Contains(snip.Source, "<script") {
		t.Errorf("snippet = %+v", snip)
	}

	cfg := banner.Default()
	cfg.Animation.Trigger = banner.TriggerExitIntent
	if w := do(r, http.MethodPost, "/api/v1/embed/generate", map[string]any{"config": cfg}, nil); w.Code != http.StatusBadRequest {
		t.Errorf("exit intent = %d", w.Code)
	}
}

func TestLoaderAndRuntimeAssets(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodGet, "/embed.js", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/javascript") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), `"http://example.com"`) {
		t.Errorf("loader does not carry the api base:\n%s", w.Body)
	}

	config.PublicBaseURL = "https://consent.example"
	defer func() { config.PublicBaseURL = "" }()
	if w := do(r, http.MethodGet, "/embed.js", nil, nil); !strings.Contains(w.Body.String(), `"https://consent.example"`) {
		t.Errorf("loader ignores PUBLIC_BASE_URL")
	}

	if w := do(r, http.MethodGet, "/runtime/wasm_exec.js", nil, nil); w.Code != http.StatusOK {
		t.Errorf("runtime asset = %d", w.Code)
	}
}

func TestCORSPolicies(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodOptions, "/api/v1/embed/events", nil, map[string]string{
		"Origin":                        "https://shop.example",
		"Access-Control-Request-Method": "POST",
	})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("embed preflight allow-origin = %q", got)
	}

	w = do(r, http.MethodGet, "/api/v1/widgets", nil, map[string]string{"Origin": "https://evil.example"})
	if w.Code != http.StatusForbidden {
		t.Errorf("foreign dashboard origin = %d", w.Code)
	}

	w = do(r, http.MethodOptions, "/api/v1/widgets", nil, map[string]string{
		"Origin":                        "http://localhost:4321",
		"Access-Control-Request-Method": "PUT",
	})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:4321" {
		t.Errorf("dashboard preflight allow-origin = %q", got)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodGet, "/api/v1/health", nil, nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id")
	}
	w = do(r, http.MethodGet, "/api/v1/health", nil, map[string]string{"X-Request-ID": "abc"})
	if got := w.Header().Get("X-Request-ID"); got != "abc" {
		t.Errorf("request id = %q", got)
	}
}
