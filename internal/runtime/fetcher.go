package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/widgets"
)

// TenantHeader carries the tenant id on embed requests.
const TenantHeader = "X-Tenant-ID"

const maxConfigBytes = 1 << 20

// HTTPFetcher loads widget configuration from the embed API.
type HTTPFetcher struct {
	BaseURL  string
	TenantID string
	Client   *http.Client
}

// NewHTTPFetcher creates a fetcher with a bounded client timeout.
func NewHTTPFetcher(baseURL, tenantID string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		TenantID: tenantID,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// ConfigURL returns the embed endpoint for a widget.
func (f *HTTPFetcher) ConfigURL(widgetID string) string {
	return f.BaseURL + "/api/v1/embed/" + url.PathEscape(widgetID)
}

// EventsURL returns the analytics ingest endpoint. Beacons cannot carry headers, so the
// tenant travels as a query parameter.
func (f *HTTPFetcher) EventsURL() string {
	u := f.BaseURL + "/api/v1/embed/events"
	if f.TenantID != "" {
		u += "?tenantId=" + url.QueryEscape(f.TenantID)
	}
	return u
}

// Fetch implements ConfigFetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, widgetID string) (*widgets.EmbedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.ConfigURL(widgetID), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.TenantID != "" {
		req.Header.Set(TenantHeader, f.TenantID)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config request returned %d", resp.StatusCode)
	}

	var out widgets.EmbedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxConfigBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if out.Widget.Type == "" {
		return nil, fmt.Errorf("config for %s has no widget type", widgetID)
	}
	return &out, nil
}
