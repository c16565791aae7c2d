// Package generator turns a banner customization into embeddable script text. The
// standalone snippet inlines every value the hosted runtime would compute, so the
// two delivery paths render the same banner.
package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/banner"
	"github.com/AtRiskMedia/consent-banner-go/internal/domain/consent"
	templates "github.com/AtRiskMedia/consent-banner-go/internal/presentation/templates/banner"
)

// DefaultWidgetID names a standalone banner generated without an account.
const DefaultWidgetID = "standalone"

// Snippet kinds.
const (
	KindHosted     = "hosted"
	KindStandalone = "standalone"
)

// Snippet is generated embed code with its line count for UI comparison.
type Snippet struct {
	Kind   string `json:"kind"`
	Source string `json:"source"`
	Lines  int    `json:"lines"`
}

func newSnippet(kind, source string) Snippet {
	source = strings.TrimRight(source, "\n")
	return Snippet{Kind: kind, Source: source, Lines: strings.Count(source, "\n") + 1}
}

// Options tunes standalone generation.
type Options struct {
	WidgetID  string
	Namespace consent.Namespace
}

// Decision is what one button writes to the consent store.
type Decision struct {
	Action     consent.Action  `json:"action"`
	Categories map[string]bool `json:"categories"`
}

// Payload is every literal the standalone script needs. It is computed by the same
// functions the hosted runtime calls.
type Payload struct {
	ID            string              `json:"id"`
	CSS           string              `json:"css"`
	HTML          string              `json:"html"`
	StorageKey    string              `json:"storageKey"`
	CookieName    string              `json:"cookieName"`
	HideAfterMs   int64               `json:"hideAfterMs"`
	DurationMs    int                 `json:"durationMs"`
	Trigger       banner.TriggerPlan  `json:"trigger"`
	Decisions     map[string]Decision `json:"decisions"`
	HostAttr      string              `json:"hostAttr"`
	PartSelector  string              `json:"partSelector"`
	ActionAttr    string              `json:"actionAttr"`
	ClassEntering string              `json:"classEntering"`
	ClassLeaving  string              `json:"classLeaving"`
}

// BuildPayload resolves c and computes the standalone literals.
func BuildPayload(c banner.Customization, opts Options) (Payload, error) {
	id := opts.WidgetID
	if id == "" {
		id = DefaultWidgetID
	}
	ns := opts.Namespace
	if ns.StorageKey == "" {
		ns = consent.Standalone
	}

	resolved, err := banner.Resolve(c)
	if err != nil {
		return Payload{}, fmt.Errorf("resolve customization: %w", err)
	}
	markup, err := templates.Render(id, resolved)
	if err != nil {
		return Payload{}, err
	}
	plan := banner.PlanFor(resolved)

	settingsAction, settingsCategories := consent.SettingsDecision()
	return Payload{
		ID:          id,
		CSS:         markup.CSS,
		HTML:        markup.HTML,
		StorageKey:  ns.StorageKey,
		CookieName:  ns.CookieName,
		HideAfterMs: resolved.HideAfterMillis(),
		DurationMs:  plan.DurationMs,
		Trigger:     plan.Trigger,
		Decisions: map[string]Decision{
			templates.ActionAccept:   {Action: consent.ActionAccepted, Categories: consent.GrantAll()},
			templates.ActionDecline:  {Action: consent.ActionDeclined, Categories: consent.DeclineAll()},
			templates.ActionSettings: {Action: settingsAction, Categories: settingsCategories},
		},
		HostAttr:      templates.AttrHost,
		PartSelector:  "[data-part]",
		ActionAttr:    templates.AttrAction,
		ClassEntering: templates.ClassEntering,
		ClassLeaving:  templates.ClassLeaving,
	}, nil
}

// Generate produces the self-contained standalone snippet. It makes no network calls
// at runtime and reports no analytics.
func Generate(c banner.Customization, opts Options) (Snippet, error) {
	p, err := BuildPayload(c, opts)
	if err != nil {
		return Snippet{}, err
	}
	var buf bytes.Buffer
	if err := standaloneTmpl.Execute(&buf, p); err != nil {
		return Snippet{}, fmt.Errorf("execute standalone template: %w", err)
	}
	return newSnippet(KindStandalone, buf.String()), nil
}

// scriptJSON encodes v for inclusion inside a <script> element. encoding/json escapes
// <, > and & (and U+2028/U+2029) so the payload cannot close the element.
func scriptJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var funcs = template.FuncMap{"json": scriptJSON}
