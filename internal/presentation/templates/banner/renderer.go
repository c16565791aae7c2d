// Package templates renders the consent banner markup and its scoped stylesheet.
// The same Markup is mounted by the live runtime and inlined by generated snippets.
package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/banner"
)

// State classes toggled by the host on the banner and backdrop.
const (
	ClassEntering = "cc-entering"
	ClassLeaving  = "cc-leaving"
)

// Part selectors inside the isolated root.
const (
	SelectorBanner   = `[data-part="banner"]`
	SelectorBackdrop = `[data-part="backdrop"]`
	SelectorAction   = `[data-action]`
	AttrAction       = "data-action"
	// AttrHost marks the page element that owns a widget's isolated root.
	AttrHost = "data-consent-widget"
)

// Button actions carried by data-action.
const (
	ActionAccept   = "accept"
	ActionDecline  = "decline"
	ActionSettings = "settings"
)

// Markup is one self-contained banner: a stylesheet scoped to its isolated root and
// the HTML subtree.
type Markup struct {
	CSS  string `json:"css"`
	HTML string `json:"html"`
}

var bannerTmpl = template.Must(template.New("banner").Parse(
	`{{define "link"}}<p class="cc-link-line">{{.Before}}<a class="cc-link" href="{{.URL}}" target="{{.Target}}"{{if .Blank}} rel="noopener noreferrer"{{end}}>{{.Word}}</a>{{.After}}</p>{{end}}` +

		`{{define "actions"}}<div class="cc-actions">` +
		`{{if .ShowSettings}}<button type="button" class="cc-btn cc-secondary" data-action="settings">{{.SettingsText}}</button>{{end}}` +
		`{{if .ShowDecline}}<button type="button" class="cc-btn cc-secondary" data-action="decline">{{.DeclineText}}</button>{{end}}` +
		`<button type="button" class="cc-btn cc-primary" data-action="accept">{{.AcceptText}}</button>` +
		`</div>{{end}}` +

		`<div class="cc-root" data-widget-id="{{.WidgetID}}">` +
		`{{if .Backdrop}}<div class="cc-backdrop" data-part="backdrop"></div>{{end}}` +
		`<div class="cc-banner cc-{{.Style}}" role="dialog" aria-modal="false" aria-live="polite"{{if .Title}} aria-label="{{.Title}}"{{end}} data-part="banner">` +
		`<div class="cc-body">` +
		`{{if .Title}}<p class="cc-title">{{.Title}}</p>{{end}}` +
		`{{if .Description}}<p class="cc-description">{{.Description}}</p>{{end}}` +
		`{{with .Link}}{{template "link" .}}{{end}}` +
		`</div>` +
		`{{template "actions" .}}` +
		`</div>` +
		`</div>`,
))

type linkData struct {
	Before, Word, After string
	URL                 string
	Target              string
	Blank               bool
}

type bannerData struct {
	WidgetID     string
	Style        string
	Backdrop     bool
	Title        string
	Description  string
	Link         *linkData
	AcceptText   string
	DeclineText  string
	SettingsText string
	ShowDecline  bool
	ShowSettings bool
}

// Render builds the markup for one widget. The customization is normalized first so a
// malformed field can only fall back to its default.
func Render(widgetID string, c banner.Customization) (Markup, error) {
	c, _ = banner.Normalize(c)
	style := banner.ResolveStyle(c.Design)
	plan := banner.PlanFor(c)

	data := bannerData{
		WidgetID:     widgetID,
		Style:        c.Design.BannerStyle,
		Backdrop:     plan.Backdrop != nil,
		Title:        c.Text.Title,
		Description:  c.Text.Description,
		Link:         buildLink(c.Text),
		AcceptText:   c.Text.AcceptText,
		DeclineText:  c.Text.DeclineText,
		SettingsText: c.Text.SettingsText,
		ShowDecline:  c.Text.ShowDecline,
		ShowSettings: c.Text.ShowSettings,
	}

	var buf bytes.Buffer
	if err := bannerTmpl.Execute(&buf, data); err != nil {
		return Markup{}, fmt.Errorf("render banner %s: %w", widgetID, err)
	}

	return Markup{CSS: Stylesheet(style, plan, c.Design.BannerStyle), HTML: buf.String()}, nil
}

// buildLink splits the link line around the first occurrence of the link word. A line
// without the word gets the word appended.
func buildLink(t banner.TextConfig) *linkData {
	href := SafeURL(t.LinkURL)
	if href == "" {
		return nil
	}

	word := strings.TrimSpace(t.LinkWord)
	line := t.LinkLineText
	if word == "" {
		word = strings.TrimSpace(line)
		line = ""
	}
	if word == "" {
		word = t.LinkURL
	}

	l := &linkData{Word: word, URL: href, Target: t.LinkTarget, Blank: t.LinkTarget == "_blank"}
	if l.Target == "" {
		l.Target = "_blank"
		l.Blank = true
	}

	if i := strings.Index(line, word); i >= 0 {
		l.Before = line[:i]
		l.After = line[i+len(word):]
	} else if line != "" {
		l.Before = strings.TrimRight(line, " ") + " "
	}
	return l
}

// SafeURL returns u when it is an http(s), mailto or relative URL and "" otherwise.
func SafeURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto":
		return parsed.String()
	case "":
		if parsed.Host != "" || strings.HasPrefix(u, "//") {
			return ""
		}
		return parsed.String()
	default:
		return ""
	}
}
