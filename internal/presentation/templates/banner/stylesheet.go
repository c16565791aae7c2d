package templates

import (
	"fmt"
	"strings"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/banner"
)

const fontStack = `system-ui, -apple-system, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif`

// Stylesheet builds the CSS for one banner. Every value comes from the style resolver
// or the placement plan, never from raw configuration text.
func Stylesheet(s banner.ResolvedStyle, p banner.Plan, bannerStyle string) string {
	var b strings.Builder
	dur := p.DurationMs

	b.WriteString(":host { all: initial; }\n")
	fmt.Fprintf(&b, ".cc-root { font-family: %s; font-size: 14px; line-height: 1.5; -webkit-font-smoothing: antialiased; }\n", fontStack)
	b.WriteString(".cc-root *, .cc-root *::before, .cc-root *::after { box-sizing: border-box; }\n")

	if p.Backdrop != nil {
		fmt.Fprintf(&b, ".cc-backdrop { position: fixed; inset: 0; z-index: %d; background: %s; backdrop-filter: blur(%dpx); -webkit-backdrop-filter: blur(%dpx); opacity: 0; }\n",
			banner.ZIndex-1, p.Backdrop.Color, p.Backdrop.BlurPx, p.Backdrop.BlurPx)
		fmt.Fprintf(&b, ".cc-backdrop.%s { animation: cc-backdrop-in %dms ease both; }\n", ClassEntering, dur)
		fmt.Fprintf(&b, ".cc-backdrop.%s { animation: cc-backdrop-out %dms ease both; }\n", ClassLeaving, dur)
		b.WriteString("@keyframes cc-backdrop-in { 0% { opacity: 0; } 100% { opacity: 1; } }\n")
		b.WriteString("@keyframes cc-backdrop-out { 0% { opacity: 1; } 100% { opacity: 0; } }\n")
	}

	fmt.Fprintf(&b, ".cc-banner { %s visibility: hidden; background: %s; color: %s; border-radius: %dpx; box-shadow: %s; padding: 20px 24px; display: flex; gap: 16px; }\n",
		banner.DeclarationsCSS(p.Position), s.Background, s.TitleColor, s.Radius, s.Shadow)
	if bannerStyle == banner.StyleBar {
		b.WriteString(".cc-bar { flex-direction: row; align-items: center; justify-content: space-between; flex-wrap: wrap; }\n")
	} else {
		b.WriteString(".cc-card { flex-direction: column; }\n")
	}
	fmt.Fprintf(&b, ".cc-banner.%s { visibility: visible; animation: %s %dms %s both; }\n", ClassEntering, banner.EnterKeyframes, dur, banner.Easing)
	fmt.Fprintf(&b, ".cc-banner.%s { visibility: visible; animation: %s %dms %s both; }\n", ClassLeaving, banner.ExitKeyframes, dur, banner.Easing)

	fmt.Fprintf(&b, ".cc-title { margin: 0 0 4px; font-size: 16px; font-weight: 600; color: %s; }\n", s.TitleColor)
	fmt.Fprintf(&b, ".cc-description { margin: 0; color: %s; }\n", s.DescriptionText)
	fmt.Fprintf(&b, ".cc-link-line { margin: 8px 0 0; color: %s; }\n", s.DescriptionText)
	fmt.Fprintf(&b, ".cc-link { color: %s; text-decoration: underline; }\n", s.LinkColor)

	b.WriteString(".cc-actions { display: flex; gap: 8px; flex-wrap: wrap; justify-content: flex-end; }\n")
	fmt.Fprintf(&b, ".cc-btn { font: inherit; font-weight: 600; cursor: pointer; padding: 8px 16px; border: 1px solid transparent; border-radius: %dpx; }\n", s.ButtonRadius)
	fmt.Fprintf(&b, ".cc-primary { background: %s; color: %s; }\n", s.ButtonBackground, s.ButtonLabel)
	fmt.Fprintf(&b, ".cc-secondary { background: transparent; color: %s; border-color: %s; }\n", s.SecondaryLabel, s.SecondaryBorder)

	b.WriteString(p.Enter.CSS())
	b.WriteString("\n")
	b.WriteString(p.Exit.CSS())
	b.WriteString("\n")
	return b.String()
}
