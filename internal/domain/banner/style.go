package banner

import (
	"fmt"
	"strconv"
	"strings"
)

// Fallback colors for unknown preset ids.
const (
	DefaultBackground = "#FFFFFF"
	DefaultButton     = "#111111"
)

// BrightnessThreshold separates dark from light colors. A perceived brightness of
// exactly 128 counts as light.
const BrightnessThreshold = 128.0

var backgroundPresets = map[string]string{
	"white":    "#FFFFFF",
	"light":    "#F4F4F5",
	"cream":    "#FDF6E3",
	"dark":     "#18181B",
	"black":    "#000000",
	"navy":     "#0F172A",
	"forest":   "#14532D",
	"lavender": "#EDE9FE",
}

var buttonPresets = map[string]string{
	"black":  "#111111",
	"white":  "#FFFFFF",
	"blue":   "#2563EB",
	"green":  "#16A34A",
	"red":    "#DC2626",
	"purple": "#7C3AED",
	"orange": "#EA580C",
	"gray":   "#52525B",
}

var shadowTable = map[string]string{
	ShadowNone:   "none",
	ShadowSoft:   "0 4px 24px rgba(0, 0, 0, 0.08)",
	ShadowStrong: "0 12px 48px rgba(0, 0, 0, 0.25)",
}

// Palette entries used on dark and light surfaces.
const (
	lightTitle       = "#FFFFFF"
	lightDescription = "#D4D4D8"
	darkTitle        = "#111111"
	darkDescription  = "#52525B"
	labelOnDark      = "#FFFFFF"
	labelOnLight     = "#111111"
	borderOnDark     = "rgba(255, 255, 255, 0.3)"
	borderOnLight    = "rgba(0, 0, 0, 0.15)"
)

// ResolvedStyle carries the concrete paint values for one banner.
type ResolvedStyle struct {
	Background      string `json:"background"`
	DarkSurface     bool   `json:"darkSurface"`
	TitleColor      string `json:"titleColor"`
	DescriptionText string `json:"descriptionColor"`
	LinkColor       string `json:"linkColor"`

	ButtonBackground string `json:"buttonBackground"`
	ButtonLabel      string `json:"buttonLabel"`
	DarkButton       bool   `json:"darkButton"`

	SecondaryLabel  string `json:"secondaryLabel"`
	SecondaryBorder string `json:"secondaryBorder"`

	Shadow       string `json:"shadow"`
	Radius       int    `json:"radius"`
	ButtonRadius int    `json:"buttonRadius"`
}

// ResolveStyle maps a design descriptor to concrete colors. It never fails: unknown
// presets fall back to DefaultBackground and DefaultButton, and an unknown shadow
// resolves to the soft shadow.
func ResolveStyle(d DesignConfig) ResolvedStyle {
	bg := ResolveBackground(d.BgColor)
	btn := ResolveButton(d.BtnColor)

	darkSurface := IsDark(bg)
	darkButton := IsDark(btn)

	s := ResolvedStyle{
		Background:       bg,
		DarkSurface:      darkSurface,
		ButtonBackground: btn,
		DarkButton:       darkButton,
		Shadow:           ShadowValue(d.Shadow),
		Radius:           clampInt(d.BorderRadius, 0, MaxBorderRadius),
		ButtonRadius:     ButtonRadius(d.BorderRadius),
	}

	if darkSurface {
		s.TitleColor = lightTitle
		s.DescriptionText = lightDescription
		s.LinkColor = lightTitle
		s.SecondaryLabel = labelOnDark
		s.SecondaryBorder = borderOnDark
	} else {
		s.TitleColor = darkTitle
		s.DescriptionText = darkDescription
		s.LinkColor = darkTitle
		s.SecondaryLabel = labelOnLight
		s.SecondaryBorder = borderOnLight
	}

	if darkButton {
		s.ButtonLabel = labelOnDark
	} else {
		s.ButtonLabel = labelOnLight
	}

	return s
}

// ResolveBackground returns the hex color for a background preset id or custom value.
func ResolveBackground(v string) string {
	if c, ok := lookupColor(v, backgroundPresets); ok {
		return c
	}
	return DefaultBackground
}

// ResolveButton returns the hex color for a button preset id or custom value.
func ResolveButton(v string) string {
	if c, ok := lookupColor(v, buttonPresets); ok {
		return c
	}
	return DefaultButton
}

// ShadowValue looks a shadow id up in the three-entry table.
func ShadowValue(id string) string {
	if v, ok := shadowTable[id]; ok {
		return v
	}
	return shadowTable[ShadowSoft]
}

// ButtonRadius clamps the container radius for buttons.
func ButtonRadius(borderRadius int) int {
	r := clampInt(borderRadius, 0, MaxBorderRadius)
	if r > ButtonRadiusCap {
		return ButtonRadiusCap
	}
	return r
}

// Brightness returns the perceived brightness 0.299R + 0.587G + 0.114B of a hex color.
func Brightness(hex string) (float64, error) {
	milli, err := brightnessMilli(hex)
	if err != nil {
		return 0, err
	}
	return float64(milli) / 1000, nil
}

// IsDark reports whether the color selects the dark-surface palette. Unparseable
// input is treated as light.
func IsDark(hex string) bool {
	milli, err := brightnessMilli(hex)
	if err != nil {
		return false
	}
	return milli < int(BrightnessThreshold*1000)
}

// brightnessMilli keeps the weighted sum in integers so the 128 boundary is exact.
func brightnessMilli(hex string) (int, error) {
	r, g, b, err := ParseHex(hex)
	if err != nil {
		return 0, err
	}
	return 299*int(r) + 587*int(g) + 114*int(b), nil
}

// ParseHex parses #RGB or #RRGGBB.
func ParseHex(hex string) (r, g, b uint8, err error) {
	h, ok := normalizeHex(hex)
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q", hex)
	}
	v, err := strconv.ParseUint(h[1:], 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}

// lookupColor accepts a preset id (case-insensitive) or a custom hex value, optionally
// prefixed with "custom:".
func lookupColor(v string, presets map[string]string) (string, bool) {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "custom:")
	if strings.HasPrefix(v, "#") {
		return normalizeHex(v)
	}
	c, ok := presets[strings.ToLower(v)]
	return c, ok
}

// normalizeHex expands #RGB and upper-cases the result.
func normalizeHex(v string) (string, bool) {
	if !strings.HasPrefix(v, "#") {
		return "", false
	}
	digits := v[1:]
	for _, ch := range digits {
		if !strings.ContainsRune("0123456789abcdefABCDEF", ch) {
			return "", false
		}
	}
	switch len(digits) {
	case 3:
		var b strings.Builder
		b.WriteByte('#')
		for _, ch := range digits {
			b.WriteRune(ch)
			b.WriteRune(ch)
		}
		return strings.ToUpper(b.String()), true
	case 6:
		return "#" + strings.ToUpper(digits), true
	default:
		return "", false
	}
}
