// Package banner defines the cookie-consent banner customization model and the
// pure functions that turn it into concrete paint, geometry and animation values.
//
// Everything in this package is deterministic and free of side effects. The live
// runtime calls these functions while mounting a widget and the embed generator
// calls the very same functions at generation time, so both delivery paths always
// agree on colors, radius clamps, shadow literals and animation offsets.
package banner

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Vertical placement values.
const (
	VerticalTop    = "top"
	VerticalCenter = "center"
	VerticalBottom = "bottom"
)

// Horizontal placement values.
const (
	HorizontalLeft   = "left"
	HorizontalCenter = "center"
	HorizontalRight  = "right"
)

// Width modes.
const (
	WidthStretched = "stretched"
	WidthNormal    = "normal"
	WidthCompact   = "compact"
)

// Animation types.
const (
	AnimationNone   = "none"
	AnimationSlide  = "slide"
	AnimationFade   = "fade"
	AnimationBounce = "bounce"
	AnimationScale  = "scale"
)

// Trigger kinds. TriggerExitIntent is part of the stored data model but has no
// implementation and is rejected by Validate.
const (
	TriggerImmediate  = "immediate"
	TriggerTime       = "time"
	TriggerScroll     = "scroll"
	TriggerExitIntent = "exit"
)

// Backdrop, shadow and layout styles.
const (
	BackdropNone   = "none"
	BackdropLight  = "light"
	BackdropStrong = "strong"

	ShadowNone   = "none"
	ShadowSoft   = "soft"
	ShadowStrong = "strong"

	StyleCard = "card"
	StyleBar  = "bar"
)

// Limits applied during normalization.
const (
	MaxBorderRadius      = 24
	ButtonRadiusCap      = 10
	MinHideAfterDays     = 1
	MaxHideAfterDays     = 365
	DefaultHideAfterDays = 365
	MaxOffsetPx          = 200
	MaxSpeedSeconds      = 5.0
	MaxDelaySeconds      = 600.0
)

// ErrUnsupportedTrigger is returned by Validate for trigger kinds that are declared
// in the data model but not implemented.
var ErrUnsupportedTrigger = errors.New("unsupported trigger")

// Customization is the complete configuration of one consent banner as produced by
// the dashboard. Once resolved it is treated as an immutable snapshot.
type Customization struct {
	Text      TextConfig      `json:"text"`
	Design    DesignConfig    `json:"design"`
	Position  PositionConfig  `json:"position"`
	Animation AnimationConfig `json:"animation"`
	Consent   ConsentConfig   `json:"consent"`
}

// TextConfig holds every user-visible string. None of it is trusted as markup.
type TextConfig struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	AcceptText   string `json:"acceptText"`
	DeclineText  string `json:"declineText"`
	SettingsText string `json:"settingsText"`
	ShowDecline  bool   `json:"showDecline"`
	ShowSettings bool   `json:"showSettings"`
	LinkWord     string `json:"linkWord,omitempty"`
	LinkLineText string `json:"linkLineText,omitempty"`
	LinkTarget   string `json:"linkTarget"`
	LinkURL      string `json:"linkUrl"`
}

// DesignConfig selects colors and surface treatment. BgColor and BtnColor accept
// either a preset id or an explicit #RGB / #RRGGBB value.
type DesignConfig struct {
	BgColor      string `json:"bgColor"`
	BtnColor     string `json:"btnColor"`
	BorderRadius int    `json:"borderRadius"`
	Shadow       string `json:"shadow"`
	BannerStyle  string `json:"bannerStyle"`
}

// PositionConfig is the abstract placement descriptor.
type PositionConfig struct {
	Vertical   string `json:"vertical"`
	Horizontal string `json:"horizontal"`
	Width      string `json:"width"`
	OffsetX    int    `json:"offsetX"`
	OffsetY    int    `json:"offsetY"`
}

// AnimationConfig is the abstract animation and trigger descriptor. ScrollPx is a
// percentage threshold despite its name.
type AnimationConfig struct {
	Type         string  `json:"type"`
	SpeedSeconds float64 `json:"speedSeconds"`
	Trigger      string  `json:"trigger"`
	DelaySeconds float64 `json:"delaySeconds"`
	ScrollPx     float64 `json:"scrollPx"`
	Backdrop     string  `json:"backdrop"`
}

// ConsentConfig controls how long a decision suppresses the banner.
type ConsentConfig struct {
	HideAfterDays int `json:"hideAfterDays"`
}

// Default returns the customization used when nothing has been configured.
func Default() Customization {
	return Customization{
		Text: TextConfig{
			Title:        "We use cookies",
			Description:  "We use cookies to improve your experience and analyze site traffic.",
			AcceptText:   "Accept all",
			DeclineText:  "Decline",
			SettingsText: "Settings",
			ShowDecline:  true,
			ShowSettings: false,
			LinkLineText: "Read our privacy policy",
			LinkWord:     "privacy policy",
			LinkTarget:   "_blank",
			LinkURL:      "",
		},
		Design: DesignConfig{
			BgColor:      DefaultBackground,
			BtnColor:     DefaultButton,
			BorderRadius: 12,
			Shadow:       ShadowSoft,
			BannerStyle:  StyleCard,
		},
		Position: PositionConfig{
			Vertical:   VerticalBottom,
			Horizontal: HorizontalCenter,
			Width:      WidthNormal,
			OffsetX:    16,
			OffsetY:    16,
		},
		Animation: AnimationConfig{
			Type:         AnimationSlide,
			SpeedSeconds: 0.4,
			Trigger:      TriggerImmediate,
			DelaySeconds: 0,
			ScrollPx:     0,
			Backdrop:     BackdropNone,
		},
		Consent: ConsentConfig{HideAfterDays: DefaultHideAfterDays},
	}
}

// Normalize resolves malformed or out-of-range fields to their defaults one field at a
// time, so a partial configuration never produces a partially broken banner. The
// returned slice lists every field that was replaced. Unknown trigger kinds are kept
// as-is so that Validate can reject them explicitly.
func Normalize(c Customization) (Customization, []string) {
	d := Default()
	var fixed []string
	fix := func(field string) { fixed = append(fixed, field) }

	if strings.TrimSpace(c.Text.AcceptText) == "" {
		c.Text.AcceptText = d.Text.AcceptText
		fix("text.acceptText")
	}
	if c.Text.ShowDecline && strings.TrimSpace(c.Text.DeclineText) == "" {
		c.Text.DeclineText = d.Text.DeclineText
		fix("text.declineText")
	}
	if c.Text.ShowSettings && strings.TrimSpace(c.Text.SettingsText) == "" {
		c.Text.SettingsText = d.Text.SettingsText
		fix("text.settingsText")
	}
	if c.Text.LinkTarget != "_self" && c.Text.LinkTarget != "_blank" {
		if c.Text.LinkTarget != "" {
			fix("text.linkTarget")
		}
		c.Text.LinkTarget = d.Text.LinkTarget
	}

	if c.Design.BorderRadius < 0 || c.Design.BorderRadius > MaxBorderRadius {
		c.Design.BorderRadius = clampInt(c.Design.BorderRadius, 0, MaxBorderRadius)
		fix("design.borderRadius")
	}
	if _, ok := shadowTable[c.Design.Shadow]; !ok {
		c.Design.Shadow = d.Design.Shadow
		fix("design.shadow")
	}
	if !oneOf(c.Design.BannerStyle, StyleCard, StyleBar) {
		c.Design.BannerStyle = d.Design.BannerStyle
		fix("design.bannerStyle")
	}
	if _, ok := lookupColor(c.Design.BgColor, backgroundPresets); !ok {
		c.Design.BgColor = d.Design.BgColor
		fix("design.bgColor")
	}
	if _, ok := lookupColor(c.Design.BtnColor, buttonPresets); !ok {
		c.Design.BtnColor = d.Design.BtnColor
		fix("design.btnColor")
	}

	if !oneOf(c.Position.Vertical, VerticalTop, VerticalCenter, VerticalBottom) {
		c.Position.Vertical = d.Position.Vertical
		fix("position.vertical")
	}
	if !oneOf(c.Position.Horizontal, HorizontalLeft, HorizontalCenter, HorizontalRight) {
		c.Position.Horizontal = d.Position.Horizontal
		fix("position.horizontal")
	}
	if !oneOf(c.Position.Width, WidthStretched, WidthNormal, WidthCompact) {
		c.Position.Width = d.Position.Width
		fix("position.width")
	}
	if c.Position.OffsetX < 0 || c.Position.OffsetX > MaxOffsetPx {
		c.Position.OffsetX = clampInt(c.Position.OffsetX, 0, MaxOffsetPx)
		fix("position.offsetX")
	}
	if c.Position.OffsetY < 0 || c.Position.OffsetY > MaxOffsetPx {
		c.Position.OffsetY = clampInt(c.Position.OffsetY, 0, MaxOffsetPx)
		fix("position.offsetY")
	}

	if !oneOf(c.Animation.Type, AnimationNone, AnimationSlide, AnimationFade, AnimationBounce, AnimationScale) {
		c.Animation.Type = d.Animation.Type
		fix("animation.type")
	}
	if bad(c.Animation.SpeedSeconds) || c.Animation.SpeedSeconds < 0 || c.Animation.SpeedSeconds > MaxSpeedSeconds {
		c.Animation.SpeedSeconds = d.Animation.SpeedSeconds
		fix("animation.speedSeconds")
	}
	if c.Animation.Trigger == "" {
		c.Animation.Trigger = d.Animation.Trigger
	}
	if bad(c.Animation.DelaySeconds) || c.Animation.DelaySeconds < 0 || c.Animation.DelaySeconds > MaxDelaySeconds {
		c.Animation.DelaySeconds = d.Animation.DelaySeconds
		fix("animation.delaySeconds")
	}
	if bad(c.Animation.ScrollPx) || c.Animation.ScrollPx < 0 || c.Animation.ScrollPx > 100 {
		c.Animation.ScrollPx = math.Max(0, math.Min(100, zeroIfBad(c.Animation.ScrollPx)))
		fix("animation.scrollPx")
	}
	if !oneOf(c.Animation.Backdrop, BackdropNone, BackdropLight, BackdropStrong) {
		c.Animation.Backdrop = d.Animation.Backdrop
		fix("animation.backdrop")
	}

	if c.Consent.HideAfterDays == 0 {
		c.Consent.HideAfterDays = DefaultHideAfterDays
	} else if c.Consent.HideAfterDays < MinHideAfterDays || c.Consent.HideAfterDays > MaxHideAfterDays {
		c.Consent.HideAfterDays = DefaultHideAfterDays
		fix("consent.hideAfterDays")
	}

	return c, fixed
}

// Validate rejects configurations that cannot be rendered faithfully. It only reports
// problems Normalize deliberately leaves in place.
func Validate(c Customization) error {
	switch c.Animation.Trigger {
	case TriggerImmediate, TriggerTime, TriggerScroll:
		return nil
	case TriggerExitIntent:
		return fmt.Errorf("%w: exit-intent is not implemented", ErrUnsupportedTrigger)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedTrigger, c.Animation.Trigger)
	}
}

// Resolve normalizes and validates in one step.
func Resolve(c Customization) (Customization, error) {
	n, _ := Normalize(c)
	if err := Validate(n); err != nil {
		return Customization{}, err
	}
	return n, nil
}

// HideAfterMillis is the consent lifetime in milliseconds.
func (c Customization) HideAfterMillis() int64 {
	return int64(c.Consent.HideAfterDays) * 86400000
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func bad(f float64) bool { return math.IsNaN(f) || math.IsInf(f, 0) }

func zeroIfBad(f float64) float64 {
	if bad(f) {
		return 0
	}
	return f
}
