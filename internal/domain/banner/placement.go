package banner

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Motion constants shared by every delivery path.
const (
	SlideOffsetPx     = 24
	BounceOvershootPx = 8
	BounceOvershootAt = 60
	ScaleFrom         = 0.92
	EnterKeyframes    = "cc-enter"
	ExitKeyframes     = "cc-exit"
	Easing            = "cubic-bezier(0.16, 1, 0.3, 1)"
	ZIndex            = 2147483647
)

var widthCaps = map[string]int{
	WidthNormal:  560,
	WidthCompact: 380,
}

// Declaration is a single CSS property/value pair. Order is preserved when rendered.
type Declaration struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

// Keyframe is one step of a keyframe animation.
type Keyframe struct {
	Offset    int     `json:"offset"`
	Opacity   float64 `json:"opacity"`
	Transform string  `json:"transform"`
}

// KeyframeSet is a named keyframe animation.
type KeyframeSet struct {
	Name   string     `json:"name"`
	Frames []Keyframe `json:"frames"`
}

// Backdrop is the paint of the optional layer behind the banner.
type Backdrop struct {
	Color  string `json:"color"`
	BlurPx int    `json:"blurPx"`
}

// Plan is the concrete geometry, motion and timing for one banner.
type Plan struct {
	Position      []Declaration `json:"position"`
	BaseTransform string        `json:"baseTransform"`
	Direction     int           `json:"direction"`
	Enter         KeyframeSet   `json:"enter"`
	Exit          KeyframeSet   `json:"exit"`
	DurationMs    int           `json:"durationMs"`
	Backdrop      *Backdrop     `json:"backdrop,omitempty"`
	Trigger       TriggerPlan   `json:"trigger"`
}

// TriggerPlan is the concrete arming rule for the trigger state machine.
type TriggerPlan struct {
	Kind          string  `json:"kind"`
	DelayMs       int     `json:"delayMs"`
	ScrollPercent float64 `json:"scrollPercent"`
}

// PlanFor derives the full plan from a normalized customization.
func PlanFor(c Customization) Plan {
	base := BaseTransform(c.Position)
	dir := Direction(c.Position.Vertical)
	enter, exit := Keyframes(c.Animation.Type, base, dir)
	return Plan{
		Position:      PositionRule(c.Position),
		BaseTransform: base,
		Direction:     dir,
		Enter:         enter,
		Exit:          exit,
		DurationMs:    Millis(c.Animation.SpeedSeconds),
		Backdrop:      BackdropFor(c.Animation.Backdrop),
		Trigger:       TriggerPlanFor(c.Animation),
	}
}

// PositionRule maps a placement descriptor onto fixed-position declarations.
// Stretched width overrides the horizontal placement with an edge-to-edge box.
func PositionRule(p PositionConfig) []Declaration {
	decls := []Declaration{
		{"position", "fixed"},
		{"z-index", strconv.Itoa(ZIndex)},
	}

	switch p.Vertical {
	case VerticalTop:
		decls = append(decls, Declaration{"top", px(p.OffsetY)})
	case VerticalCenter:
		decls = append(decls, Declaration{"top", "50%"})
	default:
		decls = append(decls, Declaration{"bottom", px(p.OffsetY)})
	}

	if p.Width == WidthStretched {
		return append(decls,
			Declaration{"left", "0"},
			Declaration{"right", "0"},
			Declaration{"width", "100%"},
			Declaration{"max-width", "none"},
			Declaration{"transform", BaseTransform(p)},
		)
	}

	switch p.Horizontal {
	case HorizontalLeft:
		decls = append(decls, Declaration{"left", px(p.OffsetX)})
	case HorizontalRight:
		decls = append(decls, Declaration{"right", px(p.OffsetX)})
	default:
		decls = append(decls, Declaration{"left", "50%"})
	}

	maxWidth, ok := widthCaps[p.Width]
	if !ok {
		maxWidth = widthCaps[WidthNormal]
	}
	return append(decls,
		Declaration{"width", fmt.Sprintf("calc(100%% - %dpx)", 2*p.OffsetX)},
		Declaration{"max-width", px(maxWidth)},
		Declaration{"transform", BaseTransform(p)},
	)
}

// BaseTransform is the translate compensation for centered placements.
func BaseTransform(p PositionConfig) string {
	centerX := p.Horizontal == HorizontalCenter && p.Width != WidthStretched
	centerY := p.Vertical == VerticalCenter
	switch {
	case centerX && centerY:
		return "translate(-50%, -50%)"
	case centerX:
		return "translateX(-50%)"
	case centerY:
		return "translateY(-50%)"
	default:
		return "none"
	}
}

// Direction is -1 when the banner enters from above and 1 when it enters from below.
func Direction(vertical string) int {
	if vertical == VerticalTop {
		return -1
	}
	return 1
}

// Keyframes builds the enter and exit keyframe pair for an animation type. The none
// type yields a same-opacity pair so that dismissal always runs the same code path.
func Keyframes(kind, base string, dir int) (KeyframeSet, KeyframeSet) {
	rest := compose(base, "")
	shifted := compose(base, fmt.Sprintf("translateY(%dpx)", dir*SlideOffsetPx))

	enter := KeyframeSet{Name: EnterKeyframes}
	exit := KeyframeSet{Name: ExitKeyframes}

	switch kind {
	case AnimationFade:
		enter.Frames = []Keyframe{{0, 0, rest}, {100, 1, rest}}
		exit.Frames = []Keyframe{{0, 1, rest}, {100, 0, rest}}
	case AnimationSlide:
		enter.Frames = []Keyframe{{0, 0, shifted}, {100, 1, rest}}
		exit.Frames = []Keyframe{{0, 1, rest}, {100, 0, shifted}}
	case AnimationBounce:
		overshoot := compose(base, fmt.Sprintf("translateY(%dpx)", -dir*BounceOvershootPx))
		enter.Frames = []Keyframe{{0, 0, shifted}, {BounceOvershootAt, 1, overshoot}, {100, 1, rest}}
		exit.Frames = []Keyframe{{0, 1, rest}, {100, 0, shifted}}
	case AnimationScale:
		scaled := compose(base, "scale("+formatFloat(ScaleFrom)+")")
		enter.Frames = []Keyframe{{0, 0, scaled}, {100, 1, rest}}
		exit.Frames = []Keyframe{{0, 1, rest}, {100, 0, scaled}}
	default:
		enter.Frames = []Keyframe{{0, 1, rest}, {100, 1, rest}}
		exit.Frames = []Keyframe{{0, 1, rest}, {100, 1, rest}}
	}
	return enter, exit
}

// BackdropFor returns nil when no backdrop should be rendered.
func BackdropFor(kind string) *Backdrop {
	switch kind {
	case BackdropLight:
		return &Backdrop{Color: "rgba(0, 0, 0, 0.25)", BlurPx: 2}
	case BackdropStrong:
		return &Backdrop{Color: "rgba(0, 0, 0, 0.55)", BlurPx: 6}
	default:
		return nil
	}
}

// TriggerPlanFor converts the trigger fields to milliseconds and a percentage.
func TriggerPlanFor(a AnimationConfig) TriggerPlan {
	tp := TriggerPlan{Kind: a.Trigger}
	switch a.Trigger {
	case TriggerTime:
		tp.DelayMs = Millis(a.DelaySeconds)
	case TriggerScroll:
		tp.ScrollPercent = a.ScrollPx
	}
	return tp
}

// ScrollPercent is scrollTop / (scrollHeight - clientHeight) * 100. A page that cannot
// scroll reports 100.
func ScrollPercent(scrollTop, scrollHeight, clientHeight float64) float64 {
	span := scrollHeight - clientHeight
	if span <= 0 {
		return 100
	}
	return scrollTop / span * 100
}

// Millis converts seconds to whole milliseconds.
func Millis(seconds float64) int {
	return int(math.Round(seconds * 1000))
}

// DeclarationsCSS joins declarations into a CSS block body.
func DeclarationsCSS(decls []Declaration) string {
	var b strings.Builder
	for _, d := range decls {
		b.WriteString(d.Property)
		b.WriteString(": ")
		b.WriteString(d.Value)
		b.WriteString("; ")
	}
	return strings.TrimSpace(b.String())
}

// CSS renders the keyframe set as an @keyframes rule.
func (k KeyframeSet) CSS() string {
	var b strings.Builder
	b.WriteString("@keyframes ")
	b.WriteString(k.Name)
	b.WriteString(" { ")
	for _, f := range k.Frames {
		fmt.Fprintf(&b, "%d%% { opacity: %s; transform: %s; } ", f.Offset, formatFloat(f.Opacity), f.Transform)
	}
	b.WriteString("}")
	return b.String()
}

func compose(base, extra string) string {
	parts := make([]string, 0, 2)
	if base != "" && base != "none" {
		parts = append(parts, base)
	}
	if extra != "" {
		parts = append(parts, extra)
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

func px(v int) string {
	if v == 0 {
		return "0"
	}
	return strconv.Itoa(v) + "px"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
