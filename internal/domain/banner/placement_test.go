package banner

import (
	"errors"
	"strings"
	"testing"
)

func declMap(decls []Declaration) map[string]string {
	m := make(map[string]string, len(decls))
	for _, d := range decls {
		m[d.Property] = d.Value
	}
	return m
}

func TestPositionRuleTopLeft(t *testing.T) {
	m := declMap(PositionRule(PositionConfig{Vertical: VerticalTop, Horizontal: HorizontalLeft, Width: WidthCompact, OffsetX: 20, OffsetY: 10}))
	if m["top"] != "10px" || m["left"] != "20px" {
		t.Errorf("unexpected pins: %v", m)
	}
	if _, ok := m["bottom"]; ok {
		t.Error("top placement must not set bottom")
	}
	if m["max-width"] != "380px" {
		t.Errorf("compact max-width = %s", m["max-width"])
	}
	if m["transform"] != "none" {
		t.Errorf("transform = %s, want none", m["transform"])
	}
}

func TestPositionRuleCentered(t *testing.T) {
	m := declMap(PositionRule(PositionConfig{Vertical: VerticalCenter, Horizontal: HorizontalCenter, Width: WidthNormal}))
	if m["top"] != "50%" || m["left"] != "50%" {
		t.Errorf("centered box should be at 50%%/50%%: %v", m)
	}
	if m["transform"] != "translate(-50%, -50%)" {
		t.Errorf("transform = %s", m["transform"])
	}
}

func TestStretchedOverridesHorizontal(t *testing.T) {
	m := declMap(PositionRule(PositionConfig{Vertical: VerticalBottom, Horizontal: HorizontalRight, Width: WidthStretched, OffsetX: 40, OffsetY: 0}))
	if m["left"] != "0" || m["right"] != "0" || m["width"] != "100%" {
		t.Errorf("stretched must be edge to edge: %v", m)
	}
	if m["bottom"] != "0" {
		t.Errorf("bottom = %s", m["bottom"])
	}
	if m["transform"] != "none" {
		t.Errorf("stretched bottom banner needs no compensation, got %s", m["transform"])
	}
}

func TestDirectionFollowsVertical(t *testing.T) {
	if Direction(VerticalTop) != -1 {
		t.Error("top banners enter from above")
	}
	if Direction(VerticalBottom) != 1 {
		t.Error("bottom banners enter from below")
	}
}

func TestSlideKeyframesEnterFromAbove(t *testing.T) {
	enter, exit := Keyframes(AnimationSlide, "none", Direction(VerticalTop))
	if got := enter.Frames[0].Transform; got != "translateY(-24px)" {
		t.Errorf("enter start = %s", got)
	}
	if got := enter.Frames[len(enter.Frames)-1]; got.Opacity != 1 || got.Transform != "none" {
		t.Errorf("enter end = %+v", got)
	}
	if got := exit.Frames[len(exit.Frames)-1].Transform; got != "translateY(-24px)" {
		t.Errorf("exit end = %s", got)
	}
}

func TestBounceAddsSingleOvershoot(t *testing.T) {
	enter, _ := Keyframes(AnimationBounce, "translateX(-50%)", 1)
	if len(enter.Frames) != 3 {
		t.Fatalf("bounce enter should have 3 frames, got %d", len(enter.Frames))
	}
	mid := enter.Frames[1]
	if mid.Offset != BounceOvershootAt || mid.Transform != "translateX(-50%) translateY(-8px)" {
		t.Errorf("overshoot frame = %+v", mid)
	}
}

func TestNoneKeyframesAreNoOp(t *testing.T) {
	enter, exit := Keyframes(AnimationNone, "none", 1)
	for _, set := range []KeyframeSet{enter, exit} {
		for _, f := range set.Frames {
			if f.Opacity != 1 || f.Transform != "none" {
				t.Errorf("%s frame %+v should be a no-op", set.Name, f)
			}
		}
	}
}

func TestKeyframeCSS(t *testing.T) {
	enter, _ := Keyframes(AnimationFade, "none", 1)
	css := enter.CSS()
	if !strings.HasPrefix(css, "@keyframes cc-enter {") {
		t.Errorf("unexpected css %q", css)
	}
	if !strings.Contains(css, "0% { opacity: 0; transform: none; }") {
		t.Errorf("missing first frame: %q", css)
	}
}

func TestScrollPercent(t *testing.T) {
	if got := ScrollPercent(500, 1800, 800); got != 50 {
		t.Errorf("ScrollPercent = %v, want 50", got)
	}
	if got := ScrollPercent(0, 600, 800); got != 100 {
		t.Errorf("non-scrollable page = %v, want 100", got)
	}
}

func TestPlanForTiming(t *testing.T) {
	c := Default()
	c.Animation.SpeedSeconds = 0.35
	c.Animation.Trigger = TriggerTime
	c.Animation.DelaySeconds = 2
	c.Animation.Backdrop = BackdropStrong
	p := PlanFor(c)
	if p.DurationMs != 350 {
		t.Errorf("DurationMs = %d", p.DurationMs)
	}
	if p.Trigger.Kind != TriggerTime || p.Trigger.DelayMs != 2000 {
		t.Errorf("trigger = %+v", p.Trigger)
	}
	if p.Backdrop == nil || p.Backdrop.BlurPx != 6 {
		t.Errorf("backdrop = %+v", p.Backdrop)
	}
}

func TestNormalizeReplacesFieldByField(t *testing.T) {
	c := Default()
	c.Design.Shadow = "glow"
	c.Design.BgColor = "no-such-preset"
	c.Position.Vertical = "middle"
	c.Consent.HideAfterDays = 9000
	c.Text.Title = "Keep me"

	n, fixed := Normalize(c)
	if n.Design.Shadow != ShadowSoft || n.Design.BgColor != DefaultBackground || n.Position.Vertical != VerticalBottom {
		t.Errorf("invalid fields not defaulted: %+v", n)
	}
	if n.Consent.HideAfterDays != DefaultHideAfterDays {
		t.Errorf("hideAfterDays = %d", n.Consent.HideAfterDays)
	}
	if n.Text.Title != "Keep me" {
		t.Error("valid fields must be preserved")
	}
	if len(fixed) != 4 {
		t.Errorf("fixed = %v", fixed)
	}
}

func TestValidateRejectsExitIntent(t *testing.T) {
	c := Default()
	c.Animation.Trigger = TriggerExitIntent
	if err := Validate(c); !errors.Is(err, ErrUnsupportedTrigger) {
		t.Errorf("Validate = %v, want ErrUnsupportedTrigger", err)
	}
	if _, err := Resolve(c); err == nil {
		t.Error("Resolve should fail for exit-intent")
	}
	c.Animation.Trigger = ""
	if _, err := Resolve(c); err != nil {
		t.Errorf("empty trigger should default to immediate: %v", err)
	}
}
