package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestChannelsWriteToFiles(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	cl, err := NewChanneledLogger(&LoggerConfig{
		OutputToFile:    true,
		OutputToConsole: true,
		LogDirectory:    dir,
		Console:         &console,
		DefaultLevel:    slog.LevelInfo,
	})
	if err != nil {
		t.Fatal(err)
	}

	cl.WithTenant(ChannelEmbed, "acme").Info("snippet generated", "widgetId", "w1")
	cl.LogError(ChannelAnalytics, "ingest", errors.New("boom"), "acme", map[string]any{"widgetId": "w1"})
	cl.Debug().Debug("hidden")
	if err := cl.Close(); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "embed.log"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"channel":"embed"`, `"tenantId":"acme"`, `"widgetId":"w1"`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("embed.log missing %s: %s", want, raw)
		}
	}
	raw, _ = os.ReadFile(filepath.Join(dir, "analytics.log"))
	if !strings.Contains(string(raw), `"error":"boom"`) {
		t.Errorf("analytics.log = %s", raw)
	}
	raw, _ = os.ReadFile(filepath.Join(dir, "debug.log"))
	if len(raw) != 0 {
		t.Errorf("debug below level was written: %s", raw)
	}
	if !strings.Contains(console.String(), "snippet generated") {
		t.Errorf("console = %q", console.String())
	}
}

func TestSetChannelLevel(t *testing.T) {
	var console bytes.Buffer
	cl, err := NewChanneledLogger(&LoggerConfig{OutputToConsole: true, JSONConsole: true, Console: &console, DefaultLevel: slog.LevelInfo})
	if err != nil {
		t.Fatal(err)
	}
	cl.Cache().Debug("before")
	if err := cl.SetChannelLevel(ChannelCache, slog.LevelDebug); err != nil {
		t.Fatal(err)
	}
	cl.Cache().Debug("after")
	if strings.Contains(console.String(), "before") || !strings.Contains(console.String(), "after") {
		t.Errorf("console = %s", console.String())
	}
	if err := cl.SetChannelLevel("nope", slog.LevelDebug); err == nil {
		t.Error("unknown channel accepted")
	}
	if cl.ChannelLevels()["cache"] != "DEBUG" {
		t.Errorf("levels = %v", cl.ChannelLevels())
	}
}

func TestDiscardLoggerIsSilent(t *testing.T) {
	cl := NewDiscardLogger()
	cl.System().Error("nothing")
	cl.LogStartupPhase("x", 0, false)
}
