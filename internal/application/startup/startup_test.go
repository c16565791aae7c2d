package startup

import (
	"context"
	"testing"

	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/consent-banner-go/pkg/config"
	"github.com/alicebob/miniredis/v2"
)

func TestNewWidgetCacheSelectsBackend(t *testing.T) {
	logger := logging.NewDiscardLogger()
	prev := config.RedisURL
	defer func() { config.RedisURL = prev }()

	config.RedisURL = ""
	cache, closeFn, err := NewWidgetCache(context.Background(), logger)
	if err != nil {
		t.Fatal(err)
	}
	closeFn()
	if _, ok := cache.(*stores.MemoryWidgetStore); !ok {
		t.Errorf("empty REDIS_URL gave %T", cache)
	}
	if n := len(cleanupWorkers(cache, logger)); n != 2 {
		t.Errorf("memory backend workers = %d, want 2", n)
	}

	mr := miniredis.RunT(t)
	config.RedisURL = "redis://" + mr.Addr()
	cache, closeFn, err = NewWidgetCache(context.Background(), logger)
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()
	if got := cache.Stats().Backend; got != "redis" {
		t.Errorf("backend = %q", got)
	}
	if n := len(cleanupWorkers(cache, logger)); n != 1 {
		t.Errorf("redis backend workers = %d, want 1", n)
	}
}

func TestNewWidgetCacheFailsWhenRedisIsDown(t *testing.T) {
	prev := config.RedisURL
	defer func() { config.RedisURL = prev }()

	mr := miniredis.RunT(t)
	config.RedisURL = "redis://" + mr.Addr()
	mr.Close()

	if _, _, err := NewWidgetCache(context.Background(), logging.NewDiscardLogger()); err == nil {
		t.Error("expected a connection error")
	}
}
