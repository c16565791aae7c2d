package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/domain/widgets"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "consent"

// RedisWidgetStore implements WidgetCache on Redis so several server processes share one
// cache. Redis failures degrade to misses.
type RedisWidgetStore struct {
	client       *redis.Client
	ttl          time.Duration
	logger       *logging.ChanneledLogger
	hits, misses atomic.Int64
}

// NewRedisClient parses a redis:// URL and checks connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func NewRedisWidgetStore(client *redis.Client, ttl time.Duration, logger *logging.ChanneledLogger) *RedisWidgetStore {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	logger.Cache().Info("Initializing redis widget cache", "addr", client.Options().Addr, "ttl", ttl)
	return &RedisWidgetStore{client: client, ttl: ttl, logger: logger}
}

func embedKey(tenantID, widgetID string) string {
	return fmt.Sprintf("%s:%s:widget:%s", keyPrefix, tenantID, widgetID)
}

func (s *RedisWidgetStore) GetEmbed(ctx context.Context, tenantID, widgetID string) (*widgets.EmbedResponse, bool) {
	raw, err := s.client.Get(ctx, embedKey(tenantID, widgetID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.LogError(logging.ChannelCache, "redis get", err, tenantID, map[string]any{"widgetId": widgetID})
		}
		s.misses.Add(1)
		s.logger.LogCacheOperation("get", widgetID, false, tenantID)
		return nil, false
	}
	var embed widgets.EmbedResponse
	if err := json.Unmarshal(raw, &embed); err != nil {
		s.logger.LogError(logging.ChannelCache, "redis decode", err, tenantID, map[string]any{"widgetId": widgetID})
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	s.logger.LogCacheOperation("get", widgetID, true, tenantID)
	return &embed, true
}

func (s *RedisWidgetStore) SetEmbed(ctx context.Context, tenantID, widgetID string, embed *widgets.EmbedResponse) {
	raw, err := json.Marshal(embed)
	if err != nil {
		s.logger.LogError(logging.ChannelCache, "redis encode", err, tenantID, map[string]any{"widgetId": widgetID})
		return
	}
	if err := s.client.Set(ctx, embedKey(tenantID, widgetID), raw, s.ttl).Err(); err != nil {
		s.logger.LogError(logging.ChannelCache, "redis set", err, tenantID, map[string]any{"widgetId": widgetID})
		return
	}
	s.logger.LogCacheOperation("set", widgetID, false, tenantID)
}

func (s *RedisWidgetStore) InvalidateEmbed(ctx context.Context, tenantID, widgetID string) {
	if err := s.client.Del(ctx, embedKey(tenantID, widgetID)).Err(); err != nil {
		s.logger.LogError(logging.ChannelCache, "redis del", err, tenantID, map[string]any{"widgetId": widgetID})
	}
	s.logger.LogCacheOperation("invalidate", widgetID, false, tenantID)
}

// Stats counts entries with a SCAN over the key prefix.
func (s *RedisWidgetStore) Stats() interfaces.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n := 0
	iter := s.client.Scan(ctx, 0, keyPrefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return interfaces.Stats{Backend: "redis", Hits: s.hits.Load(), Misses: s.misses.Load(), Entries: n}
}
