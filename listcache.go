package inkwell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eringen/inkwell/query"
)

const (
	listingKeyPrefix = "inkwell:listing:"
	listingGenKey    = listingKeyPrefix + "gen"
)

// ListingCache keeps rendered listing pages in redis, keyed by the canonical
// query string and a generation number. Bumping the generation on every post
// write retires all cached pages at once. A nil cache, or one without a
// client, always loads.
type ListingCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *Metrics
	log     *zap.Logger
}

// NewListingCache creates a cache over client. Failed redis calls count in
// m.RedisErrors through a client hook.
func NewListingCache(client *redis.Client, ttl time.Duration, m *Metrics, log *zap.Logger) *ListingCache {
	if log == nil {
		log = zap.NewNop()
	}
	if client != nil && m != nil {
		client.AddHook(redisMetricsHook{errors: m.RedisErrors})
	}
	return &ListingCache{client: client, ttl: ttl, metrics: m, log: log.Named("listing_cache")}
}

// NewRedisClient parses url (redis://...) or a bare host:port address.
func NewRedisClient(url string) (*redis.Client, error) {
	if strings.Contains(url, "://") {
		opts, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: url}), nil
}

func (c *ListingCache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *ListingCache) count(result string) {
	if c.metrics != nil {
		c.metrics.ListingCache.WithLabelValues(result).Inc()
	}
}

func (c *ListingCache) key(ctx context.Context, q query.Query) (string, error) {
	gen, err := c.client.Get(ctx, listingGenKey).Result()
	if errors.Is(err, redis.Nil) {
		gen = "0"
	} else if err != nil {
		return "", err
	}
	return listingKeyPrefix + gen + ":" + q.Key(), nil
}

// Fetch returns the cached page for q, or calls load and caches its result.
// Redis failures fall back to load and are only logged.
func (c *ListingCache) Fetch(ctx context.Context, q query.Query, load func(context.Context) (query.Page[Post], error)) (query.Page[Post], error) {
	if !c.enabled() {
		return load(ctx)
	}

	key, err := c.key(ctx, q)
	if err != nil {
		c.count("error")
		c.log.Warn("listing cache unavailable", zap.Error(err))
		return load(ctx)
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var page query.Page[Post]
		if jerr := json.Unmarshal(raw, &page); jerr == nil {
			c.count("hit")
			return page, nil
		}
		c.log.Warn("discarding corrupt listing cache entry", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		c.count("error")
		c.log.Warn("listing cache read failed", zap.String("key", key), zap.Error(err))
		return load(ctx)
	}

	c.count("miss")
	page, err := load(ctx)
	if err != nil {
		return page, err
	}
	if data, err := json.Marshal(page); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warn("listing cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return page, nil
}

// Invalidate retires every cached page.
func (c *ListingCache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.client.Incr(ctx, listingGenKey).Err(); err != nil {
		c.log.Warn("listing cache invalidation failed", zap.Error(err))
	}
}
