package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evanschultz/kanbases/internal/app"
)

// DefaultKeyPrefix namespaces cached config values.
const DefaultKeyPrefix = "kanbases:config:"

// ConfigCache wraps a config store with a redis read-through cache.
type ConfigCache struct {
	base   app.ConfigStore
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	logger app.Logger
}

// Option customizes a ConfigCache.
type Option func(*ConfigCache)

// WithKeyPrefix overrides the redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *ConfigCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithLogger routes cache degradation warnings to logger.
func WithLogger(logger app.Logger) Option {
	return func(c *ConfigCache) {
		c.logger = logger
	}
}

// New creates a caching config store using the provided redis client and TTL.
func New(base app.ConfigStore, client *redis.Client, ttl time.Duration, opts ...Option) *ConfigCache {
	if base == nil {
		panic("rediscache.New: base config store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	c := &ConfigCache{
		base:   base,
		redis:  client,
		ttl:    ttl,
		prefix: DefaultKeyPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// ConfigValue reads redis first and falls back to the base store on a miss or redis failure.
func (c *ConfigCache) ConfigValue(ctx context.Context, key string) (string, bool, error) {
	if value, ok := c.load(ctx, key); ok {
		return value, true, nil
	}
	value, ok, err := c.base.ConfigValue(ctx, key)
	if err != nil || !ok {
		return value, ok, err
	}
	c.store(ctx, key, value)
	return value, true, nil
}

// SetConfigValue writes through to the base store and evicts the cached copy.
func (c *ConfigCache) SetConfigValue(ctx context.Context, key, value string) error {
	if err := c.base.SetConfigValue(ctx, key, value); err != nil {
		return err
	}
	c.evict(ctx, key)
	return nil
}

func (c *ConfigCache) load(ctx context.Context, key string) (string, bool) {
	if c.redis == nil {
		return "", false
	}
	value, err := c.redis.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.warn("config cache read failed", key, err)
		}
		return "", false
	}
	return value, true
}

func (c *ConfigCache) store(ctx context.Context, key, value string) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	if err := c.redis.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		c.warn("config cache write failed", key, err)
	}
}

func (c *ConfigCache) evict(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, c.prefix+key).Err(); err != nil {
		c.warn("config cache evict failed", key, err)
	}
}

func (c *ConfigCache) warn(msg, key string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, "key", key, "err", err)
}
