package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	cacheVersionKey = "reporting:version"
	// BumpChannel is the pub/sub channel carrying cache version bumps.
	BumpChannel = "reporting.bump"

	defaultBuildTimeout = 30 * time.Second
)

// advanceVersion sets the version key only when the published value is newer.
var advanceVersion = redis.NewScript(`
local cur = tonumber(redis.call("GET", KEYS[1]) or "0")
local ver = tonumber(ARGV[1])
if ver > cur then
	redis.call("SET", KEYS[1], ARGV[1])
	return ver
end
return cur
`)

// Cache stores computed summaries in Redis under versioned keys. Bumping the
// version orphans every previous entry at once.
type Cache struct {
	client       *redis.Client
	ttl          time.Duration
	buildTimeout time.Duration
	metrics      *CacheMetrics
	group        singleflight.Group
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl, buildTimeout: defaultBuildTimeout}
}

// WithBuildTimeout bounds a shared build, which outlives the caller that started it.
func (c *Cache) WithBuildTimeout(d time.Duration) *Cache {
	if c != nil && d > 0 {
		c.buildTimeout = d
	}
	return c
}

// WithMetrics attaches hit/miss instrumentation.
func (c *Cache) WithMetrics(m *CacheMetrics) *Cache {
	if c != nil {
		c.metrics = m
	}
	return c
}

func (c *Cache) enabled() bool { return c != nil && c.client != nil }

// Version returns the current cache version, initialising it when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		ver = 0
	case err != nil:
		return 0, err
	}
	if ver > 0 {
		return ver, nil
	}
	if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
		return 0, err
	}
	return 1, nil
}

// BuildKey joins parts and suffixes the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if !c.enabled() {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", joined, ver), nil
}

// FetchJSON decodes the cached value at key into dest, computing and storing it with
// loader on a miss. Concurrent misses for one key share a single loader call. The
// shared call is detached from any one caller, so a caller that gives up returns its
// own ctx error without failing the others.
func (c *Cache) FetchJSON(ctx context.Context, report, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("reporting cache: loader required")
	}
	if !c.enabled() {
		raw, err := encode(ctx, loader)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		c.metrics.hit(report)
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		// Redis is down: serve the computed value without storing it.
		raw, err := encode(ctx, loader)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	c.metrics.miss(report)

	resultChan := c.group.DoChan(key, func() (any, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.buildTimeout)
		defer cancel()

		start := time.Now()
		raw, err := encode(buildCtx, loader)
		if err != nil {
			return nil, err
		}
		c.metrics.observeBuild(report, time.Since(start))
		// A failed write only costs the next caller a recompute.
		_ = c.client.Set(buildCtx, key, raw, c.ttl).Err()
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), dest)
	}
}

func encode(ctx context.Context, loader func(context.Context) (any, error)) ([]byte, error) {
	value, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(value)
}

// Bump invalidates every entry by incrementing the version and announcing it.
func (c *Cache) Bump(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, BumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// advance raises the stored version to ver and returns the version now in effect.
// Bumps delivered out of order never move it backwards.
func (c *Cache) advance(ctx context.Context, ver int64) (int64, error) {
	return advanceVersion.Run(ctx, c.client, []string{cacheVersionKey}, ver).Int64()
}

// ListenForInvalidation follows version bumps published by other processes until
// ctx is cancelled.
func (c *Cache) ListenForInvalidation(ctx context.Context, channel string) error {
	if !c.enabled() {
		return nil
	}
	if channel == "" {
		channel = BumpChannel
	}
	pubsub := c.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if ver, err := strconv.ParseInt(msg.Payload, 10, 64); err == nil && ver > 0 {
					_ = c.client.Set(ctx, cacheVersionKey, ver, 0).Err()
					continue
				}
				_ = c.client.Incr(ctx, cacheVersionKey).Err()
			}
		}
	}()
	return nil
}
