package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/arcana-labs/arcana-backend/internal/platform/logger"
)

const (
	retryAttempts = 3
	retryBaseWait = 100 * time.Millisecond
)

type redisCache struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewRedis connects using REDIS_ADDR and verifies the connection before
// returning. Transient command failures are retried with capped backoff;
// a backend that stays unreachable is fatal to the request, by contract.
func NewRedis(log *logger.Logger) (Cache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisCache{
		log: log.With("service", "RedisCache"),
		rdb: rdb,
	}, nil
}

func transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "LOADING")
}

func (c *redisCache) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			wait := retryBaseWait << (attempt - 1)
			c.log.Warn("retrying redis op", "op", op, "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		err = fn()
		if err == nil || !transient(err) {
			return err
		}
	}
	return fmt.Errorf("redis %s: %w", op, err)
}

func (c *redisCache) Get(ctx context.Context, ns Namespace, key string) ([]byte, bool, error) {
	var val []byte
	var found bool
	err := c.withRetry(ctx, "get", func() error {
		raw, err := c.rdb.Get(ctx, ns.Key(key)).Bytes()
		if errors.Is(err, goredis.Nil) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		val, found = raw, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return val, found, nil
}

func (c *redisCache) Set(ctx context.Context, ns Namespace, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ns.TTL()
	}
	return c.withRetry(ctx, "set", func() error {
		return c.rdb.Set(ctx, ns.Key(key), value, ttl).Err()
	})
}

func (c *redisCache) Delete(ctx context.Context, ns Namespace, key string) error {
	return c.withRetry(ctx, "del", func() error {
		return c.rdb.Del(ctx, ns.Key(key)).Err()
	})
}

func (c *redisCache) Batch() Batch {
	return &redisBatch{cache: c, pipe: c.rdb.Pipeline()}
}

// redisBatch queues operations on a real pipeline. One round trip, no
// atomicity guarantee, matching the sequential fallback's contract.
type redisBatch struct {
	cache *redisCache
	pipe  goredis.Pipeliner
}

func (b *redisBatch) Set(ns Namespace, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = ns.TTL()
	}
	b.pipe.Set(context.Background(), ns.Key(key), value, ttl)
}

func (b *redisBatch) Delete(ns Namespace, key string) {
	b.pipe.Del(context.Background(), ns.Key(key))
}

// Exec runs once: the pipeline drains its queue on execution, so a blind
// retry would replay nothing.
func (b *redisBatch) Exec(ctx context.Context) error {
	if _, err := b.pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}

func (c *redisCache) Close() error {
	return c.rdb.Close()
}
