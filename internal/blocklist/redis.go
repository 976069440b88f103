package blocklist

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisSetKey is the Redis set membership of which answers Contains.
const redisSetKey = "walportal:blocklist"

// RedisChecker backs Checker with a Redis set (`blocklist_redis_url`),
// the key/value service option of SPEC_FULL.md §4.6.
type RedisChecker struct {
	client *redis.Client
	setKey string
}

// NewRedisChecker parses redisURL (a `redis://` or `rediss://` connection
// string) and returns a Checker over the named set. An empty setName uses
// redisSetKey.
func NewRedisChecker(redisURL string, setName string) (*RedisChecker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("blocklist: parsing redis url: %w", err)
	}
	if setName == "" {
		setName = redisSetKey
	}
	return &RedisChecker{
		client: redis.NewClient(opts),
		setKey: setName,
	}, nil
}

// Init pings the Redis server to fail fast on a bad connection.
func (c *RedisChecker) Init(ctx context.Context) error {
	return c.Ping(ctx)
}

// Contains reports whether key is a member of the backing Redis set.
func (c *RedisChecker) Contains(ctx context.Context, key string) (bool, error) {
	ok, err := c.client.SIsMember(ctx, c.setKey, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("blocklist: redis SISMEMBER: %w", err)
	}
	return ok, nil
}

// Ping verifies the Redis connection is alive.
func (c *RedisChecker) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("blocklist: redis ping: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (c *RedisChecker) Close() error {
	return c.client.Close()
}
