package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisClient = redis.UniversalClient

// NewRC connects to redisURI and pings it once.
func NewRC(ctx context.Context, redisURI string) (RedisClient, error) {
	opt, err := redis.ParseURL(redisURI)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}
	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err = rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rc, nil
}

// RedisOrMemory returns redis backed snapshots, or process memory ones when
// redis cannot be reached. The close func releases the redis client.
func RedisOrMemory(ctx context.Context, redisURI string, retention time.Duration) (SnapshotStore, func()) {
	rc, err := NewRC(ctx, redisURI)
	if err != nil {
		logger().Warnw("redis unavailable, keep snapshots in memory", "uri", redisURI, "err", err)
		return NewMemorySnapshots(), func() {}
	}
	return NewRedisSnapshots(rc, retention), func() { _ = rc.Close() }
}
