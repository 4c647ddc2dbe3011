package stores

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/liut/insightchat/pkg/models/convo"
)

const (
	snapshotKeyPrefix = "snap-"
)

var (
	ErrNoSnapshot = errors.New("snapshot not found")
)

// SnapshotStore keeps one conversation snapshot per key.
// Get returns ErrNoSnapshot when nothing was stored; any other error means
// the stored value could not be read or decoded.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, key string) (*convo.Snapshot, error)
	PutSnapshot(ctx context.Context, key string, snap *convo.Snapshot) error
}

// NewRedisSnapshots stores snapshots as JSON strings. retention is the key ttl,
// 0 keeps keys forever; it is independent of the restore lifetime.
func NewRedisSnapshots(rc RedisClient, retention time.Duration) SnapshotStore {
	return &redisSnapshots{rc: rc, retention: retention}
}

type redisSnapshots struct {
	rc        RedisClient
	retention time.Duration
}

func (s *redisSnapshots) GetSnapshot(ctx context.Context, key string) (*convo.Snapshot, error) {
	snap := new(convo.Snapshot)
	err := s.rc.Get(ctx, snapshotKeyPrefix+key).Scan(snap)
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *redisSnapshots) PutSnapshot(ctx context.Context, key string, snap *convo.Snapshot) error {
	err := s.rc.Set(ctx, snapshotKeyPrefix+key, snap, s.retention).Err()
	if err != nil {
		logger().Infow("put snapshot fail", "key", key, "err", err)
		return err
	}
	logger().Debugw("put snapshot ok", "key", key, "turns", len(snap.History))
	return nil
}

// NewMemorySnapshots keeps raw encoded snapshots in process memory.
func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{data: make(map[string][]byte)}
}

// MemorySnapshots ...
type MemorySnapshots struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ SnapshotStore = (*MemorySnapshots)(nil)

func (s *MemorySnapshots) GetSnapshot(_ context.Context, key string) (*convo.Snapshot, error) {
	s.mu.RLock()
	b, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNoSnapshot
	}
	snap := new(convo.Snapshot)
	if err := snap.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func (s *MemorySnapshots) PutSnapshot(_ context.Context, key string, snap *convo.Snapshot) error {
	b, err := snap.MarshalBinary()
	if err != nil {
		return err
	}
	s.PutRaw(key, b)
	return nil
}

// PutRaw stores bytes as they are, e.g. a value written by another client.
func (s *MemorySnapshots) PutRaw(key string, b []byte) {
	s.mu.Lock()
	s.data[key] = b
	s.mu.Unlock()
}

// Raw ...
func (s *MemorySnapshots) Raw(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[key]
	return b, ok
}
