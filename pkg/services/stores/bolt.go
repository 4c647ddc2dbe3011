package stores

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/liut/insightchat/pkg/models/convo"
)

var bucketSnapshots = []byte("snapshots")

// BoltPath returns path, or ~/.insightchat/state.bolt when empty.
func BoltPath(path string) string {
	if len(path) > 0 {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".insightchat", "state.bolt")
}

// BoltSnapshots is a file backed SnapshotStore for the terminal client.
type BoltSnapshots struct {
	db *bolt.DB
}

var _ SnapshotStore = (*BoltSnapshots)(nil)

// OpenBoltSnapshots opens (or creates) the database file.
func OpenBoltSnapshots(path string) (*BoltSnapshots, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucketSnapshots)
		return e
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltSnapshots{db: db}, nil
}

// Close ...
func (s *BoltSnapshots) Close() error {
	return s.db.Close()
}

func (s *BoltSnapshots) GetSnapshot(_ context.Context, key string) (*convo.Snapshot, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNoSnapshot
	}
	snap := new(convo.Snapshot)
	if err = snap.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func (s *BoltSnapshots) PutSnapshot(_ context.Context, key string, snap *convo.Snapshot) error {
	data, err := snap.MarshalBinary()
	if err != nil {
		return err
	}
	return s.putRaw(key, data)
}

func (s *BoltSnapshots) putRaw(key string, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketSnapshots)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}
