package convo

import (
	"encoding/json"
	"errors"
	"time"
)

// Role of a turn speaker
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid ...
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn 一轮消息
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Log is the ordered conversation, oldest first.
type Log []Turn

// Clone returns a copy that never aliases z. A nil or empty log clones to an empty, non-nil slice.
func (z Log) Clone() Log {
	out := make(Log, len(z))
	copy(out, z)
	return out
}

// TimeLayout matches the ISO-8601 form produced by browsers' Date.toISOString.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	ErrSnapshotTimestamp = errors.New("snapshot: invalid timestamp")
	ErrSnapshotRole      = errors.New("snapshot: invalid turn role")
)

// Snapshot is the durable copy of a Log.
type Snapshot struct {
	History   Log    `json:"history"`
	Timestamp string `json:"timestamp"`
}

// NewSnapshot stamps log with t in UTC.
func NewSnapshot(log Log, t time.Time) *Snapshot {
	return &Snapshot{History: log.Clone(), Timestamp: t.UTC().Format(TimeLayout)}
}

// SavedAt parses the timestamp.
func (z *Snapshot) SavedAt() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, z.Timestamp)
	if err != nil {
		return time.Time{}, ErrSnapshotTimestamp
	}
	return t, nil
}

// Validate checks the structure only: a parsable timestamp and known roles.
func (z *Snapshot) Validate() error {
	if _, err := z.SavedAt(); err != nil {
		return err
	}
	for _, t := range z.History {
		if !t.Role.Valid() {
			return ErrSnapshotRole
		}
	}
	return nil
}

// Fresh reports whether the snapshot is younger than lifetime at now.
func (z *Snapshot) Fresh(now time.Time, lifetime time.Duration) bool {
	t, err := z.SavedAt()
	if err != nil {
		return false
	}
	return now.Sub(t) < lifetime
}

// MarshalBinary implements the encoding.BinaryMarshaler interface.
func (z *Snapshot) MarshalBinary() (data []byte, err error) {
	data, err = json.Marshal(z)
	return
}

// UnmarshalBinary unmarshal a binary representation of itself. for redis result.Scan
func (z *Snapshot) UnmarshalBinary(data []byte) error {
	var t Snapshot
	err := json.Unmarshal(data, &t)
	if err == nil {
		*z = t
	}
	return err
}
