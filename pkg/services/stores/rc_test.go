package stores

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRC(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := NewRC(context.Background(), "redis://"+mr.Addr()+"/1")
	require.NoError(t, err)
	defer rc.Close()

	_, err = NewRC(context.Background(), "redis://127.0.0.1:1/1")
	assert.ErrorContains(t, err, "ping redis")

	_, err = NewRC(context.Background(), "mysql://nope")
	assert.ErrorContains(t, err, "parse redis uri")
}

func TestRedisOrMemory(t *testing.T) {
	ctx := context.Background()

	st, closeFn := RedisOrMemory(ctx, "redis://127.0.0.1:1/1", time.Hour)
	defer closeFn()
	require.IsType(t, &MemorySnapshots{}, st)
	require.NoError(t, st.PutSnapshot(ctx, "k", sampleSnapshot()))
	snap, err := st.GetSnapshot(ctx, "k")
	require.NoError(t, err)
	assert.Len(t, snap.History, 2)

	mr := miniredis.RunT(t)
	st, closeFn = RedisOrMemory(ctx, "redis://"+mr.Addr(), time.Hour)
	defer closeFn()
	require.NoError(t, st.PutSnapshot(ctx, "k", sampleSnapshot()))
	assert.True(t, mr.Exists("snap-k"))
}
