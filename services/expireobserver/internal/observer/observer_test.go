package observer

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs3219-g21/expireobserver/internal/logging"
)

func TestHandleExpired_AppendsStreamEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	obs := New(rdb, rdb, logging.New(), "expired_ttl")
	ctx := context.Background()

	obs.handleExpired(ctx, "heartbeat:alice")

	entries, err := rdb.XRange(ctx, "expired_ttl", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "heartbeat:alice", entries[0].Values["key"])
	assert.Equal(t, "expired", entries[0].Values["event"])
	assert.NotEmpty(t, entries[0].Values["timestamp"])
}

func TestRun_RepublishesKeyspaceExpiryAsStreamEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	obs := New(rdb, rdb, logging.New(), "expired_ttl")
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	go obs.Run(ctx, 0)
	time.Sleep(50 * time.Millisecond)

	mr.Publish("__keyevent@0__:expired", "heartbeat:bob")
	time.Sleep(100 * time.Millisecond)

	entries, err := rdb.XRange(context.Background(), "expired_ttl", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "heartbeat:bob", entries[0].Values["key"])
}
