package matchsvc

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs3219-g21/matchmaker/internal/logging"
	"github.com/cs3219-g21/matchmaker/internal/rediskeys"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func newTestService(rdb *redis.Client) *Service {
	return New(rdb, logging.New(), time.Second, 200*time.Millisecond, 150*time.Millisecond, 60*time.Millisecond)
}

// Simple pair: two users converge on the same match_id.
func TestFindMatch_SimplePair(t *testing.T) {
	rdb := setupTestRedis(t)
	svc := newTestService(rdb)
	ctx := context.Background()

	type outcome struct {
		res FindMatchResult
		err error
	}
	aCh := make(chan outcome, 1)

	go func() {
		res, err := svc.FindMatch(ctx, "alice", "Alice", "Easy", "Array")
		aCh <- outcome{res, err}
	}()

	// Give alice time to enqueue before bob arrives.
	time.Sleep(30 * time.Millisecond)

	bRes, err := svc.FindMatch(ctx, "bob", "Bob", "Easy", "Array")
	require.NoError(t, err)
	require.NotEmpty(t, bRes.MatchID)

	aOut := <-aCh
	require.NoError(t, aOut.err)
	assert.Equal(t, bRes.MatchID, aOut.res.MatchID, "both sides must converge on the same match id")

	// Invariant: the bucket list is empty and no inqueue markers linger
	// beyond the match_found flag.
	llen, err := rdb.LLen(ctx, rediskeys.Queue("Easy", "Array")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), llen)
}

// Abandoned confirmation: only one side confirms; the supervisor fires
// and the confirmed side is told partner_declined.
func TestConfirmMatch_AbandonedBySupervisor(t *testing.T) {
	rdb := setupTestRedis(t)
	svc := newTestService(rdb)
	ctx := context.Background()

	matchID := formTestPair(ctx, t, svc, "alice", "bob")

	confirmCh := make(chan ConfirmResult, 1)
	go func() {
		res, err := svc.ConfirmMatch(ctx, matchID, "alice")
		require.NoError(t, err)
		confirmCh <- res
	}()

	res := <-confirmCh
	assert.True(t, res.Declined, "alice should be told partner_declined once the supervisor times out bob")

	// Match record must be gone.
	exists, err := rdb.Exists(ctx, rediskeys.Match(matchID)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)
}

// Timeout on find: no partner ever arrives.
func TestFindMatch_TimeoutNoPartner(t *testing.T) {
	rdb := setupTestRedis(t)
	svc := newTestService(rdb)
	ctx := context.Background()

	res, err := svc.FindMatch(ctx, "solo", "Solo", "Hard", "Graphs")
	require.NoError(t, err)
	assert.Equal(t, "no_match", res.Status)
	assert.Contains(t, res.Message, "could not find a match")

	exists, err := rdb.Exists(ctx, rediskeys.InQueue("solo")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists, "inqueue must be cleared after timeout")

	llen, err := rdb.LLen(ctx, rediskeys.Queue("Hard", "Graphs")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), llen)
}

// terminate_match round-trip: queue state returns to its pre-call shape.
func TestTerminateMatch_RoundTrip(t *testing.T) {
	rdb := setupTestRedis(t)
	svc := newTestService(rdb)
	ctx := context.Background()

	findCh := make(chan FindMatchResult, 1)
	go func() {
		res, _ := svc.FindMatch(ctx, "carl", "Carl", "Medium", "Trees")
		findCh <- res
	}()
	time.Sleep(30 * time.Millisecond)

	err := svc.TerminateMatch(ctx, "carl", "Medium", "Trees")
	require.NoError(t, err)

	res := <-findCh
	assert.Equal(t, "terminated", res.Status)

	exists, err := rdb.Exists(ctx, rediskeys.InQueue("carl")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)
}

// exit-without-heartbeat-style client error: terminating a user who never
// queued is a client error with no state change.
func TestTerminateMatch_NotQueuedIsClientError(t *testing.T) {
	rdb := setupTestRedis(t)
	svc := newTestService(rdb)
	ctx := context.Background()

	err := svc.TerminateMatch(ctx, "ghost", "Easy", "Array")
	assert.ErrorIs(t, err, ErrNotQueued)
}

func formTestPair(ctx context.Context, t *testing.T, svc *Service, userA, userB string) string {
	t.Helper()
	resCh := make(chan FindMatchResult, 1)
	go func() {
		res, err := svc.FindMatch(ctx, userA, userA, "Easy", "Array")
		require.NoError(t, err)
		resCh <- res
	}()
	time.Sleep(30 * time.Millisecond)

	res, err := svc.FindMatch(ctx, userB, userB, "Easy", "Array")
	require.NoError(t, err)
	<-resCh
	return res.MatchID
}
