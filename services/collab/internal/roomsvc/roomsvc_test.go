package roomsvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs3219-g21/roommanager/internal/eventqueue"
	"github.com/cs3219-g21/roommanager/internal/logging"
	"github.com/cs3219-g21/roommanager/internal/models"
	"github.com/cs3219-g21/roommanager/internal/questionclient"
	"github.com/cs3219-g21/roommanager/internal/rediskeys"
	"github.com/cs3219-g21/roommanager/internal/reviewclient"
	"github.com/cs3219-g21/roommanager/internal/wsgateway"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func newTestService(t *testing.T, rdb *redis.Client, graceHold, graceHoldPoll time.Duration) (*Service, *httptest.Server) {
	t.Helper()
	qServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"Two Sum","description":"d","code_template":"t","solution_sample":"s","difficulty":"Easy","category":"Array"}`))
	}))
	t.Cleanup(qServer.Close)

	reviewServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(reviewServer.Close)

	gw := wsgateway.New("", logging.New())
	svc := New(rdb, rdb, gw, questionclient.New(qServer.URL), reviewclient.New(reviewServer.URL), logging.New(), "test-consumer",
		100*time.Millisecond, graceHold, graceHoldPoll, time.Second)
	return svc, qServer
}

func confirmedEvent(matchID, u1, u2 string) models.CreateRoomEvent {
	return models.CreateRoomEvent{
		MatchID: matchID, UserOne: u1, UserOneName: "Alice", UserTwo: u2, UserTwoName: "Bob",
		Difficulty: "Easy", Category: "Array",
	}
}

// The poller builds a room from a confirmed match.
func TestPollCreateRoom_BuildsBothSnapshots(t *testing.T) {
	rdb := setupTestRedis(t)
	svc, _ := newTestService(t, rdb, time.Second, 10*time.Millisecond)
	ctx := context.Background()

	eq := eventqueue.New(rdb, rdb)
	require.NoError(t, rdb.HSet(ctx, rediskeys.CreateRoom, map[string]interface{}{
		"match_id": "m1", "user_one": "alice", "user_one_name": "Alice",
		"user_two": "bob", "user_two_name": "Bob", "difficulty": "Easy", "category": "Array",
	}).Err())

	require.NoError(t, svc.PollCreateRoom(ctx))

	_, ok, err := eq.GetCreateRoom(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "create_room hash must be consumed-and-deleted")

	aliceSnap, ok, err := svc.rooms.GetSnapshot(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "m1", aliceSnap.MatchID)
	assert.Equal(t, "bob", aliceSnap.Partner)
	assert.Equal(t, "Bob", aliceSnap.PartnerName)

	bobSnap, ok, err := svc.rooms.GetSnapshot(ctx, "bob")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "m1", bobSnap.MatchID)
	assert.Equal(t, "alice", bobSnap.Partner)

	aliceAlive, err := svc.rooms.HeartbeatExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, aliceAlive)
	bobAlive, err := svc.rooms.HeartbeatExists(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, bobAlive)
}

// Lazy question assignment mirrors the question into both halves of the
// room on first connect.
func TestConnect_AssignsQuestionToBothSides(t *testing.T) {
	rdb := setupTestRedis(t)
	svc, _ := newTestService(t, rdb, time.Second, 10*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, svc.buildRoom(ctx, confirmedEvent("m1", "alice", "bob")))

	resp, err := svc.Connect(ctx, "alice", "m1")
	require.NoError(t, err)
	assert.Equal(t, "Two Sum", resp.Question.Title)
	assert.Equal(t, "Bob", resp.PartnerName)

	bobSnap, ok, err := svc.rooms.GetSnapshot(ctx, "bob")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, bobSnap.HasQuestion)
	assert.Equal(t, "Two Sum", bobSnap.Question.Title)
}

func TestConnect_WrongRoomIDIsRejected(t *testing.T) {
	rdb := setupTestRedis(t)
	svc, _ := newTestService(t, rdb, time.Second, 10*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, svc.buildRoom(ctx, confirmedEvent("m1", "alice", "bob")))

	_, err := svc.Connect(ctx, "alice", "wrong-room")
	assert.ErrorIs(t, err, ErrRoomMismatch)
}

// Grace then reconnect: heartbeat expiry starts a hold, then reconnect
// cancels it and both room hashes remain past the hold window.
func TestHandlePartnerLeft_ThenReconnectCancelsGraceHold(t *testing.T) {
	rdb := setupTestRedis(t)
	svc, _ := newTestService(t, rdb, 60*time.Millisecond, 5*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, svc.buildRoom(ctx, confirmedEvent("m1", "alice", "bob")))

	require.NoError(t, svc.rooms.DeleteHeartbeat(ctx, "alice"))
	require.NoError(t, svc.rooms.DeleteHeartbeat(ctx, "bob"))
	svc.handlePartnerLeft(ctx, "alice")

	require.Eventually(t, func() bool {
		exists, _ := svc.rooms.CleanupExists(ctx, "m1")
		return exists
	}, 100*time.Millisecond, 2*time.Millisecond)

	require.NoError(t, svc.Reconnect(ctx, "alice"))

	time.Sleep(100 * time.Millisecond)

	_, ok, err := svc.rooms.GetSnapshot(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok, "reconnect must preserve both room hashes past the grace window")
	_, ok, err = svc.rooms.GetSnapshot(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, ok, "reconnect must preserve both room hashes past the grace window")

	cleanupExists, err := svc.rooms.CleanupExists(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, cleanupExists)
}

// Grace-hold expiry cleans up both hashes when nobody reconnects.
func TestGraceHold_ExpiresAndCleansUp(t *testing.T) {
	rdb := setupTestRedis(t)
	svc, _ := newTestService(t, rdb, 30*time.Millisecond, 5*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, svc.buildRoom(ctx, confirmedEvent("m1", "alice", "bob")))

	require.NoError(t, svc.rooms.DeleteHeartbeat(ctx, "alice"))
	require.NoError(t, svc.rooms.DeleteHeartbeat(ctx, "bob"))
	svc.handlePartnerLeft(ctx, "alice")

	require.Eventually(t, func() bool {
		_, ok, _ := svc.rooms.GetSnapshot(ctx, "alice")
		return !ok
	}, 500*time.Millisecond, 5*time.Millisecond, "room must be cleaned up once the grace window elapses")

	_, ok, err := svc.rooms.GetSnapshot(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

// Exit with no live heartbeat is a client error and makes no state change.
func TestExit_NoHeartbeatIsClientError(t *testing.T) {
	rdb := setupTestRedis(t)
	svc, _ := newTestService(t, rdb, time.Second, 10*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, svc.buildRoom(ctx, confirmedEvent("m1", "alice", "bob")))
	require.NoError(t, svc.rooms.DeleteHeartbeat(ctx, "alice"))

	err := svc.Exit(ctx, "alice")
	assert.ErrorIs(t, err, ErrNoHeartbeat)

	_, ok, err := svc.rooms.GetSnapshot(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok, "exit on a dead-heartbeat user must not alter room state")
}

// Terminate deletes both heartbeats, both snapshots, and any pending
// cleanup sentinel.
func TestTerminate_TearsDownRoom(t *testing.T) {
	rdb := setupTestRedis(t)
	svc, _ := newTestService(t, rdb, time.Second, 10*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, svc.buildRoom(ctx, confirmedEvent("m1", "alice", "bob")))

	require.NoError(t, svc.Terminate(ctx, "alice", "m1", "def solve(): pass"))

	for _, u := range []string{"alice", "bob"} {
		_, ok, err := svc.rooms.GetSnapshot(ctx, u)
		require.NoError(t, err)
		assert.False(t, ok, "userroom for %s must be gone after terminate", u)

		alive, err := svc.rooms.HeartbeatExists(ctx, u)
		require.NoError(t, err)
		assert.False(t, alive, "heartbeat for %s must be gone after terminate", u)
	}
}

func TestTerminate_WrongRoomIsRejected(t *testing.T) {
	rdb := setupTestRedis(t)
	svc, _ := newTestService(t, rdb, time.Second, 10*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, svc.buildRoom(ctx, confirmedEvent("m1", "alice", "bob")))

	err := svc.Terminate(ctx, "alice", "not-m1", "sol")
	assert.ErrorIs(t, err, ErrRoomMismatch)
}
