// Package eventqueue implements the room manager's event-queue access:
// consuming the create_room hash the matchmaker publishes, and reading/
// acknowledging the expired_ttl consumer-group stream the expiry observer
// fans out to.
package eventqueue

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cs3219-g21/roommanager/internal/models"
	"github.com/cs3219-g21/roommanager/internal/rediskeys"
)

// Queue provides the namespace-E operations the room manager needs.
// create_room lives alongside userroom/heartbeat in the rooms-namespace DB
// (the matchmaker writes it to its own single REDIS_DB, which matches the
// room manager's REDIS_ROOMS_DB by default); the expired_ttl stream lives in
// the separate events-namespace DB the expiry observer writes to. Two
// clients are threaded through accordingly.
type Queue struct {
	rooms  *redis.Client
	events *redis.Client
}

func New(rooms, events *redis.Client) *Queue {
	return &Queue{rooms: rooms, events: events}
}

// GetCreateRoom reads the most recently confirmed match, if one is
// pending. Returns ok=false when the hash is empty (nothing to build).
func (q *Queue) GetCreateRoom(ctx context.Context) (models.CreateRoomEvent, bool, error) {
	res, err := q.rooms.HGetAll(ctx, rediskeys.CreateRoom).Result()
	if err != nil {
		return models.CreateRoomEvent{}, false, err
	}
	if len(res) == 0 {
		return models.CreateRoomEvent{}, false, nil
	}
	return models.CreateRoomEvent{
		MatchID:     res["match_id"],
		UserOne:     res["user_one"],
		UserOneName: res["user_one_name"],
		UserTwo:     res["user_two"],
		UserTwoName: res["user_two_name"],
		Difficulty:  res["difficulty"],
		Category:    res["category"],
	}, true, nil
}

// DeleteCreateRoom removes the create_room hash once its room has been
// built.
func (q *Queue) DeleteCreateRoom(ctx context.Context) error {
	return q.rooms.Del(ctx, rediskeys.CreateRoom).Err()
}

// EnsureGroup creates the consumer group on the expiry stream with
// MKSTREAM, tolerating the BUSYGROUP error on restart.
func (q *Queue) EnsureGroup(ctx context.Context, streamKey, group string) error {
	err := q.events.XGroupCreateMkStream(ctx, streamKey, group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

const streamReadBlock = 5 * time.Second

// StreamEntry is one pending delivery off the expired_ttl stream.
type StreamEntry struct {
	ID  string
	Key string
}

// ReadOne reads a single new entry for consumer from the group, blocking a
// few seconds at most so the caller's loop can observe cancellation.
// Returns ok=false when nothing arrived within that window.
func (q *Queue) ReadOne(ctx context.Context, streamKey, group, consumer string) (StreamEntry, bool, error) {
	res, err := q.events.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{streamKey, ">"},
		Count:    1,
		Block:    streamReadBlock,
	}).Result()
	if err == redis.Nil {
		return StreamEntry{}, false, nil
	}
	if err != nil {
		return StreamEntry{}, false, err
	}
	if len(res) == 0 || len(res[0].Messages) == 0 {
		return StreamEntry{}, false, nil
	}
	msg := res[0].Messages[0]
	key, _ := msg.Values["key"].(string)
	return StreamEntry{ID: msg.ID, Key: key}, true, nil
}

// Ack acknowledges a delivered entry.
func (q *Queue) Ack(ctx context.Context, streamKey, group, id string) error {
	return q.events.XAck(ctx, streamKey, group, id).Err()
}
