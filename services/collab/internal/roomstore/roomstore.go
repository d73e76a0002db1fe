// Package roomstore implements the room manager's Redis state: the
// per-user room snapshot hash, the heartbeat TTL sentinel, and the
// cleanup/grace-hold sentinel.
package roomstore

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cs3219-g21/roommanager/internal/models"
	"github.com/cs3219-g21/roommanager/internal/rediskeys"
)

// Store provides atomic operations over the room-state keys.
type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// CreateSnapshot writes the question-independent half of a userroom:{u}
// hash at room-creation time. The question fields are assigned lazily via
// SetQuestion on first connect.
func (s *Store) CreateSnapshot(ctx context.Context, userID string, snap models.RoomSnapshot) error {
	return s.rdb.HSet(ctx, rediskeys.UserRoom(userID), map[string]interface{}{
		"match_id":     snap.MatchID,
		"partner":      snap.Partner,
		"partner_name": snap.PartnerName,
		"difficulty":   snap.Difficulty,
		"category":     snap.Category,
		"start_time":   snap.StartTime.Format(time.RFC3339Nano),
	}).Err()
}

// GetSnapshot reads a userroom:{u} hash, if it still exists.
func (s *Store) GetSnapshot(ctx context.Context, userID string) (models.RoomSnapshot, bool, error) {
	res, err := s.rdb.HGetAll(ctx, rediskeys.UserRoom(userID)).Result()
	if err != nil {
		return models.RoomSnapshot{}, false, err
	}
	if len(res) == 0 {
		return models.RoomSnapshot{}, false, nil
	}
	snap := models.RoomSnapshot{
		MatchID:     res["match_id"],
		Partner:     res["partner"],
		PartnerName: res["partner_name"],
		Difficulty:  res["difficulty"],
		Category:    res["category"],
	}
	if st, err := time.Parse(time.RFC3339Nano, res["start_time"]); err == nil {
		snap.StartTime = st
	}
	if title, ok := res["title"]; ok && title != "" {
		snap.HasQuestion = true
		snap.Question = models.Question{
			Title:          res["title"],
			Description:    res["description"],
			CodeTemplate:   res["code_template"],
			SolutionSample: res["solution_sample"],
			Difficulty:     res["difficulty"],
			Category:       res["category"],
		}
	}
	return snap, true, nil
}

// SetQuestion mirrors the question fields into a single user's snapshot
// hash. The caller is responsible for calling this for both halves of the
// room under the room lock.
func (s *Store) SetQuestion(ctx context.Context, userID string, q models.Question) error {
	return s.rdb.HSet(ctx, rediskeys.UserRoom(userID), map[string]interface{}{
		"title":           q.Title,
		"description":     q.Description,
		"code_template":   q.CodeTemplate,
		"solution_sample": q.SolutionSample,
	}).Err()
}

// DeleteSnapshot removes a single user's room hash.
func (s *Store) DeleteSnapshot(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, rediskeys.UserRoom(userID)).Err()
}

// HeartbeatExists reports whether userID's liveness sentinel is present.
func (s *Store) HeartbeatExists(ctx context.Context, userID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, rediskeys.Heartbeat(userID)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RefreshHeartbeat (re)creates userID's heartbeat key with the configured
// TTL - set at room creation or reconnect, extended by pings, deleted on
// exit, or left to expire.
func (s *Store) RefreshHeartbeat(ctx context.Context, userID string, ttl time.Duration) error {
	return s.rdb.Set(ctx, rediskeys.Heartbeat(userID), strconv.FormatInt(time.Now().Unix(), 10), ttl).Err()
}

// TouchHeartbeat extends the TTL of an existing heartbeat key. A key that
// was already deleted or expired is left absent, so a late ping can never
// resurrect a heartbeat without a room-create or reconnect.
func (s *Store) TouchHeartbeat(ctx context.Context, userID string, ttl time.Duration) error {
	return s.rdb.SetXX(ctx, rediskeys.Heartbeat(userID), strconv.FormatInt(time.Now().Unix(), 10), ttl).Err()
}

// DeleteHeartbeat removes userID's heartbeat key outright. Unlike TTL
// expiry this does not raise a keyspace-expired notification, which is why
// Exit must synchronously invoke the partner-left path itself.
func (s *Store) DeleteHeartbeat(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, rediskeys.Heartbeat(userID)).Err()
}

// CleanupExists reports whether a grace-hold is in progress for roomID.
func (s *Store) CleanupExists(ctx context.Context, roomID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, rediskeys.Cleanup(roomID)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetCleanup starts a grace-hold, recording the user id that triggered it.
func (s *Store) SetCleanup(ctx context.Context, roomID, userID string) error {
	return s.rdb.Set(ctx, rediskeys.Cleanup(roomID), userID, 0).Err()
}

// DeleteCleanup cancels a grace-hold (called by reconnect).
func (s *Store) DeleteCleanup(ctx context.Context, roomID string) error {
	return s.rdb.Del(ctx, rediskeys.Cleanup(roomID)).Err()
}

// CleanupRoom atomically deletes both users' room hashes and the cleanup
// sentinel in a single pipeline.
func (s *Store) CleanupRoom(ctx context.Context, userOne, userTwo, roomID string) error {
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, rediskeys.UserRoom(userOne))
		pipe.Del(ctx, rediskeys.UserRoom(userTwo))
		pipe.Del(ctx, rediskeys.Cleanup(roomID))
		return nil
	})
	return err
}
