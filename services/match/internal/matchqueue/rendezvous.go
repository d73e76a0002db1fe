package matchqueue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cs3219-g21/matchmaker/internal/rediskeys"
)

// PushMatchConfirm right-pushes a wake token onto userID's confirmation
// rendezvous list (match_confirm:{user_id}).
func (s *Store) PushMatchConfirm(ctx context.Context, userID, token string) error {
	return s.rdb.RPush(ctx, rediskeys.MatchConfirm(userID), token).Err()
}

// BlockPopMatchConfirm blocks until ctx's deadline for a confirmation wake
// token. An empty string with ok=true distinguishes "woken with empty token"
// (abandonment) from "timed out" (ok=false).
func (s *Store) BlockPopMatchConfirm(ctx context.Context, userID string) (string, bool, error) {
	var timeout time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return "", false, nil
		}
	}
	res, err := s.rdb.BLPop(ctx, timeout, rediskeys.MatchConfirm(userID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", false, nil
		}
		return "", false, err
	}
	if len(res) < 2 {
		return "", true, nil
	}
	return res[1], true, nil
}

// PutCreateRoom writes the create_room hash describing a freshly confirmed
// match. Consumed-and-deleted by the room manager.
func (s *Store) PutCreateRoom(ctx context.Context, fields map[string]interface{}) error {
	return s.rdb.HSet(ctx, rediskeys.CreateRoom, fields).Err()
}
