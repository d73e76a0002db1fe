// Package matchqueue implements the matchmaking queue state: the per-user
// in-queue record, the per-bucket FIFO lists, and the one-shot rendezvous
// lists used to wake blocked requests.
package matchqueue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cs3219-g21/matchmaker/internal/rediskeys"
)

// Entry mirrors the inqueue:{user_id} hash. UserName carries the display
// name submitted with find_match through to room creation, so
// create_room/userroom never need a lookup to the user service.
type Entry struct {
	Difficulty string
	Category   string
	MatchFound bool
	UserName   string
}

// Store provides atomic operations over the matchmaking queue keys.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Get returns the caller's in-queue record, if any.
func (s *Store) Get(ctx context.Context, userID string) (Entry, bool, error) {
	res, err := s.rdb.HGetAll(ctx, rediskeys.InQueue(userID)).Result()
	if err != nil {
		return Entry{}, false, err
	}
	if len(res) == 0 {
		return Entry{}, false, nil
	}
	return Entry{
		Difficulty: res["difficulty"],
		Category:   res["category"],
		MatchFound: res["match_found"] == "1",
		UserName:   res["user_name"],
	}, true, nil
}

// Create writes a fresh inqueue:{user_id} hash with match_found=0.
func (s *Store) Create(ctx context.Context, userID, difficulty, category, userName string) error {
	return s.rdb.HSet(ctx, rediskeys.InQueue(userID), map[string]interface{}{
		"difficulty":  difficulty,
		"category":    category,
		"match_found": "0",
		"user_name":   userName,
	}).Err()
}

// SetMatchFound flips the match_found flag for userID.
func (s *Store) SetMatchFound(ctx context.Context, userID string, found bool) error {
	val := "0"
	if found {
		val = "1"
	}
	return s.rdb.HSet(ctx, rediskeys.InQueue(userID), "match_found", val).Err()
}

// Delete removes the user's in-queue record.
func (s *Store) Delete(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, rediskeys.InQueue(userID)).Err()
}

// PushSelf right-pushes userID onto its bucket's FIFO list.
func (s *Store) PushSelf(ctx context.Context, difficulty, category, userID string) error {
	return s.rdb.RPush(ctx, rediskeys.Queue(difficulty, category), userID).Err()
}

// PopPartner left-pops the oldest waiting user from the bucket, if any.
func (s *Store) PopPartner(ctx context.Context, difficulty, category string) (string, bool, error) {
	userID, err := s.rdb.LPop(ctx, rediskeys.Queue(difficulty, category)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

// RemoveSelf removes one occurrence of userID from the bucket list (used on
// timeout/terminate cleanup of a still-queued request).
func (s *Store) RemoveSelf(ctx context.Context, difficulty, category, userID string) error {
	return s.rdb.LRem(ctx, rediskeys.Queue(difficulty, category), 1, userID).Err()
}

// PushMatchFound right-pushes a wake token onto userID's rendezvous list.
func (s *Store) PushMatchFound(ctx context.Context, userID, token string) error {
	return s.rdb.RPush(ctx, rediskeys.MatchFound(userID), token).Err()
}

// BlockPopMatchFound blocks until ctx's deadline for a wake token on userID's
// list. Callers should derive ctx with context.WithTimeout/WithDeadline for
// the wait bound in question.
func (s *Store) BlockPopMatchFound(ctx context.Context, userID string) (string, bool, error) {
	// The client does not apply ctx's deadline to the blocking read, so the
	// bound is passed to BLPOP itself.
	var timeout time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return "", false, nil
		}
	}
	res, err := s.rdb.BLPop(ctx, timeout, rediskeys.MatchFound(userID)).Result()
	if err == redis.Nil || err == context.DeadlineExceeded {
		return "", false, nil
	}
	if err != nil {
		// A cancelled parent context surfaces as a generic i/o timeout error
		// from the client in some go-redis versions; treat context errors as
		// a clean "no wake" rather than a propagated failure.
		if ctx.Err() != nil {
			return "", false, nil
		}
		return "", false, err
	}
	if len(res) < 2 {
		return "", false, nil
	}
	return res[1], true, nil
}
