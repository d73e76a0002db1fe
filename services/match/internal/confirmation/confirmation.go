// Package confirmation implements the match:{match_id} confirmation hash
// and its two-flag acceptance state machine.
package confirmation

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/cs3219-g21/matchmaker/internal/rediskeys"
)

// Record mirrors the match:{match_id} hash.
type Record struct {
	UserOne          string
	UserTwo          string
	Difficulty       string
	Category         string
	UserOneConfirmed bool
	UserTwoConfirmed bool
}

type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Create writes a fresh match record with both confirmation flags at 0.
func (s *Store) Create(ctx context.Context, matchID, userOne, userTwo, difficulty, category string) error {
	return s.rdb.HSet(ctx, rediskeys.Match(matchID), map[string]interface{}{
		"user_one":              userOne,
		"user_two":              userTwo,
		"difficulty":            difficulty,
		"category":              category,
		"user_one_confirmation": "0",
		"user_two_confirmation": "0",
	}).Err()
}

// Get returns the match record, if it still exists.
func (s *Store) Get(ctx context.Context, matchID string) (Record, bool, error) {
	res, err := s.rdb.HGetAll(ctx, rediskeys.Match(matchID)).Result()
	if err != nil {
		return Record{}, false, err
	}
	if len(res) == 0 {
		return Record{}, false, nil
	}
	return Record{
		UserOne:          res["user_one"],
		UserTwo:          res["user_two"],
		Difficulty:       res["difficulty"],
		Category:         res["category"],
		UserOneConfirmed: res["user_one_confirmation"] == "1",
		UserTwoConfirmed: res["user_two_confirmation"] == "1",
	}, true, nil
}

// Confirm sets the confirmation flag belonging to userID. Returns the
// updated record.
func (s *Store) Confirm(ctx context.Context, matchID string, rec Record, userID string) (Record, error) {
	field := fieldFor(rec, userID)
	if field == "" {
		return rec, nil
	}
	if err := s.rdb.HSet(ctx, rediskeys.Match(matchID), field, "1").Err(); err != nil {
		return rec, err
	}
	if field == "user_one_confirmation" {
		rec.UserOneConfirmed = true
	} else {
		rec.UserTwoConfirmed = true
	}
	return rec, nil
}

func fieldFor(rec Record, userID string) string {
	switch userID {
	case rec.UserOne:
		return "user_one_confirmation"
	case rec.UserTwo:
		return "user_two_confirmation"
	default:
		return ""
	}
}

// Partner returns the other member of the pair relative to userID.
func (r Record) Partner(userID string) string {
	if userID == r.UserOne {
		return r.UserTwo
	}
	return r.UserOne
}

// IsMember reports whether userID is one of the two pair members.
func (r Record) IsMember(userID string) bool {
	return userID == r.UserOne || userID == r.UserTwo
}

// BothConfirmed reports whether both sides have confirmed.
func (r Record) BothConfirmed() bool {
	return r.UserOneConfirmed && r.UserTwoConfirmed
}

// Delete removes the match record (used on confirm-complete or abandonment).
func (s *Store) Delete(ctx context.Context, matchID string) error {
	return s.rdb.Del(ctx, rediskeys.Match(matchID)).Err()
}
