// Package matchsvc implements the matchmaker: per-bucket FIFO pairing, the
// two-step confirmation state machine, and the supervisor that times out
// half-confirmed pairs.
package matchsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cs3219-g21/matchmaker/internal/confirmation"
	"github.com/cs3219-g21/matchmaker/internal/lock"
	"github.com/cs3219-g21/matchmaker/internal/logging"
	"github.com/cs3219-g21/matchmaker/internal/matchqueue"
	"github.com/cs3219-g21/matchmaker/internal/rediskeys"
)

// Errors surfaced to the HTTP boundary.
var (
	ErrAlreadyQueued   = errors.New("matchsvc: user already has a confirmed match pending")
	ErrNotQueued       = errors.New("matchsvc: user is not in queue")
	ErrInvalidMatch    = errors.New("matchsvc: match not found")
	ErrNotMember       = errors.New("matchsvc: user is not a member of this match")
	ErrSupersededByNew = errors.New("matchsvc: request superseded by a newer request")
	ErrTransientStore  = errors.New("matchsvc: key/value store unavailable")
)

const lockRetryWait = 2 * time.Second

// FindMatchResult is the outcome of FindMatch.
type FindMatchResult struct {
	MatchID string
	Status  string // "", "no_match", or "terminated"
	Message string
}

// ConfirmResult is the outcome of ConfirmMatch.
type ConfirmResult struct {
	Details  *confirmation.Record
	MatchID  string
	Declined bool
	Message  string
}

// Service orchestrates the matchmaker's pairing and confirmation logic.
type Service struct {
	rdb   *redis.Client
	queue *matchqueue.Store
	conf  *confirmation.Store
	log   *logging.Logger
	lockTTL,
	findWait,
	confirmWait,
	supervisorWait time.Duration
}

func New(rdb *redis.Client, log *logging.Logger, lockTTL, findWait, confirmWait, supervisorWait time.Duration) *Service {
	return &Service{
		rdb:            rdb,
		queue:          matchqueue.NewStore(rdb),
		conf:           confirmation.NewStore(rdb),
		log:            log,
		lockTTL:        lockTTL,
		findWait:       findWait,
		confirmWait:    confirmWait,
		supervisorWait: supervisorWait,
	}
}

// FindMatch pairs the caller with the oldest waiter in its (difficulty,
// category) bucket, or enqueues the caller and blocks until a partner
// arrives, the request is terminated, or the wait cap elapses.
func (s *Service) FindMatch(ctx context.Context, userID, userName, difficulty, category string) (FindMatchResult, error) {
	if err := s.supersedePriorRequest(ctx, userID); err != nil {
		return FindMatchResult{}, err
	}

	if err := s.queue.Create(ctx, userID, difficulty, category, userName); err != nil {
		return FindMatchResult{}, fmt.Errorf("%w: %v", ErrTransientStore, err)
	}

	queueLockKey := rediskeys.QueueLock(difficulty, category)
	lk, err := lock.Acquire(ctx, s.rdb, queueLockKey, s.lockTTL, lockRetryWait)
	if err != nil {
		return FindMatchResult{}, fmt.Errorf("%w: %v", ErrTransientStore, err)
	}

	partner, found, err := s.queue.PopPartner(ctx, difficulty, category)
	if err != nil {
		lk.Release(ctx)
		return FindMatchResult{}, fmt.Errorf("%w: %v", ErrTransientStore, err)
	}

	if !found {
		if err := s.queue.PushSelf(ctx, difficulty, category, userID); err != nil {
			lk.Release(ctx)
			return FindMatchResult{}, fmt.Errorf("%w: %v", ErrTransientStore, err)
		}
		lk.Release(ctx)
		return s.waitForPartner(ctx, userID, difficulty, category)
	}

	matchID, err := s.formPair(ctx, partner, userID, difficulty, category)
	lk.Release(ctx)
	if err != nil {
		return FindMatchResult{}, err
	}

	go s.superviseConfirmation(context.Background(), matchID)

	return FindMatchResult{MatchID: matchID, Message: "match found"}, nil
}

// supersedePriorRequest cancels any outstanding find_match request this user
// already had.
func (s *Service) supersedePriorRequest(ctx context.Context, userID string) error {
	existing, ok, err := s.queue.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	if !ok {
		return nil
	}
	if existing.MatchFound {
		return ErrAlreadyQueued
	}
	if err := s.queue.PushMatchFound(ctx, userID, "new request made"); err != nil {
		return fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	if err := s.queue.RemoveSelf(ctx, existing.Difficulty, existing.Category, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	if err := s.queue.Delete(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	return nil
}

// formPair derives the deterministic match id, creates the confirmation
// record, marks both sides found, and wakes the already-queued partner.
func (s *Service) formPair(ctx context.Context, partner, self, difficulty, category string) (string, error) {
	matchID := deriveMatchID(self, partner)

	if err := s.conf.Create(ctx, matchID, partner, self, difficulty, category); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	if err := s.queue.SetMatchFound(ctx, partner, true); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	if err := s.queue.SetMatchFound(ctx, self, true); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	if err := s.queue.PushMatchFound(ctx, partner, matchID); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	return matchID, nil
}

// deriveMatchID computes uuid5(NAMESPACE_DNS, a||b) order-independently so
// both sides of a pair converge on the same id regardless of which side
// computes it.
func deriveMatchID(a, b string) string {
	lo, hi := a, b
	if hi < lo {
		lo, hi = hi, lo
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(lo+hi)).String()
}

// waitForPartner block-pops the caller's own wake list with the hard
// find-match cap, then interprets the wake value.
func (s *Service) waitForPartner(ctx context.Context, userID, difficulty, category string) (FindMatchResult, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.findWait)
	defer cancel()

	token, woke, err := s.queue.BlockPopMatchFound(waitCtx, userID)
	if err != nil {
		return FindMatchResult{}, fmt.Errorf("%w: %v", ErrTransientStore, err)
	}

	if !woke {
		return s.timeoutCleanup(context.Background(), userID, difficulty, category)
	}

	switch token {
	case "terminate":
		return FindMatchResult{Status: "terminated", Message: "request terminated"}, nil
	case "new request made":
		return FindMatchResult{}, ErrSupersededByNew
	default:
		return FindMatchResult{MatchID: token, Message: "match found"}, nil
	}
}

// timeoutCleanup re-acquires the bucket lock and removes the caller's own
// entries after the wait cap elapses.
func (s *Service) timeoutCleanup(ctx context.Context, userID, difficulty, category string) (FindMatchResult, error) {
	lk, err := lock.Acquire(ctx, s.rdb, rediskeys.QueueLock(difficulty, category), s.lockTTL, lockRetryWait)
	if err == nil {
		defer lk.Release(ctx)
	}
	if err := s.queue.RemoveSelf(ctx, difficulty, category, userID); err != nil {
		s.log.Warn("timeout cleanup: remove from bucket list failed", err)
	}
	if err := s.queue.Delete(ctx, userID); err != nil {
		s.log.Warn("timeout cleanup: delete inqueue failed", err)
	}
	return FindMatchResult{Status: "no_match", Message: "could not find a match after 3 minutes"}, nil
}

// TerminateMatch wakes the caller's own waiting find_match call (if any)
// with "terminate" and drops its queue state.
func (s *Service) TerminateMatch(ctx context.Context, userID, difficulty, category string) error {
	existing, ok, err := s.queue.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	if !ok {
		return ErrNotQueued
	}
	if existing.MatchFound {
		return ErrAlreadyQueued
	}
	if err := s.queue.PushMatchFound(ctx, userID, "terminate"); err != nil {
		return fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	if err := s.queue.RemoveSelf(ctx, difficulty, category, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	return s.queue.Delete(ctx, userID)
}
