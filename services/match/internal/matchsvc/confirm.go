package matchsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/cs3219-g21/matchmaker/internal/confirmation"
	"github.com/cs3219-g21/matchmaker/internal/lock"
	"github.com/cs3219-g21/matchmaker/internal/rediskeys"
)

// ConfirmMatch advances the confirmation state machine
// (AWAIT_BOTH -> HALF -> CONFIRMED | ABANDONED) for one member of a pair.
func (s *Service) ConfirmMatch(ctx context.Context, matchID, userID string) (ConfirmResult, error) {
	matchLockKey := rediskeys.MatchLock(matchID)
	lk, err := lock.Acquire(ctx, s.rdb, matchLockKey, s.lockTTL, lockRetryWait)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("%w: %v", ErrTransientStore, err)
	}

	rec, ok, err := s.conf.Get(ctx, matchID)
	if err != nil {
		lk.Release(ctx)
		return ConfirmResult{}, fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	if !ok {
		lk.Release(ctx)
		return ConfirmResult{}, ErrInvalidMatch
	}
	if !rec.IsMember(userID) {
		lk.Release(ctx)
		return ConfirmResult{}, ErrNotMember
	}

	rec, err = s.conf.Confirm(ctx, matchID, rec, userID)
	if err != nil {
		lk.Release(ctx)
		return ConfirmResult{}, fmt.Errorf("%w: %v", ErrTransientStore, err)
	}

	if rec.BothConfirmed() {
		details, err := s.completeConfirmation(ctx, matchID, rec, userID)
		lk.Release(ctx)
		if err != nil {
			return ConfirmResult{}, err
		}
		return ConfirmResult{Details: &details, MatchID: matchID, Message: "match confirmed"}, nil
	}

	lk.Release(ctx)
	return s.waitForConfirmation(ctx, matchID, rec, userID)
}

// completeConfirmation runs the match-confirmed side effects: build the
// create_room hash, wake the waiting partner, clear both in-queue records,
// delete the match record. Called with the match lock held.
func (s *Service) completeConfirmation(ctx context.Context, matchID string, rec confirmation.Record, userID string) (confirmation.Record, error) {
	if err := s.queue.PutCreateRoom(ctx, map[string]interface{}{
		"match_id":      matchID,
		"user_one":      rec.UserOne,
		"user_one_name": s.userName(ctx, rec.UserOne),
		"user_two":      rec.UserTwo,
		"user_two_name": s.userName(ctx, rec.UserTwo),
		"difficulty":    rec.Difficulty,
		"category":      rec.Category,
	}); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrTransientStore, err)
	}

	// Only the partner can be blocked in waitForConfirmation; the caller is
	// completing this very call and reads rec directly. Pushing only to the
	// partner keeps the caller's rendezvous list empty for any later match.
	partner := rec.Partner(userID)
	if err := s.queue.PushMatchConfirm(ctx, partner, matchID); err != nil {
		s.log.Warn("completeConfirmation: push match_confirm failed", partner, err)
	}

	if err := s.queue.Delete(ctx, rec.UserOne); err != nil {
		s.log.Warn("completeConfirmation: clear inqueue(user_one) failed", err)
	}
	if err := s.queue.Delete(ctx, rec.UserTwo); err != nil {
		s.log.Warn("completeConfirmation: clear inqueue(user_two) failed", err)
	}

	if err := s.conf.Delete(ctx, matchID); err != nil {
		s.log.Warn("completeConfirmation: delete match record failed", err)
	}

	return rec, nil
}

// userName looks up the display name a user submitted with find_match, if
// still present (it is cleared by completeConfirmation's own inqueue
// deletes, so this must run before those deletes - see call order above).
func (s *Service) userName(ctx context.Context, userID string) string {
	entry, ok, err := s.queue.Get(ctx, userID)
	if err != nil || !ok {
		return ""
	}
	return entry.UserName
}

// waitForConfirmation is the HALF-state wait: block-pop the caller's own
// match_confirm list for up to confirmWait (15s default).
func (s *Service) waitForConfirmation(ctx context.Context, matchID string, rec confirmation.Record, userID string) (ConfirmResult, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.confirmWait)
	defer cancel()

	token, woke, err := s.queue.BlockPopMatchConfirm(waitCtx, userID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	if !woke || token == "" {
		return ConfirmResult{Declined: true, MatchID: matchID, Message: "partner_declined"}, nil
	}
	details := rec
	details.UserOneConfirmed = true
	details.UserTwoConfirmed = true
	return ConfirmResult{Details: &details, MatchID: matchID, Message: "match confirmed"}, nil
}

// superviseConfirmation is spawned when a pair forms and fires after
// supervisorWait; if the match record still exists with exactly one side
// confirmed, it pushes an empty token to wake the confirmed side with
// "partner_declined", then cleans up both sides' queue state. The
// supervisor timer starts the instant the pair forms, and a waiter's
// longer wait-for-confirmation timer only starts later, when that user
// calls confirm_match, so the supervisor's write lands before the
// waiter's deadline elapses.
func (s *Service) superviseConfirmation(ctx context.Context, matchID string) {
	timer := time.NewTimer(s.supervisorWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	matchLockKey := rediskeys.MatchLock(matchID)
	lk, err := lock.Acquire(ctx, s.rdb, matchLockKey, s.lockTTL, lockRetryWait)
	if err != nil {
		s.log.Warn("confirmation supervisor: lock acquire failed", matchID, err)
		return
	}
	defer lk.Release(ctx)

	rec, ok, err := s.conf.Get(ctx, matchID)
	if err != nil {
		s.log.Warn("confirmation supervisor: get record failed", matchID, err)
		return
	}
	if !ok {
		return // already completed or abandoned by confirm_match itself
	}

	if rec.UserOneConfirmed != rec.UserTwoConfirmed {
		confirmed := rec.UserOne
		if rec.UserTwoConfirmed {
			confirmed = rec.UserTwo
		}
		if err := s.queue.PushMatchConfirm(ctx, confirmed, ""); err != nil {
			s.log.Warn("confirmation supervisor: push empty token failed", matchID, err)
		}
	}

	if err := s.conf.Delete(ctx, matchID); err != nil {
		s.log.Warn("confirmation supervisor: delete match record failed", matchID, err)
	}
	if err := s.queue.Delete(ctx, rec.UserOne); err != nil {
		s.log.Warn("confirmation supervisor: clear inqueue(user_one) failed", matchID, err)
	}
	if err := s.queue.Delete(ctx, rec.UserTwo); err != nil {
		s.log.Warn("confirmation supervisor: clear inqueue(user_two) failed", matchID, err)
	}
}
