package roomsvc

import (
	"context"

	"github.com/cs3219-g21/roommanager/internal/lock"
	"github.com/cs3219-g21/roommanager/internal/models"
	"github.com/cs3219-g21/roommanager/internal/rediskeys"
)

// Connect handles a user's first join to a room, assigning the question
// lazily under the room lock.
func (s *Service) Connect(ctx context.Context, userID, roomID string) (models.ConnectResponse, error) {
	snap, ok, err := s.rooms.GetSnapshot(ctx, userID)
	if err != nil {
		return models.ConnectResponse{}, wrapStoreErr(err)
	}
	if !ok {
		return models.ConnectResponse{}, ErrNoRoom
	}
	if snap.MatchID != roomID {
		return models.ConnectResponse{}, ErrRoomMismatch
	}

	if snap.HasQuestion {
		return models.ConnectResponse{Question: snap.Question, PartnerName: snap.PartnerName}, nil
	}

	question, err := s.assignQuestion(ctx, userID, snap)
	if err != nil {
		return models.ConnectResponse{}, err
	}
	return models.ConnectResponse{Question: question, PartnerName: snap.PartnerName}, nil
}

// assignQuestion is the lazy-assignment critical section: acquire
// lock:{room_id}, re-check (another connect may have raced us), fetch from
// the question bank, write into both halves of the room, release.
func (s *Service) assignQuestion(ctx context.Context, userID string, snap models.RoomSnapshot) (models.Question, error) {
	lk, err := lock.Acquire(ctx, s.roomsRdb, rediskeys.RoomLock(snap.MatchID), s.lockTTL, lockRetryWait)
	if err != nil {
		return models.Question{}, wrapStoreErr(err)
	}
	defer lk.Release(ctx)

	fresh, ok, err := s.rooms.GetSnapshot(ctx, userID)
	if err != nil {
		return models.Question{}, wrapStoreErr(err)
	}
	if !ok {
		return models.Question{}, ErrNoRoom
	}
	if fresh.HasQuestion {
		return fresh.Question, nil
	}

	question, err := s.questions.Fetch(ctx, fresh.Category, fresh.Difficulty)
	if err != nil {
		s.log.Warn("roomsvc: question bank fetch failed", snap.MatchID, err)
		return models.Question{}, ErrQuestionFailed
	}

	if err := s.rooms.SetQuestion(ctx, userID, question); err != nil {
		return models.Question{}, wrapStoreErr(err)
	}
	if err := s.rooms.SetQuestion(ctx, fresh.Partner, question); err != nil {
		s.log.Warn("roomsvc: failed to mirror question to partner", fresh.Partner, err)
	}
	return question, nil
}
