package roomsvc

import (
	"context"
	"time"

	"github.com/cs3219-g21/roommanager/internal/httpmetrics"
	"github.com/cs3219-g21/roommanager/internal/models"
)

// Reconnect cancels any grace-hold, refreshes the caller's heartbeat, and
// notifies the partner if alive. Calling Reconnect twice in sequence is
// idempotent: the second call simply finds no cleanup sentinel to remove
// and an already-live partner to notify again.
func (s *Service) Reconnect(ctx context.Context, userID string) error {
	snap, ok, err := s.rooms.GetSnapshot(ctx, userID)
	if err != nil {
		return wrapStoreErr(err)
	}
	if !ok {
		return ErrNoRoom
	}

	if hadCleanup, err := s.rooms.CleanupExists(ctx, snap.MatchID); err != nil {
		return wrapStoreErr(err)
	} else if hadCleanup {
		if err := s.rooms.DeleteCleanup(ctx, snap.MatchID); err != nil {
			return wrapStoreErr(err)
		}
	}

	if err := s.rooms.RefreshHeartbeat(ctx, userID, s.heartbeatTTL); err != nil {
		return wrapStoreErr(err)
	}

	partnerAlive, err := s.rooms.HeartbeatExists(ctx, snap.Partner)
	if err != nil {
		return wrapStoreErr(err)
	}
	if partnerAlive {
		s.notifyPartner(ctx, snap.Partner, snap.MatchID, models.MsgPartnerJoin)
	}
	return nil
}

// Exit rejects a caller with no live heartbeat, otherwise deletes the
// heartbeat and synchronously runs the same partner-notify-or-grace-hold
// path the expiry consumer runs. An explicit DEL never raises a
// keyspace-expired event, so Exit cannot rely on the expiry pipeline to do
// this for it.
func (s *Service) Exit(ctx context.Context, userID string) error {
	alive, err := s.rooms.HeartbeatExists(ctx, userID)
	if err != nil {
		return wrapStoreErr(err)
	}
	if !alive {
		return ErrNoHeartbeat
	}

	if err := s.rooms.DeleteHeartbeat(ctx, userID); err != nil {
		return wrapStoreErr(err)
	}

	s.handlePartnerLeft(ctx, userID)
	return nil
}

// Terminate is the explicit end-of-session for both users: notify the
// partner, tear down room state, delete both heartbeats, then submit the
// attempt for review. Steps run best-effort but idempotent.
func (s *Service) Terminate(ctx context.Context, userID, roomID, submittedSolution string) error {
	alive, err := s.rooms.HeartbeatExists(ctx, userID)
	if err != nil {
		return wrapStoreErr(err)
	}
	if !alive {
		return ErrNoHeartbeat
	}

	snap, ok, err := s.rooms.GetSnapshot(ctx, userID)
	if err != nil {
		return wrapStoreErr(err)
	}
	if !ok {
		return ErrNoRoom
	}
	if snap.MatchID != roomID {
		return ErrRoomMismatch
	}

	s.notifyPartner(ctx, snap.Partner, roomID, models.MsgMatchTerminate)

	if hadCleanup, err := s.rooms.CleanupExists(ctx, roomID); err == nil && hadCleanup {
		if err := s.rooms.DeleteCleanup(ctx, roomID); err != nil {
			s.log.Warn("roomsvc: terminate: failed clearing cleanup sentinel", roomID, err)
		}
	}
	if err := s.rooms.DeleteSnapshot(ctx, userID); err != nil {
		s.log.Warn("roomsvc: terminate: failed deleting snapshot", userID, err)
	}
	if err := s.rooms.DeleteSnapshot(ctx, snap.Partner); err != nil {
		s.log.Warn("roomsvc: terminate: failed deleting partner snapshot", snap.Partner, err)
	}

	if err := s.rooms.DeleteHeartbeat(ctx, userID); err != nil {
		s.log.Warn("roomsvc: terminate: failed deleting heartbeat", userID, err)
	}
	if err := s.rooms.DeleteHeartbeat(ctx, snap.Partner); err != nil {
		s.log.Warn("roomsvc: terminate: failed deleting partner heartbeat", snap.Partner, err)
	}

	httpmetrics.RoomClosed(metricsService)

	s.submitForReview(context.Background(), snap, userID, submittedSolution)
	return nil
}

// submitForReview POSTs the attempt to the review collaborator. Failures
// are logged, not propagated - terminate's local state transition has
// already completed by this point.
func (s *Service) submitForReview(ctx context.Context, snap models.RoomSnapshot, caller, submittedSolution string) {
	submission := models.ReviewSubmission{
		Title:             snap.Question.Title,
		Description:       snap.Question.Description,
		CodeTemplate:      snap.Question.CodeTemplate,
		SolutionSample:    snap.Question.SolutionSample,
		Difficulty:        snap.Difficulty,
		Category:          snap.Category,
		TimeElapsedSec:    int64(time.Since(snap.StartTime).Seconds()),
		SubmittedSolution: submittedSolution,
		Users:             []string{caller, snap.Partner},
	}
	if err := s.review.Submit(ctx, submission); err != nil {
		s.log.Warn("roomsvc: review submission failed", snap.MatchID, err)
	}
}

func (s *Service) notifyPartner(ctx context.Context, partner, roomID, message string) {
	frame := models.GatewayFrame{UserID: partner, RoomID: roomID, Message: message}
	if err := s.gw.Send(ctx, frame); err != nil {
		s.log.Warn("roomsvc: failed to notify partner", partner, message, err)
	}
}
