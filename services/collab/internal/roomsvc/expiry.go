package roomsvc

import (
	"context"
	"time"

	"github.com/cs3219-g21/roommanager/internal/httpmetrics"
	"github.com/cs3219-g21/roommanager/internal/models"
	"github.com/cs3219-g21/roommanager/internal/rediskeys"
)

// RunExpiryConsumer is the consumer-group reader on the expired_ttl
// stream, one logical consumer per room manager instance within the shared
// group. It blocks until ctx is cancelled.
func (s *Service) RunExpiryConsumer(ctx context.Context, streamKey, group string) error {
	if err := s.events.EnsureGroup(ctx, streamKey, group); err != nil {
		return wrapStoreErr(err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		entry, ok, err := s.events.ReadOne(ctx, streamKey, group, s.instanceID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn("roomsvc: expiry stream read failed", err)
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			continue
		}

		s.handleExpiredEntry(ctx, entry.Key)

		if err := s.events.Ack(ctx, streamKey, group, entry.ID); err != nil {
			s.log.Warn("roomsvc: failed to ack expiry entry", entry.ID, err)
		}
	}
}

// handleExpiredEntry extracts the user id from a heartbeat:{user_id} key
// (ignoring any other key prefix) and runs the shared partner-left path.
func (s *Service) handleExpiredEntry(ctx context.Context, key string) {
	userID, ok := rediskeys.UserIDFromHeartbeatKey(key)
	if !ok {
		return
	}
	s.handlePartnerLeft(ctx, userID)
}

// handlePartnerLeft is the shared path both the expiry consumer and Exit
// invoke: look up the partner via the departing user's own snapshot, and
// either notify them (if alive) or start a grace-hold (if not).
func (s *Service) handlePartnerLeft(ctx context.Context, userID string) {
	snap, ok, err := s.rooms.GetSnapshot(ctx, userID)
	if err != nil {
		s.log.Warn("roomsvc: handlePartnerLeft: snapshot lookup failed", userID, err)
		return
	}
	if !ok {
		return
	}

	partnerAlive, err := s.rooms.HeartbeatExists(ctx, snap.Partner)
	if err != nil {
		s.log.Warn("roomsvc: handlePartnerLeft: partner heartbeat check failed", snap.Partner, err)
		return
	}

	if partnerAlive {
		s.notifyPartner(ctx, snap.Partner, snap.MatchID, models.MsgPartnerLeft)
		return
	}

	go s.runGraceHold(context.Background(), snap.MatchID, userID, snap.Partner)
}

// runGraceHold sets the cleanup sentinel, polls every graceHoldPoll for up
// to graceHold, and if the sentinel survives untouched deletes both room
// hashes and the sentinel in one pipeline. A concurrent reconnect removing
// the sentinel externally cancels the hold silently.
func (s *Service) runGraceHold(ctx context.Context, roomID, departedUser, partner string) {
	if err := s.rooms.SetCleanup(ctx, roomID, departedUser); err != nil {
		s.log.Warn("roomsvc: grace-hold: failed to set cleanup sentinel", roomID, err)
		return
	}

	deadline := time.Now().Add(s.graceHold)
	ticker := time.NewTicker(s.graceHoldPoll)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		exists, err := s.rooms.CleanupExists(ctx, roomID)
		if err != nil {
			s.log.Warn("roomsvc: grace-hold: cleanup check failed", roomID, err)
			continue
		}
		if !exists {
			s.log.Info("roomsvc: grace-hold cancelled by reconnect for room", roomID)
			return
		}
	}

	if err := s.rooms.CleanupRoom(ctx, departedUser, partner, roomID); err != nil {
		s.log.Warn("roomsvc: grace-hold: cleanup failed", roomID, err)
		return
	}
	httpmetrics.RoomClosed(metricsService)
	s.log.Info("roomsvc: room cleaned up after grace-hold expiry", roomID)
}
