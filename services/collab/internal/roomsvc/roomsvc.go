// Package roomsvc implements the room manager: room creation from
// confirmed matches, lazy question assignment, heartbeat lifecycle,
// partner-left/partner-rejoined signalling, grace-hold cleanup, and
// explicit reconnect/exit/terminate.
package roomsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cs3219-g21/roommanager/internal/eventqueue"
	"github.com/cs3219-g21/roommanager/internal/httpmetrics"
	"github.com/cs3219-g21/roommanager/internal/lock"
	"github.com/cs3219-g21/roommanager/internal/logging"
	"github.com/cs3219-g21/roommanager/internal/models"
	"github.com/cs3219-g21/roommanager/internal/questionclient"
	"github.com/cs3219-g21/roommanager/internal/rediskeys"
	"github.com/cs3219-g21/roommanager/internal/reviewclient"
	"github.com/cs3219-g21/roommanager/internal/roomstore"
	"github.com/cs3219-g21/roommanager/internal/wsgateway"
)

const metricsService = "collab"
const lockRetryWait = 2 * time.Second

// Errors surfaced to the HTTP boundary.
var (
	ErrNoRoom         = errors.New("roomsvc: user has no active room")
	ErrRoomMismatch   = errors.New("roomsvc: room id does not match the user's active room")
	ErrNoHeartbeat    = errors.New("roomsvc: user has no live heartbeat")
	ErrQuestionFailed = errors.New("roomsvc: question bank unavailable")
	ErrTransientStore = errors.New("roomsvc: key/value store unavailable")
)

// Service orchestrates the room manager's operations.
type Service struct {
	roomsRdb  *redis.Client
	rooms     *roomstore.Store
	events    *eventqueue.Queue
	gw        *wsgateway.Gateway
	questions *questionclient.Client
	review    *reviewclient.Client
	log       *logging.Logger

	instanceID string

	heartbeatTTL  time.Duration
	graceHold     time.Duration
	graceHoldPoll time.Duration
	lockTTL       time.Duration
}

// New constructs a Service. roomsRdb and eventsRdb may be the same client
// (tests, single-DB deployments) or distinct logical DBs on the same
// server; instanceID distinguishes this process as a stream consumer name
// within the shared "collab" consumer group.
func New(roomsRdb, eventsRdb *redis.Client, gw *wsgateway.Gateway, questions *questionclient.Client, review *reviewclient.Client, log *logging.Logger, instanceID string, heartbeatTTL, graceHold, graceHoldPoll, lockTTL time.Duration) *Service {
	return &Service{
		roomsRdb:      roomsRdb,
		rooms:         roomstore.New(roomsRdb),
		events:        eventqueue.New(roomsRdb, eventsRdb),
		gw:            gw,
		questions:     questions,
		review:        review,
		log:           log,
		instanceID:    instanceID,
		heartbeatTTL:  heartbeatTTL,
		graceHold:     graceHold,
		graceHoldPoll: graceHoldPoll,
		lockTTL:       lockTTL,
	}
}

// PollCreateRoom checks for a pending create_room hash and, under
// event_manager_lock, builds the room and deletes the hash.
func (s *Service) PollCreateRoom(ctx context.Context) error {
	lk, err := lock.Acquire(ctx, s.roomsRdb, rediskeys.EventManagerLock, s.lockTTL, lockRetryWait)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	defer lk.Release(ctx)

	event, ok, err := s.events.GetCreateRoom(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	if !ok {
		return nil
	}

	if err := s.buildRoom(ctx, event); err != nil {
		s.log.Error("roomsvc: failed to build room for match", event.MatchID, err)
	}
	return s.events.DeleteCreateRoom(ctx)
}

// buildRoom writes both halves of the userroom snapshot and sets both
// heartbeats. The question itself is assigned lazily on first connect.
func (s *Service) buildRoom(ctx context.Context, event models.CreateRoomEvent) error {
	now := time.Now()

	one := models.RoomSnapshot{
		MatchID:     event.MatchID,
		Partner:     event.UserTwo,
		PartnerName: event.UserTwoName,
		Difficulty:  event.Difficulty,
		Category:    event.Category,
		StartTime:   now,
	}
	two := models.RoomSnapshot{
		MatchID:     event.MatchID,
		Partner:     event.UserOne,
		PartnerName: event.UserOneName,
		Difficulty:  event.Difficulty,
		Category:    event.Category,
		StartTime:   now,
	}

	if err := s.rooms.CreateSnapshot(ctx, event.UserOne, one); err != nil {
		return err
	}
	if err := s.rooms.CreateSnapshot(ctx, event.UserTwo, two); err != nil {
		return err
	}
	if err := s.rooms.RefreshHeartbeat(ctx, event.UserOne, s.heartbeatTTL); err != nil {
		return err
	}
	if err := s.rooms.RefreshHeartbeat(ctx, event.UserTwo, s.heartbeatTTL); err != nil {
		return err
	}

	httpmetrics.RoomCreated(metricsService)
	s.log.Info("roomsvc: room created for match", event.MatchID)
	return nil
}

// HeartbeatTick extends userID's liveness TTL on an inbound heartbeat
// frame. It only touches an existing key: a tick arriving after exit or
// expiry must not resurrect the heartbeat.
func (s *Service) HeartbeatTick(ctx context.Context, userID string) error {
	return s.rooms.TouchHeartbeat(ctx, userID, s.heartbeatTTL)
}

func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrTransientStore, err)
}
