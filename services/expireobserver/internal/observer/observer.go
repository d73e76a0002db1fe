// Package observer transforms ephemeral keyspace-expired pub/sub
// notifications on the rooms namespace into durable expired_ttl stream
// entries that consumer groups can replay.
package observer

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cs3219-g21/expireobserver/internal/logging"
)

// Observer subscribes to keyspace-expired events on one Redis client
// (rooms namespace) and republishes each as a stream entry on another
// (events namespace).
type Observer struct {
	roomsClient  *redis.Client
	eventsClient *redis.Client
	log          *logging.Logger
	streamKey    string
}

func New(roomsClient, eventsClient *redis.Client, log *logging.Logger, streamKey string) *Observer {
	return &Observer{roomsClient: roomsClient, eventsClient: eventsClient, log: log, streamKey: streamKey}
}

// Run subscribes and blocks until ctx is cancelled. It is intended to be the
// observer's entire reason for existing as a long-running process: pub/sub
// is lossy while this process is down, so restart windows are the only gap.
func (o *Observer) Run(ctx context.Context, roomsDB int) error {
	channel := fmt.Sprintf("__keyevent@%d__:expired", roomsDB)
	sub := o.roomsClient.PSubscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("observer: subscribe to %s failed: %w", channel, err)
	}
	o.log.Info("observer: subscribed to", channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			o.handleExpired(ctx, msg.Payload)
		}
	}
}

// handleExpired appends one {key, event: "expired", timestamp} entry to the
// expired_ttl stream. No filtering: the key prefix (heartbeat:/cleanup:) is
// left for consumers to interpret.
func (o *Observer) handleExpired(ctx context.Context, key string) {
	_, err := o.eventsClient.XAdd(ctx, &redis.XAddArgs{
		Stream: o.streamKey,
		Values: map[string]interface{}{
			"key":       key,
			"event":     "expired",
			"timestamp": time.Now().Unix(),
		},
	}).Result()
	if err != nil {
		o.log.Error("observer: XADD failed for key", key, err)
	}
}
