// Command server runs the expiry observer service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/cs3219-g21/expireobserver/internal/config"
	"github.com/cs3219-g21/expireobserver/internal/logging"
	"github.com/cs3219-g21/expireobserver/internal/observer"
)

var exitFunc = os.Exit

func main() {
	if err := run(context.Background()); err != nil {
		logging.New().Error("server exited with error", err)
		exitFunc(1)
	}
}

func run(ctx context.Context) error {
	log := logging.New()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	roomsClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr(), DB: cfg.RoomsDB})
	defer roomsClient.Close()
	eventsClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr(), DB: cfg.EventsDB})
	defer eventsClient.Close()

	// The subscription below is useless unless the server emits expiry
	// events for the rooms DB. Managed Redis may refuse CONFIG SET; log
	// and carry on, the operator has to set it server-side then.
	if err := roomsClient.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err(); err != nil {
		log.Warn("failed to enable keyspace expiry notifications", err)
	}

	obs := observer.New(roomsClient, eventsClient, log, cfg.StreamKey)
	log.Info("expiry observer starting, rooms db", cfg.RoomsDB, "events db", cfg.EventsDB)
	return obs.Run(ctx, cfg.RoomsDB)
}
