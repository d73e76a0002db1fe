// Command server runs the room manager service.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cs3219-g21/roommanager/internal/config"
	"github.com/cs3219-g21/roommanager/internal/httpapi"
	"github.com/cs3219-g21/roommanager/internal/logging"
	"github.com/cs3219-g21/roommanager/internal/questionclient"
	"github.com/cs3219-g21/roommanager/internal/registry"
	"github.com/cs3219-g21/roommanager/internal/reviewclient"
	"github.com/cs3219-g21/roommanager/internal/roomsvc"
	"github.com/cs3219-g21/roommanager/internal/wsgateway"
	"github.com/google/uuid"
)

var (
	exitFunc       = os.Exit
	listenAndServe = func(srv *http.Server) error { return srv.ListenAndServe() }
)

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

	rooms := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr(), DB: cfg.RoomsDB})
	defer rooms.Close()
	events := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr(), DB: cfg.EventsDB})
	defer events.Close()

	// Heartbeat expiry events are the sole partner-left trigger, so make
	// sure the server emits them. Managed Redis may refuse CONFIG SET;
	// log and carry on, the operator has to set it server-side then.
	if err := rooms.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err(); err != nil {
		log.Warn("failed to enable keyspace expiry notifications", err)
	}

	gw := wsgateway.New(cfg.GatewayWSURL, log)
	if err := gw.Connect(ctx); err != nil {
		log.Warn("wsgateway: initial connect failed, will retry lazily", err)
	}
	defer gw.Close()

	instanceID := uuid.NewString()
	svc := roomsvc.New(rooms, events, gw, questionclient.New(cfg.QuestionPoolURL), reviewclient.New(cfg.QuestionHistoryURL),
		log, instanceID, cfg.HeartbeatTTL, cfg.GraceHold, cfg.GraceHoldPoll, cfg.LockTTL)

	handlers := httpapi.New(svc, log, cfg.JWTSecret)
	router := httpapi.NewRouter(handlers, cfg.FrontEndURL())

	reg := registry.New(log, cfg.APIGatewayURL, cfg.RegistryPath, cfg.HeartbeatPath, cfg.ServiceName, cfg.ServiceAddress, roomManagerRoutes())
	if err := reg.Register(ctx); err != nil {
		log.Warn("registry: initial registration failed", err)
	}
	go reg.StartHeartbeat(ctx, cfg.HeartbeatPeriod)

	go runCreateRoomPoller(ctx, svc, log)
	go runExpiryConsumer(ctx, svc, cfg, log)
	go runHeartbeatListener(ctx, svc, gw, cfg, log)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		log.Info("room manager listening on :" + cfg.Port)
		if err := listenAndServe(srv); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// runCreateRoomPoller polls for confirmed matches awaiting a room build.
func runCreateRoomPoller(ctx context.Context, svc *roomsvc.Service, log *logging.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.PollCreateRoom(ctx); err != nil {
				log.Warn("create_room poll failed", err)
			}
		}
	}
}

// runExpiryConsumer restarts the stream consumer loop on error.
func runExpiryConsumer(ctx context.Context, svc *roomsvc.Service, cfg config.Config, log *logging.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := svc.RunExpiryConsumer(ctx, cfg.StreamKey, cfg.Group); err != nil {
			log.Warn("expiry consumer exited, restarting", err)
			time.Sleep(time.Second)
		}
	}
}

// runHeartbeatListener drains inbound gateway frames and extends the
// sender's heartbeat TTL on each {message: "heartbeat"} frame.
func runHeartbeatListener(ctx context.Context, svc *roomsvc.Service, gw *wsgateway.Gateway, cfg config.Config, log *logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, ok, err := gw.Receive(ctx, cfg.WSReceiveWait)
		if err != nil {
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			continue
		}
		if frame.Message != "heartbeat" || frame.UserID == "" {
			continue
		}
		if err := svc.HeartbeatTick(ctx, frame.UserID); err != nil {
			log.Warn("heartbeat_tick failed", frame.UserID, err)
		}
	}
}

func roomManagerRoutes() []registry.Route {
	return []registry.Route{
		{Path: "/connect/{room_id}", Method: http.MethodPost, Roles: []string{"user"}},
		{Path: "/reconnect", Method: http.MethodPost, Roles: []string{"user"}},
		{Path: "/exit", Method: http.MethodPost, Roles: []string{"user"}},
		{Path: "/terminate/{room_id}", Method: http.MethodPost, Roles: []string{"user"}},
	}
}
