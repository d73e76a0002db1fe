// Command server runs the matchmaker service.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/cs3219-g21/matchmaker/internal/config"
	"github.com/cs3219-g21/matchmaker/internal/httpapi"
	"github.com/cs3219-g21/matchmaker/internal/logging"
	"github.com/cs3219-g21/matchmaker/internal/matchsvc"
	"github.com/cs3219-g21/matchmaker/internal/registry"
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

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr(),
		DB:   cfg.RedisDB,
	})
	defer rdb.Close()

	svc := matchsvc.New(rdb, log, cfg.LockTTL, cfg.FindMatchWait, cfg.ConfirmWait, cfg.SupervisorWait)
	handlers := httpapi.New(svc, log, cfg.JWTSecret)
	router := httpapi.NewRouter(handlers, cfg.FrontEndURL())

	reg := registry.New(log, cfg.APIGatewayURL, cfg.RegistryPath, cfg.HeartbeatPath, cfg.ServiceName, cfg.ServiceAddress, matchmakerRoutes())
	if err := reg.Register(ctx); err != nil {
		log.Warn("registry: initial registration failed", err)
	}
	go reg.StartHeartbeat(ctx, cfg.HeartbeatPeriod)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		log.Info("matchmaker listening on :" + cfg.Port)
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

func matchmakerRoutes() []registry.Route {
	return []registry.Route{
		{Path: "/find_match", Method: http.MethodPost, Roles: []string{"user"}},
		{Path: "/terminate_match", Method: http.MethodDelete, Roles: []string{"user"}},
		{Path: "/confirm_match/{match_id}", Method: http.MethodPost, Roles: []string{"user"}},
	}
}
