package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/IstiakDeveloper/orgreeni/api/routes"
	"github.com/IstiakDeveloper/orgreeni/pkg/bootstrap"
	"github.com/IstiakDeveloper/orgreeni/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	bootstrap.Main("api", run, bootstrap.WithoutMetricsListener())
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	cfg, logg := rt.Config, rt.Logger

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	rt.OnClose("redis", redisClient.Close)

	services, err := buildServices(ctx, cfg, logg, rt.DB, redisClient, rt.Registry)
	if err != nil {
		return err
	}

	// PORT wins so platform routers can assign one.
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           routes.NewRouter(cfg, logg, rt.DB, redisClient, rt.Registry, services),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx = logg.WithField(ctx, "addr", server.Addr)
	logg.Info(ctx, "api.listening")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logg.Info(ctx, "api.draining")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
