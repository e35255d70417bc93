package main

import (
	"context"

	"github.com/IstiakDeveloper/orgreeni/internal/cron"
	"github.com/IstiakDeveloper/orgreeni/pkg/bootstrap"
	"github.com/IstiakDeveloper/orgreeni/pkg/metrics"
	"github.com/IstiakDeveloper/orgreeni/pkg/redis"
)

func main() {
	bootstrap.Main("cron-worker", run)
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	cfg := rt.Config

	redisClient, err := redis.New(ctx, cfg.Redis, rt.Logger)
	if err != nil {
		return err
	}
	rt.OnClose("redis", redisClient.Close)

	registry, err := buildJobs(cfg, rt.Logger, rt.DB, redisClient, rt.Registry)
	if err != nil {
		return err
	}

	// One lease per environment: every replica competes for the same key.
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+envName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   rt.Logger,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(rt.Registry),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	ctx = rt.Logger.WithField(ctx, "jobs", len(registry.Jobs()))
	return service.Run(ctx)
}

func envName(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
