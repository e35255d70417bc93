// Package bootstrap is the shared startup path of every binary:
// env, config, logger, database, dev migrations, a metrics listener and a
// context cancelled on SIGINT or SIGTERM.
package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IstiakDeveloper/orgreeni/pkg/config"
	"github.com/IstiakDeveloper/orgreeni/pkg/db"
	"github.com/IstiakDeveloper/orgreeni/pkg/instance"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
	"github.com/IstiakDeveloper/orgreeni/pkg/migrate"
)

const metricsShutdownTimeout = 5 * time.Second

// Runtime is what a worker's run function receives.
type Runtime struct {
	Kind     string
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Registry *prometheus.Registry

	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

// OnClose registers fn to run at shutdown. Closers run in reverse order.
func (rt *Runtime) OnClose(name string, fn func() error) {
	rt.closers = append(rt.closers, closer{name: name, fn: fn})
}

func (rt *Runtime) close(ctx context.Context) {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		c := rt.closers[i]
		if err := c.fn(); err != nil {
			rt.Logger.Error(rt.Logger.WithField(ctx, "resource", c.name), "bootstrap.close_failed", err)
		}
	}
}

// Option adjusts Main.
type Option func(*options)

type options struct {
	metricsListener bool
}

// WithoutMetricsListener is for processes that expose /metrics themselves.
func WithoutMetricsListener() Option {
	return func(o *options) { o.metricsListener = false }
}

// Main runs fn as the process named kind and exits with its outcome. A run
// ended by a shutdown signal exits zero.
func Main(kind string, fn func(ctx context.Context, rt *Runtime) error, opts ...Option) {
	o := options{metricsListener: true}
	for _, opt := range opts {
		opt(&o)
	}
	os.Exit(run(kind, fn, o))
}

func run(kind string, fn func(ctx context.Context, rt *Runtime) error, o options) int {
	logg := logger.New(logger.Options{ServiceName: kind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), "bootstrap.dotenv_missing")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "bootstrap.config_failed", err)
		return 1
	}
	cfg.Service.Kind = kind
	logg = logger.New(logger.Options{
		ServiceName: kind,
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.ID(cfg.Service.InstanceID),
	})

	rt := &Runtime{Kind: kind, Config: cfg, Logger: logg, Registry: NewRegistry()}
	defer rt.close(context.WithoutCancel(ctx))

	rt.DB, err = db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "bootstrap.database_failed", err)
		return 1
	}
	rt.OnClose("database", rt.DB.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, rt.DB); err != nil {
		logg.Error(ctx, "bootstrap.migrate_failed", err)
		return 1
	}

	if o.metricsListener && cfg.App.MetricsAddr != "" {
		serveMetrics(ctx, rt, cfg.App.MetricsAddr)
	}

	logg.Info(ctx, kind+".starting")
	if err := fn(ctx, rt); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, kind+".stopped_unexpectedly", err)
		return 1
	}
	logg.Info(ctx, kind+".stopped")
	return 0
}

// NewRegistry returns a registry carrying the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func serveMetrics(ctx context.Context, rt *Runtime, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{Registry: rt.Registry}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.Logger.Error(rt.Logger.WithField(ctx, "addr", addr), "bootstrap.metrics_listener_failed", err)
		}
	}()
	rt.OnClose("metrics listener", func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
}
