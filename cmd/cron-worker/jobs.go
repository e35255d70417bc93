package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IstiakDeveloper/orgreeni/internal/cart"
	"github.com/IstiakDeveloper/orgreeni/internal/catalog"
	"github.com/IstiakDeveloper/orgreeni/internal/coupons"
	"github.com/IstiakDeveloper/orgreeni/internal/cron"
	"github.com/IstiakDeveloper/orgreeni/internal/delivery"
	"github.com/IstiakDeveloper/orgreeni/internal/inventory"
	"github.com/IstiakDeveloper/orgreeni/internal/settings"
	"github.com/IstiakDeveloper/orgreeni/pkg/config"
	"github.com/IstiakDeveloper/orgreeni/pkg/db"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
	"github.com/IstiakDeveloper/orgreeni/pkg/metrics"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox"
	"github.com/IstiakDeveloper/orgreeni/pkg/redis"
)

// buildJobs registers the cron jobs in run order: cleanup first, then the
// inventory scans.
func buildJobs(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	reg prometheus.Registerer,
) (*cron.Registry, error) {
	conn := dbClient.DB()

	defaults, err := settings.DefaultsFromConfig(cfg.Commerce)
	if err != nil {
		return nil, fmt.Errorf("commerce defaults: %w", err)
	}
	policy, err := settings.NewProvider(settings.NewRepository(conn), redisClient, defaults, cfg.Commerce.PolicyCacheTTL, logg)
	if err != nil {
		return nil, fmt.Errorf("settings provider: %w", err)
	}

	outboxRepo := outbox.NewRepository(conn)
	events := outbox.NewWriter(outboxRepo, logg)

	inventorySvc, err := inventory.NewService(inventory.ServiceParams{
		Repo:    inventory.NewRepository(conn),
		DB:      dbClient,
		Policy:  policy,
		Events:  events,
		Metrics: metrics.NewInventoryMetrics(reg),
		Logger:  logg,
	})
	if err != nil {
		return nil, fmt.Errorf("inventory service: %w", err)
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}
	couponSvc, err := coupons.NewService(coupons.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("coupon service: %w", err)
	}
	deliverySvc, err := delivery.NewService(delivery.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("delivery service: %w", err)
	}
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repo:     cart.NewRepository(conn),
		DB:       dbClient,
		Catalog:  catalogSvc,
		Coupons:  couponSvc,
		Delivery: deliverySvc,
		Policy:   policy,
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("cart service: %w", err)
	}

	outboxJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
	})
	if err != nil {
		return nil, err
	}
	purgeJob, err := cron.NewGuestCartPurgeJob(cron.GuestCartPurgeJobParams{
		Logger:    logg,
		Carts:     cartSvc,
		Retention: cfg.Cart.GuestRetentionDays,
	})
	if err != nil {
		return nil, err
	}
	lowStockJob, err := cron.NewLowStockAlertJob(cron.LowStockAlertJobParams{
		Logger:    logg,
		Inventory: inventorySvc,
		Alerts:    redisClient,
		DB:        dbClient,
		Events:    events,
	})
	if err != nil {
		return nil, err
	}
	reconcileJob, err := cron.NewLedgerReconcileJob(cron.LedgerReconcileJobParams{
		Logger:    logg,
		Inventory: inventorySvc,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(outboxJob, purgeJob, lowStockJob, reconcileJob), nil
}
