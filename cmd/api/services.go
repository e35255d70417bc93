package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IstiakDeveloper/orgreeni/api/routes"
	"github.com/IstiakDeveloper/orgreeni/internal/cart"
	"github.com/IstiakDeveloper/orgreeni/internal/catalog"
	"github.com/IstiakDeveloper/orgreeni/internal/checkout"
	"github.com/IstiakDeveloper/orgreeni/internal/coupons"
	"github.com/IstiakDeveloper/orgreeni/internal/delivery"
	"github.com/IstiakDeveloper/orgreeni/internal/inventory"
	"github.com/IstiakDeveloper/orgreeni/internal/orders"
	"github.com/IstiakDeveloper/orgreeni/internal/settings"
	"github.com/IstiakDeveloper/orgreeni/pkg/config"
	"github.com/IstiakDeveloper/orgreeni/pkg/db"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
	"github.com/IstiakDeveloper/orgreeni/pkg/metrics"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox"
	"github.com/IstiakDeveloper/orgreeni/pkg/redis"
)

// buildServices wires the domain services behind the HTTP surface. Every
// service shares one database handle and one outbox emitter.
func buildServices(
	ctx context.Context,
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	reg prometheus.Registerer,
) (routes.Services, error) {
	conn := dbClient.DB()

	defaults, err := settings.DefaultsFromConfig(cfg.Commerce)
	if err != nil {
		return routes.Services{}, fmt.Errorf("commerce defaults: %w", err)
	}
	policy, err := settings.NewProvider(settings.NewRepository(conn), redisClient, defaults, cfg.Commerce.PolicyCacheTTL, logg)
	if err != nil {
		return routes.Services{}, fmt.Errorf("settings provider: %w", err)
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	if err != nil {
		return routes.Services{}, fmt.Errorf("catalog service: %w", err)
	}
	couponSvc, err := coupons.NewService(coupons.NewRepository(conn))
	if err != nil {
		return routes.Services{}, fmt.Errorf("coupon service: %w", err)
	}
	deliverySvc, err := delivery.NewService(delivery.NewRepository(conn))
	if err != nil {
		return routes.Services{}, fmt.Errorf("delivery service: %w", err)
	}

	events := outbox.NewWriter(outbox.NewRepository(conn), logg)

	inventorySvc, err := inventory.NewService(inventory.ServiceParams{
		Repo:    inventory.NewRepository(conn),
		DB:      dbClient,
		Policy:  policy,
		Events:  events,
		Metrics: metrics.NewInventoryMetrics(reg),
		Logger:  logg,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("inventory service: %w", err)
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
		return routes.Services{}, fmt.Errorf("cart service: %w", err)
	}

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:      orders.NewRepository(conn),
		DB:        dbClient,
		Inventory: inventorySvc,
		Events:    events,
		Logger:    logg,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("order service: %w", err)
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		DB:        dbClient,
		Cart:      cartSvc,
		Delivery:  deliverySvc,
		Orders:    orderSvc,
		Inventory: inventorySvc,
		Policy:    policy,
		Events:    events,
		Metrics:   metrics.NewCheckoutMetrics(reg),
		Logger:    logg,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("checkout service: %w", err)
	}

	logg.Info(ctx, "domain services wired")

	return routes.Services{
		Cart:           cartSvc,
		Checkout:       checkoutSvc,
		CustomerOrders: orderSvc,
		AdminOrders:    orderSvc,
		Inventory:      inventorySvc,
		Delivery:       deliverySvc,
		Settings:       policy,
	}, nil
}
