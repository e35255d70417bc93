package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/internal/inventory"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox/payloads"
)

const (
	lowStockAlertKind  = "low_stock"
	lowStockScanLimit  = 500
	lowStockAlertTTL   = 25 * time.Hour
	lowStockDateLayout = "2006-01-02"
)

type lowStockLister interface {
	ListLowStock(ctx context.Context, limit int) ([]inventory.LowStockItem, error)
}

type alertStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	AlertKey(kind string, parts ...string) string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type LowStockAlertJobParams struct {
	Logger    *logger.Logger
	Inventory lowStockLister
	Alerts    alertStore
	DB        txRunner
	Events    outbox.Emitter
}

// NewLowStockAlertJob raises at most one stock_low event per product per
// UTC day for every product at or under its threshold.
func NewLowStockAlertJob(params LowStockAlertJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Alerts == nil {
		return nil, fmt.Errorf("alert store required")
	}
	if params.DB == nil || params.Events == nil {
		return nil, fmt.Errorf("db runner and event emitter required")
	}
	return &lowStockAlertJob{
		logg:      params.Logger,
		inventory: params.Inventory,
		alerts:    params.Alerts,
		db:        params.DB,
		events:    params.Events,
		now:       time.Now,
	}, nil
}

type lowStockAlertJob struct {
	logg      *logger.Logger
	inventory lowStockLister
	alerts    alertStore
	db        txRunner
	events    outbox.Emitter
	now       func() time.Time
}

func (j *lowStockAlertJob) Name() string { return "low-stock-alert" }

func (j *lowStockAlertJob) Run(ctx context.Context) error {
	items, err := j.inventory.ListLowStock(ctx, lowStockScanLimit)
	if err != nil {
		return fmt.Errorf("list low stock: %w", err)
	}
	day := j.now().UTC().Format(lowStockDateLayout)

	var (
		raised int
		errs   error
	)
	for _, item := range items {
		key := j.alerts.AlertKey(lowStockAlertKind, item.ProductID.String(), day)
		fresh, err := j.alerts.SetNX(ctx, key, item.CurrentStock, lowStockAlertTTL)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("dedupe %s: %w", item.ProductID, err))
			continue
		}
		if !fresh {
			continue
		}
		if err := j.raise(ctx, item); err != nil {
			// Free the slot so the next tick retries this product.
			if delErr := j.alerts.Del(ctx, key); delErr != nil {
				err = multierr.Append(err, delErr)
			}
			errs = multierr.Append(errs, fmt.Errorf("alert %s: %w", item.ProductID, err))
			continue
		}
		raised++
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"event":         "inventory.low_stock.alert",
			"product_id":    item.ProductID.String(),
			"sku":           item.SKU,
			"current_stock": item.CurrentStock,
			"threshold":     item.Threshold,
		}), "product at or below low stock threshold")
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"scanned": len(items),
		"raised":  raised,
	}), "low stock scan complete")
	return errs
}

func (j *lowStockAlertJob) raise(ctx context.Context, item inventory.LowStockItem) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockLow,
			AggregateType: enums.AggregateProduct,
			AggregateID:   item.ProductID,
			Data: payloads.StockLowEvent{
				ProductID:    item.ProductID,
				CurrentStock: item.CurrentStock,
				Threshold:    item.Threshold,
			},
		})
	})
}
