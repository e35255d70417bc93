package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/internal/settings"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
	"github.com/IstiakDeveloper/orgreeni/pkg/metrics"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox/payloads"
	"github.com/IstiakDeveloper/orgreeni/pkg/pagination"
)

const (
	maxSwapAttempts  = 3
	recentTxLimit    = 10
	defaultLowStockN = 50
)

// Service is the only path through which stock quantities change.
type Service interface {
	// AdjustTx applies one movement inside the caller's transaction.
	AdjustTx(ctx context.Context, tx *gorm.DB, input AdjustInput) (*models.InventoryTransaction, error)
	Adjust(ctx context.Context, input AdjustInput) (*models.InventoryTransaction, error)
	ApplyManual(ctx context.Context, input ManualAdjustInput) (*models.InventoryTransaction, error)
	CurrentStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int, error)
	IsLowStock(ctx context.Context, productID uuid.UUID) (bool, error)
	ListLowStock(ctx context.Context, limit int) ([]LowStockItem, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) (TransactionPage, error)
	Stats(ctx context.Context) (Stats, error)
	Reconcile(ctx context.Context) (ReconcileReport, error)
}

// ServiceParams wires the ledger service. Events and Metrics are optional.
type ServiceParams struct {
	Repo    StockRepository
	DB      txRunner
	Policy  settings.Provider
	Events  outbox.Emitter
	Metrics *metrics.InventoryMetrics
	Logger  *logger.Logger
}

type service struct {
	repo    StockRepository
	db      txRunner
	policy  settings.Provider
	events  outbox.Emitter
	metrics *metrics.InventoryMetrics
	logg    *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Policy == nil {
		return nil, fmt.Errorf("policy provider required")
	}
	return &service{
		repo:    params.Repo,
		db:      params.DB,
		policy:  params.Policy,
		events:  params.Events,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.InventoryTransaction, error) {
	var out *models.InventoryTransaction
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		out, err = s.AdjustTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) AdjustTx(ctx context.Context, tx *gorm.DB, input AdjustInput) (*models.InventoryTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory adjustment requires a transaction")
	}
	if err := validateAdjust(input); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)

	product, err := repo.FindProduct(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		lot, err := s.lockOrOpenLot(ctx, repo, input)
		if err != nil {
			return nil, err
		}

		delta := input.Delta
		if input.target != nil {
			delta = *input.target - lot.Quantity
		}
		before := lot.Quantity
		after := before + delta
		if input.EnforceFloor && after < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").WithDetails(map[string]any{
				"product_id": input.ProductID.String(),
				"available":  before,
				"requested":  -delta,
			})
		}

		swapped, err := repo.SwapQuantity(ctx, lot.ID, before, after)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update stock")
		}
		if !swapped {
			continue
		}

		entry := &models.InventoryTransaction{
			ProductID:      input.ProductID,
			VariantID:      input.VariantID,
			StockID:        lot.ID,
			Type:           input.Type,
			Quantity:       delta,
			BeforeQuantity: before,
			AfterQuantity:  after,
			ReferenceKind:  input.Reference.Kind,
			ReferenceID:    input.Reference.ID,
			Remarks:        input.Remarks,
			CreatedBy:      input.Actor,
		}
		if err := repo.InsertTransaction(ctx, entry); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record inventory transaction")
		}
		s.metrics.ObserveAdjustment(string(input.Type), delta)

		if delta < 0 {
			if err := s.checkLowStock(ctx, tx, repo, product, input, delta); err != nil {
				return nil, err
			}
		}

		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"product_id": input.ProductID.String(),
				"stock_id":   lot.ID.String(),
				"type":       string(input.Type),
				"delta":      delta,
				"after":      after,
			})
			s.logg.Info(logCtx, "inventory adjusted")
		}
		return entry, nil
	}

	return nil, pkgerrors.New(pkgerrors.CodeConflict, "stock changed concurrently, retry")
}

// lockOrOpenLot returns the locked target lot, opening an empty one when the
// key (or the named batch) has none yet.
func (s *service) lockOrOpenLot(ctx context.Context, repo StockRepository, input AdjustInput) (*models.ProductStock, error) {
	sel := stockSelector{
		ProductID:      input.ProductID,
		VariantID:      input.VariantID,
		BatchNumber:    input.BatchNumber,
		PreferPositive: input.Delta < 0,
	}
	lot, err := repo.LockStock(ctx, sel)
	if err == nil {
		return lot, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock stock")
	}

	fresh := &models.ProductStock{
		ProductID:   input.ProductID,
		VariantID:   input.VariantID,
		BatchNumber: input.BatchNumber,
		ExpiryDate:  input.ExpiryDate,
		Location:    input.Location,
	}
	if err := repo.CreateStock(ctx, fresh); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open stock lot")
	}
	lot, err = repo.LockStock(ctx, sel)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock stock")
	}
	return lot, nil
}

// checkLowStock emits stock_low when this movement took the product total
// from above its threshold to at or below it.
func (s *service) checkLowStock(ctx context.Context, tx *gorm.DB, repo StockRepository, product *models.Product, input AdjustInput, delta int) error {
	threshold, err := s.thresholdFor(ctx, product)
	if err != nil {
		return err
	}
	total, err := repo.SumProductQuantity(ctx, product.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum product stock")
	}
	previous := total - delta
	if previous <= threshold || total > threshold {
		return nil
	}

	s.metrics.IncLowStock()
	if s.events == nil {
		return nil
	}
	var actor *outbox.ActorRef
	if input.Actor != nil {
		actor = &outbox.ActorRef{UserID: input.Actor}
	}
	err = s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventStockLow,
		AggregateType: enums.AggregateProduct,
		AggregateID:   product.ID,
		Actor:         actor,
		Data: payloads.StockLowEvent{
			ProductID:    product.ID,
			VariantID:    input.VariantID,
			CurrentStock: total,
			Threshold:    threshold,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit stock low event")
	}
	return nil
}

func (s *service) thresholdFor(ctx context.Context, product *models.Product) (int, error) {
	if product.StockAlertQuantity > 0 {
		return product.StockAlertQuantity, nil
	}
	policy, err := s.policy.Policy(ctx)
	if err != nil {
		return 0, err
	}
	return policy.LowStockThreshold, nil
}

func (s *service) ApplyManual(ctx context.Context, input ManualAdjustInput) (*models.InventoryTransaction, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}

	adjust := AdjustInput{
		ProductID:   input.ProductID,
		VariantID:   input.VariantID,
		BatchNumber: input.BatchNumber,
		ExpiryDate:  input.ExpiryDate,
		Location:    input.Location,
		Reference:   ManualRef(),
		Remarks:     input.Remarks,
		Actor:       input.Actor,
	}
	switch input.Op {
	case enums.StockOpAdd:
		if input.Quantity == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		adjust.Type = enums.InventoryTxPurchase
		adjust.Delta = input.Quantity
	case enums.StockOpSubtract:
		if input.Quantity == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		adjust.Type = enums.InventoryTxAdjustment
		adjust.Delta = -input.Quantity
		adjust.EnforceFloor = true
	case enums.StockOpSet:
		target := input.Quantity
		adjust.Type = enums.InventoryTxAdjustment
		adjust.target = &target
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported stock operation %q", input.Op))
	}

	var out *models.InventoryTransaction
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if input.VariantID != nil {
			if _, err := s.repo.WithTx(tx).FindVariant(ctx, input.ProductID, *input.VariantID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
			}
		}
		var err error
		out, err = s.AdjustTx(ctx, tx, adjust)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) CurrentStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int, error) {
	total, err := s.repo.SumQuantity(ctx, productID, variantID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum stock")
	}
	return total, nil
}

func (s *service) IsLowStock(ctx context.Context, productID uuid.UUID) (bool, error) {
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	threshold, err := s.thresholdFor(ctx, product)
	if err != nil {
		return false, err
	}
	total, err := s.repo.SumProductQuantity(ctx, productID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum stock")
	}
	return total <= threshold, nil
}

// ListLowStock returns active products at or below their threshold, lowest first.
func (s *service) ListLowStock(ctx context.Context, limit int) ([]LowStockItem, error) {
	if limit <= 0 {
		limit = defaultLowStockN
	}
	policy, err := s.policy.Policy(ctx)
	if err != nil {
		return nil, err
	}
	levels, err := s.repo.ProductLevels(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stock levels")
	}

	items := make([]LowStockItem, 0)
	for _, level := range levels {
		threshold := level.threshold(policy.LowStockThreshold)
		if level.CurrentStock > threshold {
			continue
		}
		items = append(items, LowStockItem{
			ProductID:    level.ProductID,
			Name:         level.Name,
			SKU:          level.SKU,
			CurrentStock: level.CurrentStock,
			Threshold:    threshold,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CurrentStock == items[j].CurrentStock {
			return items[i].Name < items[j].Name
		}
		return items[i].CurrentStock < items[j].CurrentStock
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *service) ListTransactions(ctx context.Context, filter TransactionFilter) (TransactionPage, error) {
	if filter.Type != nil && !filter.Type.IsValid() {
		return TransactionPage{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return TransactionPage{}, pkgerrors.New(pkgerrors.CodeValidation, "date range is inverted")
	}
	query, err := pagination.Resolve(filter.Page)
	if err != nil {
		return TransactionPage{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListTransactions(ctx, filter, query)
	if err != nil {
		return TransactionPage{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list inventory transactions")
	}
	var page TransactionPage
	page.Items, page.NextCursor = pagination.Trim(rows, query.Limit, func(tx models.InventoryTransaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: tx.CreatedAt, ID: tx.ID}
	})
	return page, nil
}

func (s *service) Stats(ctx context.Context) (Stats, error) {
	policy, err := s.policy.Policy(ctx)
	if err != nil {
		return Stats{}, err
	}
	levels, err := s.repo.ProductLevels(ctx)
	if err != nil {
		return Stats{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stock levels")
	}

	var stats Stats
	for _, level := range levels {
		stats.TotalProducts++
		stats.TotalStock += int64(level.CurrentStock)
		switch {
		case level.CurrentStock <= 0:
			stats.OutOfStock++
		case level.CurrentStock <= level.threshold(policy.LowStockThreshold):
			stats.LowStock++
		default:
			stats.InStock++
		}
	}

	recent, err := s.repo.RecentTransactions(ctx, recentTxLimit)
	if err != nil {
		return Stats{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load recent transactions")
	}
	stats.RecentTransactions = recent
	return stats, nil
}

// Reconcile compares every key's stock rows against its ledger sum. Drifts
// are reported and also returned as a combined error.
func (s *service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	projected, err := s.repo.ProjectionTotals(ctx)
	if err != nil {
		return ReconcileReport{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum stock rows")
	}
	ledger, err := s.repo.LedgerTotals(ctx)
	if err != nil {
		return ReconcileReport{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum ledger")
	}

	keys := map[string]*Drift{}
	order := []string{}
	touch := func(t keyTotal) *Drift {
		k := t.key()
		d, ok := keys[k]
		if !ok {
			d = &Drift{ProductID: t.ProductID, VariantID: t.VariantID}
			keys[k] = d
			order = append(order, k)
		}
		return d
	}
	for _, t := range projected {
		touch(t).Projected = t.Total
	}
	for _, t := range ledger {
		touch(t).Ledger = t.Total
	}

	report := ReconcileReport{Checked: len(order), Drifts: []Drift{}}
	var errs error
	for _, k := range order {
		d := keys[k]
		if d.Projected == d.Ledger {
			continue
		}
		report.Drifts = append(report.Drifts, *d)
		errs = multierr.Append(errs, fmt.Errorf("product %s variant %s: stock rows %d, ledger %d",
			d.ProductID, variantLabel(d.VariantID), d.Projected, d.Ledger))
	}
	return report, errs
}

func validateAdjust(input AdjustInput) error {
	if input.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid inventory transaction type %q", input.Type))
	}
	if err := input.Reference.validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inventory reference")
	}
	if input.target == nil && input.Delta == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero")
	}
	if input.target != nil && *input.target < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "target quantity must be non-negative")
	}
	return nil
}

func variantLabel(id *uuid.UUID) string {
	if id == nil {
		return "-"
	}
	return id.String()
}

