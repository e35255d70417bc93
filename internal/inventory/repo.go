package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	"github.com/IstiakDeveloper/orgreeni/pkg/pagination"
)

// Repository persists stock lots and ledger rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) StockRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("id = ? AND product_id = ?", variantID, productID).
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// LockStock selects and row-locks the lot an adjustment should touch:
// the named batch when given, otherwise the earliest-expiring lot (undated
// lots last). PreferPositive moves empty lots to the back for debits.
func (r *Repository) LockStock(ctx context.Context, sel stockSelector) (*models.ProductStock, error) {
	q := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", sel.ProductID)
	q = whereVariant(q, sel.VariantID)
	if sel.BatchNumber != nil {
		q = q.Where("batch_number = ?", *sel.BatchNumber)
	}
	if sel.PreferPositive {
		q = q.Order("CASE WHEN quantity > 0 THEN 0 ELSE 1 END")
	}
	var row models.ProductStock
	err := q.
		Order("CASE WHEN expiry_date IS NULL THEN 1 ELSE 0 END").
		Order("expiry_date ASC").
		Order("created_at ASC").
		Order("id ASC").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// CreateStock opens a lot. A concurrent insert of the same lot is ignored;
// callers re-select afterwards.
func (r *Repository) CreateStock(ctx context.Context, row *models.ProductStock) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error
}

// SwapQuantity writes next only if the lot still holds expected.
func (r *Repository) SwapQuantity(ctx context.Context, id uuid.UUID, expected, next int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProductStock{}).
		Where("id = ? AND quantity = ?", id, expected).
		Update("quantity", next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) InsertTransaction(ctx context.Context, row *models.InventoryTransaction) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) SumQuantity(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int, error) {
	var total int64
	q := r.db.WithContext(ctx).
		Model(&models.ProductStock{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("product_id = ?", productID)
	err := whereVariant(q, variantID).Scan(&total).Error
	return int(total), err
}

func (r *Repository) SumProductQuantity(ctx context.Context, productID uuid.UUID) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductStock{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("product_id = ?", productID).
		Scan(&total).Error
	return int(total), err
}

// ListTransactions returns one page of ledger rows matching filter.
func (r *Repository) ListTransactions(ctx context.Context, filter TransactionFilter, page pagination.Query) ([]models.InventoryTransaction, error) {
	q := r.db.WithContext(ctx).Model(&models.InventoryTransaction{})
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.VariantID != nil {
		q = q.Where("variant_id = ?", *filter.VariantID)
	}
	if filter.Type != nil {
		q = q.Where("type = ?", *filter.Type)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", filter.To.UTC())
	}

	var rows []models.InventoryTransaction
	err := page.Apply(q).Find(&rows).Error
	return rows, err
}

func (r *Repository) RecentTransactions(ctx context.Context, limit int) ([]models.InventoryTransaction, error) {
	var rows []models.InventoryTransaction
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ProductLevels sums stock per active product.
func (r *Repository) ProductLevels(ctx context.Context) ([]productLevel, error) {
	var rows []productLevel
	err := r.db.WithContext(ctx).
		Table("products AS p").
		Select("p.id AS product_id, p.name, p.sku, p.stock_alert_quantity, COALESCE(SUM(s.quantity), 0) AS current_stock").
		Joins("LEFT JOIN product_stocks AS s ON s.product_id = p.id").
		Where("p.status = ?", enums.ProductStatusActive).
		Group("p.id, p.name, p.sku, p.stock_alert_quantity").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) ProjectionTotals(ctx context.Context) ([]keyTotal, error) {
	var rows []keyTotal
	err := r.db.WithContext(ctx).
		Model(&models.ProductStock{}).
		Select("product_id, variant_id, COALESCE(SUM(quantity), 0) AS total").
		Group("product_id, variant_id").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) LedgerTotals(ctx context.Context) ([]keyTotal, error) {
	var rows []keyTotal
	err := r.db.WithContext(ctx).
		Model(&models.InventoryTransaction{}).
		Select("product_id, variant_id, COALESCE(SUM(quantity), 0) AS total").
		Group("product_id, variant_id").
		Scan(&rows).Error
	return rows, err
}

func whereVariant(q *gorm.DB, variantID *uuid.UUID) *gorm.DB {
	if variantID == nil {
		return q.Where("variant_id IS NULL")
	}
	return q.Where("variant_id = ?", *variantID)
}
