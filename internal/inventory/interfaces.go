package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/pagination"
)

// StockRepository is the persistence surface used by the ledger service.
type StockRepository interface {
	WithTx(tx *gorm.DB) StockRepository
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error)
	LockStock(ctx context.Context, sel stockSelector) (*models.ProductStock, error)
	CreateStock(ctx context.Context, row *models.ProductStock) error
	SwapQuantity(ctx context.Context, id uuid.UUID, expected, next int) (bool, error)
	InsertTransaction(ctx context.Context, row *models.InventoryTransaction) error
	SumQuantity(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int, error)
	SumProductQuantity(ctx context.Context, productID uuid.UUID) (int, error)
	ListTransactions(ctx context.Context, filter TransactionFilter, page pagination.Query) ([]models.InventoryTransaction, error)
	RecentTransactions(ctx context.Context, limit int) ([]models.InventoryTransaction, error)
	ProductLevels(ctx context.Context) ([]productLevel, error)
	ProjectionTotals(ctx context.Context) ([]keyTotal, error)
	LedgerTotals(ctx context.Context) ([]keyTotal, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// stockSelector picks the lot an adjustment lands on.
type stockSelector struct {
	ProductID      uuid.UUID
	VariantID      *uuid.UUID
	BatchNumber    *string
	PreferPositive bool
}

// productLevel is one active product with its summed stock.
type productLevel struct {
	ProductID          uuid.UUID `gorm:"column:product_id"`
	Name               string    `gorm:"column:name"`
	SKU                string    `gorm:"column:sku"`
	StockAlertQuantity int       `gorm:"column:stock_alert_quantity"`
	CurrentStock       int       `gorm:"column:current_stock"`
}

func (p productLevel) threshold(fallback int) int {
	if p.StockAlertQuantity > 0 {
		return p.StockAlertQuantity
	}
	return fallback
}
