package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/internal/inventory"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/pagination"
)

// Repository defines persistence operations for orders and their satellites.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	NextSequence(ctx context.Context, prefix string, year int) (int, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	FindByID(ctx context.Context, id uuid.UUID, lock bool) (*models.Order, error)
	FindByNumber(ctx context.Context, number string, lock bool) (*models.Order, error)
	LoadDetail(ctx context.Context, order *models.Order) error
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	List(ctx context.Context, filter ListFilter, page pagination.Query) ([]models.Order, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	LatestPayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	UpdatePayment(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// stockReturner credits stock back to the ledger inside a transaction.
type stockReturner interface {
	AdjustTx(ctx context.Context, tx *gorm.DB, input inventory.AdjustInput) (*models.InventoryTransaction, error)
}
