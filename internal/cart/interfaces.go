package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByOwner(ctx context.Context, owner Owner, lock bool) (*models.Cart, error)
	Create(ctx context.Context, owner Owner) error
	Save(ctx context.Context, cart *models.Cart) error
	InsertItem(ctx context.Context, item *models.CartItem) error
	UpdateItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error
	MoveItem(ctx context.Context, itemID, toCartID uuid.UUID) error
	Delete(ctx context.Context, cartID uuid.UUID) error
	DeleteStaleGuestCarts(ctx context.Context, before time.Time) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
