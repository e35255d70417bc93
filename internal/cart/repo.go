package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
)

// Repository exposes persistence operations for carts and their items.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByOwner loads the owner's cart with its items. lock takes a row lock
// on the cart so concurrent mutations of it serialise.
func (r *Repository) FindByOwner(ctx context.Context, owner Owner, lock bool) (*models.Cart, error) {
	q := r.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var cart models.Cart
	if err := owner.scope(q).First(&cart).Error; err != nil {
		return nil, err
	}

	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cart.ID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return &cart, nil
}

// Create opens an empty cart for owner. Losing a race to a concurrent
// create is not an error; callers re-read.
func (r *Repository) Create(ctx context.Context, owner Owner) error {
	cart := models.Cart{UserID: owner.UserID}
	if owner.UserID == nil {
		sessionID := owner.SessionID
		cart.SessionID = &sessionID
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&cart).Error
}

// Save writes the cart's references and cached totals.
func (r *Repository) Save(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cart.ID).
		Updates(map[string]any{
			"coupon_id":        cart.CouponID,
			"delivery_area_id": cart.DeliveryAreaID,
			"subtotal":         cart.Subtotal,
			"discount":         cart.Discount,
			"shipping_charge":  cart.ShippingCharge,
			"vat":              cart.VAT,
			"total":            cart.Total,
			"notes":            cart.Notes,
			"updated_at":       time.Now().UTC(),
		}).Error
}

func (r *Repository) InsertItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *Repository) UpdateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"quantity":   item.Quantity,
			"unit_price": item.UnitPrice,
			"subtotal":   item.Subtotal,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *Repository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&models.CartItem{}).Error
}

func (r *Repository) MoveItem(ctx context.Context, itemID, toCartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Update("cart_id", toCartID).Error
}

// Delete removes the cart and its items.
func (r *Repository) Delete(ctx context.Context, cartID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("id = ?", cartID).Delete(&models.Cart{}).Error
}

// DeleteStaleGuestCarts removes session carts untouched since before.
func (r *Repository) DeleteStaleGuestCarts(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&models.Cart{}).
			Select("id").
			Where("session_id IS NOT NULL AND updated_at < ?", before)
		if err := tx.Where("cart_id IN (?)", stale).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("session_id IS NOT NULL AND updated_at < ?", before).Delete(&models.Cart{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	return removed, err
}
