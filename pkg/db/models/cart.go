package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cart is owned by exactly one of UserID or SessionID.
type Cart struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID         *uuid.UUID      `gorm:"column:user_id;type:uuid;uniqueIndex"`
	SessionID      *string         `gorm:"column:session_id;uniqueIndex"`
	CouponID       *uuid.UUID      `gorm:"column:coupon_id;type:uuid"`
	DeliveryAreaID *uuid.UUID      `gorm:"column:delivery_area_id;type:uuid"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	Discount       decimal.Decimal `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	ShippingCharge decimal.Decimal `gorm:"column:shipping_charge;type:numeric(12,2);not null;default:0"`
	VAT            decimal.Decimal `gorm:"column:vat;type:numeric(12,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null;default:0"`
	Notes          *string         `gorm:"column:notes"`
	Items          []CartItem      `gorm:"foreignKey:CartID"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CartItem snapshots the unit price at add time; reads refresh it.
type CartItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Subtotal  decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
