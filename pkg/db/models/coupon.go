package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
)

// Coupon is a code-activated discount rule.
type Coupon struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Code                  string              `gorm:"column:code;not null;uniqueIndex"`
	Name                  string              `gorm:"column:name;not null"`
	DiscountType          enums.DiscountType  `gorm:"column:discount_type;type:text;not null;default:fixed"`
	DiscountAmount        decimal.Decimal     `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	MinimumPurchaseAmount decimal.Decimal     `gorm:"column:minimum_purchase_amount;type:numeric(12,2);not null;default:0"`
	MaximumDiscountAmount decimal.NullDecimal `gorm:"column:maximum_discount_amount;type:numeric(12,2)"`
	UsageLimitPerCoupon   *int                `gorm:"column:usage_limit_per_coupon"`
	UsageLimitPerUser     *int                `gorm:"column:usage_limit_per_user"`
	StartsAt              time.Time           `gorm:"column:starts_at;not null"`
	ExpiresAt             time.Time           `gorm:"column:expires_at;not null"`
	IsActive              bool                `gorm:"column:is_active;not null;default:true"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
