package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductStock is one receivable lot of a product or variant.
type ProductStock struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ProductID   uuid.UUID  `gorm:"column:product_id;type:uuid;not null;index:idx_product_stocks_key"`
	VariantID   *uuid.UUID `gorm:"column:variant_id;type:uuid;index:idx_product_stocks_key"`
	BatchNumber *string    `gorm:"column:batch_number"`
	Quantity    int        `gorm:"column:quantity;not null;default:0"`
	ExpiryDate  *time.Time `gorm:"column:expiry_date"`
	Location    *string    `gorm:"column:location"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *ProductStock) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
