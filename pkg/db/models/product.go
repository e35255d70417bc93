package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
)

// Product is the catalog listing read by the cart and checkout paths.
type Product struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name               string              `gorm:"column:name;not null"`
	SKU                string              `gorm:"column:sku;not null;uniqueIndex"`
	BasePrice          decimal.Decimal     `gorm:"column:base_price;type:numeric(12,2);not null"`
	SalePrice          decimal.Decimal     `gorm:"column:sale_price;type:numeric(12,2);not null"`
	StockAlertQuantity int                 `gorm:"column:stock_alert_quantity;not null;default:10"`
	Status             enums.ProductStatus `gorm:"column:status;type:text;not null;default:active"`
	Variants           []ProductVariant    `gorm:"foreignKey:ProductID"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProductVariant prices on top of its product's sale price.
type ProductVariant struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Name            string          `gorm:"column:name;not null"`
	SKU             string          `gorm:"column:sku;not null;uniqueIndex"`
	AdditionalPrice decimal.Decimal `gorm:"column:additional_price;type:numeric(12,2);not null;default:0"`
	IsActive        bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
