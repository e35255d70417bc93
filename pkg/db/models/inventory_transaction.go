package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
)

// InventoryTransaction is an append-only ledger row. AfterQuantity always
// equals BeforeQuantity + Quantity.
type InventoryTransaction struct {
	ID             uuid.UUID                      `gorm:"column:id;type:uuid;primaryKey"`
	ProductID      uuid.UUID                      `gorm:"column:product_id;type:uuid;not null;index"`
	VariantID      *uuid.UUID                     `gorm:"column:variant_id;type:uuid"`
	StockID        uuid.UUID                      `gorm:"column:stock_id;type:uuid;not null"`
	Type           enums.InventoryTransactionType `gorm:"column:type;type:text;not null"`
	Quantity       int                            `gorm:"column:quantity;not null"`
	BeforeQuantity int                            `gorm:"column:before_quantity;not null"`
	AfterQuantity  int                            `gorm:"column:after_quantity;not null"`
	ReferenceKind  enums.InventoryReferenceKind   `gorm:"column:reference_kind;type:text;not null"`
	ReferenceID    *uuid.UUID                     `gorm:"column:reference_id;type:uuid"`
	Remarks        *string                        `gorm:"column:remarks"`
	CreatedBy      *uuid.UUID                     `gorm:"column:created_by;type:uuid"`
	CreatedAt      time.Time                      `gorm:"column:created_at;autoCreateTime;index"`
}

func (t *InventoryTransaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
