package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	"github.com/IstiakDeveloper/orgreeni/pkg/pagination"
)

// AdjustInput describes one signed stock movement. BatchNumber narrows the
// target lot; without it the earliest-expiring lot is used.
type AdjustInput struct {
	ProductID    uuid.UUID
	VariantID    *uuid.UUID
	BatchNumber  *string
	ExpiryDate   *time.Time
	Location     *string
	Delta        int
	Type         enums.InventoryTransactionType
	Reference    Reference
	Remarks      *string
	Actor        *uuid.UUID
	EnforceFloor bool

	// target switches the movement to "set the lot to this quantity".
	target *int
}

// ManualAdjustInput is the operator-facing stock operation.
type ManualAdjustInput struct {
	ProductID   uuid.UUID               `json:"product_id" validate:"required"`
	VariantID   *uuid.UUID              `json:"variant_id,omitempty"`
	Op          enums.StockAdjustmentOp `json:"type" validate:"required,oneof=add subtract set"`
	Quantity    int                     `json:"quantity" validate:"gte=0"`
	BatchNumber *string                 `json:"batch_number,omitempty"`
	ExpiryDate  *time.Time              `json:"expiry_date,omitempty"`
	Location    *string                 `json:"location,omitempty"`
	Remarks     *string                 `json:"remarks,omitempty"`
	Actor       *uuid.UUID              `json:"-"`
}

type TransactionFilter struct {
	ProductID *uuid.UUID
	VariantID *uuid.UUID
	Type      *enums.InventoryTransactionType
	From      *time.Time
	To        *time.Time
	Page      pagination.Params
}

type TransactionPage struct {
	Items      []models.InventoryTransaction `json:"items"`
	NextCursor string                        `json:"next_cursor,omitempty"`
}

type LowStockItem struct {
	ProductID    uuid.UUID `json:"product_id"`
	Name         string    `json:"name"`
	SKU          string    `json:"sku"`
	CurrentStock int       `json:"current_stock"`
	Threshold    int       `json:"threshold"`
}

type Stats struct {
	TotalProducts      int64                         `json:"total_products"`
	TotalStock         int64                         `json:"total_stock"`
	InStock            int64                         `json:"in_stock"`
	LowStock           int64                         `json:"low_stock"`
	OutOfStock         int64                         `json:"out_of_stock"`
	RecentTransactions []models.InventoryTransaction `json:"recent_transactions"`
}

// Drift is a (product, variant) key whose stock rows disagree with the ledger.
type Drift struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Projected int64      `json:"projected"`
	Ledger    int64      `json:"ledger"`
}

type ReconcileReport struct {
	Checked int     `json:"checked"`
	Drifts  []Drift `json:"drifts"`
}

// keyTotal is a summed quantity for one (product, variant) key.
type keyTotal struct {
	ProductID uuid.UUID  `gorm:"column:product_id"`
	VariantID *uuid.UUID `gorm:"column:variant_id"`
	Total     int64      `gorm:"column:total"`
}

func (k keyTotal) key() string {
	if k.VariantID == nil {
		return k.ProductID.String() + "|"
	}
	return k.ProductID.String() + "|" + k.VariantID.String()
}
