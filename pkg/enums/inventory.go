package enums

import "fmt"

// InventoryTransactionType classifies a ledger row.
type InventoryTransactionType string

const (
	InventoryTxPurchase   InventoryTransactionType = "purchase"
	InventoryTxSale       InventoryTransactionType = "sale"
	InventoryTxReturn     InventoryTransactionType = "return"
	InventoryTxAdjustment InventoryTransactionType = "adjustment"
)

var validInventoryTransactionTypes = []InventoryTransactionType{
	InventoryTxPurchase,
	InventoryTxSale,
	InventoryTxReturn,
	InventoryTxAdjustment,
}

func (t InventoryTransactionType) String() string {
	return string(t)
}

func (t InventoryTransactionType) IsValid() bool {
	for _, candidate := range validInventoryTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseInventoryTransactionType converts raw input into an InventoryTransactionType.
func ParseInventoryTransactionType(value string) (InventoryTransactionType, error) {
	for _, candidate := range validInventoryTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory transaction type %q", value)
}

// InventoryReferenceKind is the closed set of things a ledger row can point at.
type InventoryReferenceKind string

const (
	InventoryRefOrder            InventoryReferenceKind = "order"
	InventoryRefManualAdjustment InventoryReferenceKind = "manual_adjustment"
	InventoryRefInitialStock     InventoryReferenceKind = "initial_stock"
)

func (k InventoryReferenceKind) IsValid() bool {
	switch k {
	case InventoryRefOrder, InventoryRefManualAdjustment, InventoryRefInitialStock:
		return true
	default:
		return false
	}
}

// StockAdjustmentOp is the operator-facing manual stock operation.
type StockAdjustmentOp string

const (
	StockOpAdd      StockAdjustmentOp = "add"
	StockOpSubtract StockAdjustmentOp = "subtract"
	StockOpSet      StockAdjustmentOp = "set"
)

var validStockAdjustmentOps = []StockAdjustmentOp{
	StockOpAdd,
	StockOpSubtract,
	StockOpSet,
}

func (o StockAdjustmentOp) IsValid() bool {
	for _, candidate := range validStockAdjustmentOps {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseStockAdjustmentOp converts raw input into a StockAdjustmentOp.
func ParseStockAdjustmentOp(value string) (StockAdjustmentOp, error) {
	for _, candidate := range validStockAdjustmentOps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock operation %q", value)
}
