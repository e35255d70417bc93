package inventory

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
)

// Reference names what caused a ledger row. Only order references carry an ID.
type Reference struct {
	Kind enums.InventoryReferenceKind
	ID   *uuid.UUID
}

func OrderRef(orderID uuid.UUID) Reference {
	return Reference{Kind: enums.InventoryRefOrder, ID: &orderID}
}

func ManualRef() Reference {
	return Reference{Kind: enums.InventoryRefManualAdjustment}
}

func InitialStockRef() Reference {
	return Reference{Kind: enums.InventoryRefInitialStock}
}

func (r Reference) validate() error {
	if !r.Kind.IsValid() {
		return fmt.Errorf("unknown reference kind %q", r.Kind)
	}
	if r.Kind == enums.InventoryRefOrder && (r.ID == nil || *r.ID == uuid.Nil) {
		return fmt.Errorf("order reference requires an order id")
	}
	return nil
}
