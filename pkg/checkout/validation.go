package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
)

// LineQuantityInput describes the data required to verify a line's quantity.
type LineQuantityInput struct {
	ProductID   uuid.UUID
	VariantID   *uuid.UUID
	ProductName string
	Quantity    int
}

// LineQuantityViolation exposes the data returned to callers when a validation fails.
type LineQuantityViolation struct {
	ProductID    uuid.UUID  `json:"product_id"`
	VariantID    *uuid.UUID `json:"variant_id,omitempty"`
	ProductName  string     `json:"product_name,omitempty"`
	MaxQty       int        `json:"max_qty"`
	RequestedQty int        `json:"requested_qty"`
}

// ValidateLineQuantities ensures every line holds at least one unit and no
// more than max. A max of zero or less disables the upper bound.
func ValidateLineQuantities(items []LineQuantityInput, max int) error {
	var violations []LineQuantityViolation
	for _, item := range items {
		if item.Quantity >= 1 && (max <= 0 || item.Quantity <= max) {
			continue
		}
		violations = append(violations, LineQuantityViolation{
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			ProductName:  item.ProductName,
			MaxQty:       max,
			RequestedQty: item.Quantity,
		})
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity out of range for %d item(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}
