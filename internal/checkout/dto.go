package checkout

import (
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
)

// PlaceOrderInput is the customer's checkout form. DeliveryAreaID falls back
// to the area selected on the cart.
type PlaceOrderInput struct {
	CustomerName    string     `json:"customer_name" validate:"required,max=120"`
	CustomerPhone   string     `json:"customer_phone" validate:"required,phone"`
	CustomerEmail   *string    `json:"customer_email,omitempty" validate:"omitempty,email"`
	ShippingAddress string     `json:"shipping_address" validate:"required,max=500"`
	DeliveryAreaID  *uuid.UUID `json:"delivery_area_id,omitempty"`
	DeliverySlotID  uuid.UUID  `json:"delivery_slot_id" validate:"required"`
	DeliveryDate    string     `json:"delivery_date" validate:"required,date"`
	PaymentMethod   string     `json:"payment_method" validate:"required"`
	TransactionID   *string    `json:"transaction_id,omitempty"`
	Notes           *string    `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func parseDeliveryDate(raw string) (time.Time, error) {
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery_date must be YYYY-MM-DD")
	}
	return day, nil
}
