package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
)

// OrderPlacedEvent is emitted when checkout commits a new order.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	UserID        *uuid.UUID          `json:"user_id,omitempty"`
	CustomerPhone string              `json:"customer_phone"`
	Total         string              `json:"total"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	ItemCount     int                 `json:"item_count"`
	DeliveryDate  string              `json:"delivery_date"`
}

// OrderStatusChangedEvent is emitted for every fulfilment status write.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	Comment     string            `json:"comment,omitempty"`
}

// OrderCancelledEvent is emitted when an order enters cancelled or failed.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	Status      enums.OrderStatus `json:"status"`
	Reason      string            `json:"reason,omitempty"`
	CancelledAt time.Time         `json:"cancelled_at"`
	Restocked   bool              `json:"restocked"`
}

// PaymentStatusChangedEvent is emitted when the payment axis moves.
type PaymentStatusChangedEvent struct {
	OrderID     uuid.UUID           `json:"order_id"`
	OrderNumber string              `json:"order_number"`
	From        enums.PaymentStatus `json:"from"`
	To          enums.PaymentStatus `json:"to"`
}

// StockLowEvent is emitted when an adjustment moves a product to or below
// its alert threshold.
type StockLowEvent struct {
	ProductID    uuid.UUID  `json:"product_id"`
	VariantID    *uuid.UUID `json:"variant_id,omitempty"`
	CurrentStock int        `json:"current_stock"`
	Threshold    int        `json:"threshold"`
}
