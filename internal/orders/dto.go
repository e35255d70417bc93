package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox"
	"github.com/IstiakDeveloper/orgreeni/pkg/pagination"
)

// Actor is who triggered a change. A nil UserID means the system.
type Actor struct {
	UserID *uuid.UUID
	Role   enums.UserRole
}

func (a Actor) ref() *outbox.ActorRef {
	if a.UserID == nil && a.Role == "" {
		return nil
	}
	return &outbox.ActorRef{UserID: a.UserID, Role: string(a.Role)}
}

// Locator finds an order by number for its owner. Authenticated callers are
// matched on UserID, guests on Phone.
type Locator struct {
	OrderNumber string
	UserID      *uuid.UUID
	Phone       string
}

// ListFilter narrows the admin order list. Query matches the order number or
// customer phone by prefix.
type ListFilter struct {
	UserID        *uuid.UUID
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	From          *time.Time
	To            *time.Time
	Query         string
	Page          pagination.Params
}

type OrderPage struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type StatusUpdateInput struct {
	Status  string  `json:"status" validate:"required"`
	Comment *string `json:"comment,omitempty"`
	// Reason is recorded as the cancellation reason when the update voids
	// the order.
	Reason *string `json:"reason,omitempty"`
}

type PaymentStatusInput struct {
	PaymentStatus string  `json:"payment_status" validate:"required"`
	TransactionID *string `json:"transaction_id,omitempty"`
	Comment       *string `json:"comment,omitempty"`
}

type PaymentInfoInput struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
	TransactionID string `json:"transaction_id"`
}

// TrackingEntry is the public projection of a history row.
type TrackingEntry struct {
	Status    enums.OrderStatus `json:"status"`
	Comment   *string           `json:"comment,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Tracking is what a guest sees when tracking an order.
type Tracking struct {
	OrderNumber   string              `json:"order_number"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	DeliveryDate  string              `json:"delivery_date"`
	DeliveredAt   *time.Time          `json:"delivered_at,omitempty"`
	Cancellable   bool                `json:"cancellable"`
	History       []TrackingEntry     `json:"history"`
}

func trackingOf(order *models.Order) Tracking {
	out := Tracking{
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		DeliveryDate:  order.DeliveryDate.Format(time.DateOnly),
		DeliveredAt:   order.DeliveredAt,
		Cancellable:   order.Status.IsCancellable(),
		History:       make([]TrackingEntry, 0, len(order.History)),
	}
	for _, h := range order.History {
		out.History = append(out.History, TrackingEntry{Status: h.Status, Comment: h.Comment, CreatedAt: h.CreatedAt})
	}
	return out
}
