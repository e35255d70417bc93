package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/IstiakDeveloper/orgreeni/internal/delivery"
	"github.com/IstiakDeveloper/orgreeni/internal/inventory"
	"github.com/IstiakDeveloper/orgreeni/internal/orders"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
)

type orderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	VariantID   *uuid.UUID      `json:"variant_id,omitempty"`
	ProductName string          `json:"product_name"`
	VariantName *string         `json:"variant_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type orderHistoryResponse struct {
	Status    enums.OrderStatus `json:"status"`
	Comment   *string           `json:"comment,omitempty"`
	CreatedBy *uuid.UUID        `json:"created_by,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type orderResponse struct {
	ID                       uuid.UUID              `json:"id"`
	OrderNumber              string                 `json:"order_number"`
	UserID                   *uuid.UUID             `json:"user_id,omitempty"`
	CustomerName             string                 `json:"customer_name"`
	CustomerPhone            string                 `json:"customer_phone"`
	CustomerEmail            *string                `json:"customer_email,omitempty"`
	ShippingAddress          string                 `json:"shipping_address"`
	DeliveryAreaID           *uuid.UUID             `json:"delivery_area_id,omitempty"`
	DeliverySlotID           *uuid.UUID             `json:"delivery_slot_id,omitempty"`
	DeliveryDate             string                 `json:"delivery_date"`
	Subtotal                 decimal.Decimal        `json:"subtotal"`
	Discount                 decimal.Decimal        `json:"discount"`
	ShippingCharge           decimal.Decimal        `json:"shipping_charge"`
	VAT                      decimal.Decimal        `json:"vat"`
	Total                    decimal.Decimal        `json:"total"`
	Status                   enums.OrderStatus      `json:"status"`
	PaymentStatus            enums.PaymentStatus    `json:"payment_status"`
	PaymentMethod            enums.PaymentMethod    `json:"payment_method"`
	TransactionID            *string                `json:"transaction_id,omitempty"`
	Notes                    *string                `json:"notes,omitempty"`
	AssignedDeliveryPersonID *uuid.UUID             `json:"assigned_delivery_person_id,omitempty"`
	DeliveredAt              *time.Time             `json:"delivered_at,omitempty"`
	CancelledAt              *time.Time             `json:"cancelled_at,omitempty"`
	CancellationReason       *string                `json:"cancellation_reason,omitempty"`
	Cancellable              bool                   `json:"cancellable"`
	Items                    []orderItemResponse    `json:"items,omitempty"`
	History                  []orderHistoryResponse `json:"history,omitempty"`
	CreatedAt                time.Time              `json:"created_at"`
	UpdatedAt                time.Time              `json:"updated_at"`
}

func newOrderResponse(order *models.Order) *orderResponse {
	if order == nil {
		return nil
	}
	out := &orderResponse{
		ID:                       order.ID,
		OrderNumber:              order.OrderNumber,
		UserID:                   order.UserID,
		CustomerName:             order.CustomerName,
		CustomerPhone:            order.CustomerPhone,
		CustomerEmail:            order.CustomerEmail,
		ShippingAddress:          order.ShippingAddress,
		DeliveryAreaID:           order.DeliveryAreaID,
		DeliverySlotID:           order.DeliverySlotID,
		DeliveryDate:             order.DeliveryDate.Format(time.DateOnly),
		Subtotal:                 order.Subtotal,
		Discount:                 order.Discount,
		ShippingCharge:           order.ShippingCharge,
		VAT:                      order.VAT,
		Total:                    order.Total,
		Status:                   order.Status,
		PaymentStatus:            order.PaymentStatus,
		PaymentMethod:            order.PaymentMethod,
		TransactionID:            order.TransactionID,
		Notes:                    order.Notes,
		AssignedDeliveryPersonID: order.AssignedDeliveryPersonID,
		DeliveredAt:              order.DeliveredAt,
		CancelledAt:              order.CancelledAt,
		CancellationReason:       order.CancellationReason,
		Cancellable:              order.Status.IsCancellable(),
		CreatedAt:                order.CreatedAt,
		UpdatedAt:                order.UpdatedAt,
	}
	for _, item := range order.Items {
		out.Items = append(out.Items, orderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			VariantName: item.VariantName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		})
	}
	for _, h := range order.History {
		out.History = append(out.History, orderHistoryResponse{
			Status:    h.Status,
			Comment:   h.Comment,
			CreatedBy: h.CreatedBy,
			CreatedAt: h.CreatedAt,
		})
	}
	return out
}

type orderPageResponse struct {
	Orders     []*orderResponse `json:"orders"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

func newOrderPageResponse(page orders.OrderPage) orderPageResponse {
	out := orderPageResponse{Orders: make([]*orderResponse, 0, len(page.Orders)), NextCursor: page.NextCursor}
	for i := range page.Orders {
		out.Orders = append(out.Orders, newOrderResponse(&page.Orders[i]))
	}
	return out
}

type inventoryTransactionResponse struct {
	ID             uuid.UUID                      `json:"id"`
	ProductID      uuid.UUID                      `json:"product_id"`
	VariantID      *uuid.UUID                     `json:"variant_id,omitempty"`
	StockID        uuid.UUID                      `json:"stock_id"`
	Type           enums.InventoryTransactionType `json:"type"`
	Quantity       int                            `json:"quantity"`
	BeforeQuantity int                            `json:"before_quantity"`
	AfterQuantity  int                            `json:"after_quantity"`
	ReferenceKind  enums.InventoryReferenceKind   `json:"reference_kind"`
	ReferenceID    *uuid.UUID                     `json:"reference_id,omitempty"`
	Remarks        *string                        `json:"remarks,omitempty"`
	CreatedBy      *uuid.UUID                     `json:"created_by,omitempty"`
	CreatedAt      time.Time                      `json:"created_at"`
}

func newInventoryTransactionResponse(t models.InventoryTransaction) inventoryTransactionResponse {
	return inventoryTransactionResponse{
		ID:             t.ID,
		ProductID:      t.ProductID,
		VariantID:      t.VariantID,
		StockID:        t.StockID,
		Type:           t.Type,
		Quantity:       t.Quantity,
		BeforeQuantity: t.BeforeQuantity,
		AfterQuantity:  t.AfterQuantity,
		ReferenceKind:  t.ReferenceKind,
		ReferenceID:    t.ReferenceID,
		Remarks:        t.Remarks,
		CreatedBy:      t.CreatedBy,
		CreatedAt:      t.CreatedAt,
	}
}

func newInventoryTransactionList(rows []models.InventoryTransaction) []inventoryTransactionResponse {
	out := make([]inventoryTransactionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, newInventoryTransactionResponse(row))
	}
	return out
}

type transactionPageResponse struct {
	Items      []inventoryTransactionResponse `json:"items"`
	NextCursor string                         `json:"next_cursor,omitempty"`
}

type inventoryStatsResponse struct {
	TotalProducts      int64                          `json:"total_products"`
	TotalStock         int64                          `json:"total_stock"`
	InStock            int64                          `json:"in_stock"`
	LowStock           int64                          `json:"low_stock"`
	OutOfStock         int64                          `json:"out_of_stock"`
	RecentTransactions []inventoryTransactionResponse `json:"recent_transactions"`
}

func newInventoryStatsResponse(stats inventory.Stats) inventoryStatsResponse {
	return inventoryStatsResponse{
		TotalProducts:      stats.TotalProducts,
		TotalStock:         stats.TotalStock,
		InStock:            stats.InStock,
		LowStock:           stats.LowStock,
		OutOfStock:         stats.OutOfStock,
		RecentTransactions: newInventoryTransactionList(stats.RecentTransactions),
	}
}

type deliveryAreaResponse struct {
	ID                    uuid.UUID           `json:"id"`
	Name                  string              `json:"name"`
	City                  string              `json:"city"`
	DeliveryCharge        decimal.Decimal     `json:"delivery_charge"`
	MinOrderAmount        decimal.Decimal     `json:"min_order_amount"`
	FreeDeliveryMinAmount decimal.NullDecimal `json:"free_delivery_min_amount"`
	EstimatedMinutes      *int                `json:"estimated_delivery_time,omitempty"`
}

func newDeliveryAreaList(areas []models.DeliveryArea) []deliveryAreaResponse {
	out := make([]deliveryAreaResponse, 0, len(areas))
	for _, a := range areas {
		out = append(out, deliveryAreaResponse{
			ID:                    a.ID,
			Name:                  a.Name,
			City:                  a.City,
			DeliveryCharge:        a.DeliveryCharge,
			MinOrderAmount:        a.MinOrderAmount,
			FreeDeliveryMinAmount: a.FreeDeliveryMinAmount,
			EstimatedMinutes:      a.EstimatedMinutes,
		})
	}
	return out
}

type deliverySlotResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	MaxOrders int       `json:"max_orders"`
	Booked    int64     `json:"booked"`
	Remaining int64     `json:"remaining"`
	Available bool      `json:"available"`
}

func newDeliverySlotList(slots []delivery.SlotAvailability) []deliverySlotResponse {
	out := make([]deliverySlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, deliverySlotResponse{
			ID:        s.Slot.ID,
			Name:      s.Slot.Name,
			StartTime: s.Slot.StartTime,
			EndTime:   s.Slot.EndTime,
			MaxOrders: s.Slot.MaxOrders,
			Booked:    s.Booked,
			Remaining: s.Remaining,
			Available: s.Remaining > 0,
		})
	}
	return out
}
