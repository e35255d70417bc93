package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
)

// Order is immutable once placed apart from its lifecycle columns.
type Order struct {
	ID                       uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber              string               `gorm:"column:order_number;not null;uniqueIndex"`
	UserID                   *uuid.UUID           `gorm:"column:user_id;type:uuid;index"`
	CustomerName             string               `gorm:"column:customer_name;not null"`
	CustomerPhone            string               `gorm:"column:customer_phone;not null"`
	CustomerEmail            *string              `gorm:"column:customer_email"`
	ShippingAddress          string               `gorm:"column:shipping_address;not null"`
	DeliveryAreaID           *uuid.UUID           `gorm:"column:delivery_area_id;type:uuid"`
	DeliverySlotID           *uuid.UUID           `gorm:"column:delivery_slot_id;type:uuid;index:idx_orders_slot_date"`
	DeliveryDate             time.Time            `gorm:"column:delivery_date;type:date;not null;index:idx_orders_slot_date"`
	CouponID                 *uuid.UUID           `gorm:"column:coupon_id;type:uuid;index"`
	Subtotal                 decimal.Decimal      `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount                 decimal.Decimal      `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	ShippingCharge           decimal.Decimal      `gorm:"column:shipping_charge;type:numeric(12,2);not null;default:0"`
	VAT                      decimal.Decimal      `gorm:"column:vat;type:numeric(12,2);not null;default:0"`
	Total                    decimal.Decimal      `gorm:"column:total;type:numeric(12,2);not null"`
	Status                   enums.OrderStatus    `gorm:"column:status;type:text;not null;default:pending"`
	PaymentStatus            enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null;default:pending"`
	PaymentMethod            enums.PaymentMethod  `gorm:"column:payment_method;type:text;not null;default:cash_on_delivery"`
	TransactionID            *string              `gorm:"column:transaction_id"`
	Notes                    *string              `gorm:"column:notes"`
	AssignedDeliveryPersonID *uuid.UUID           `gorm:"column:assigned_delivery_person_id;type:uuid"`
	DeliveredAt              *time.Time           `gorm:"column:delivered_at"`
	CancelledAt              *time.Time           `gorm:"column:cancelled_at"`
	CancellationReason       *string              `gorm:"column:cancellation_reason"`
	InventoryRestockedAt     *time.Time           `gorm:"column:inventory_restocked_at"`
	Items                    []OrderItem          `gorm:"foreignKey:OrderID"`
	History                  []OrderStatusHistory `gorm:"foreignKey:OrderID"`
	CreatedAt                time.Time            `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt                time.Time            `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt                gorm.DeletedAt       `gorm:"column:deleted_at;index"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots the catalog at placement time.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID   *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	ProductName string          `gorm:"column:product_name;not null"`
	VariantName *string         `gorm:"column:variant_name"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// OrderStatusHistory is append-only. Status carries the order status at the
// time of the entry, including for payment and note entries.
type OrderStatusHistory struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Comment   *string           `gorm:"column:comment"`
	CreatedBy *uuid.UUID        `gorm:"column:created_by;type:uuid"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}

func (h *OrderStatusHistory) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	return nil
}

// OrderSequence backs gap-free order numbering per prefix and year.
type OrderSequence struct {
	Prefix    string    `gorm:"column:prefix;primaryKey"`
	Year      int       `gorm:"column:year;primaryKey;autoIncrement:false"`
	LastValue int       `gorm:"column:last_value;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
