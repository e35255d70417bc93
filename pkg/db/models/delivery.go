package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DeliveryArea governs shipping charge and minimum order for a zone.
type DeliveryArea struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name                  string              `gorm:"column:name;not null"`
	City                  string              `gorm:"column:city;not null;default:Dhaka"`
	DeliveryCharge        decimal.Decimal     `gorm:"column:delivery_charge;type:numeric(12,2);not null;default:0"`
	MinOrderAmount        decimal.Decimal     `gorm:"column:min_order_amount;type:numeric(12,2);not null;default:0"`
	FreeDeliveryMinAmount decimal.NullDecimal `gorm:"column:free_delivery_min_amount;type:numeric(12,2)"`
	EstimatedMinutes      *int                `gorm:"column:estimated_delivery_time"`
	IsActive              bool                `gorm:"column:is_active;not null;default:true"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *DeliveryArea) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// DeliverySlot is a daily time window with a booking capacity.
type DeliverySlot struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	StartTime string    `gorm:"column:start_time;not null"`
	EndTime   string    `gorm:"column:end_time;not null"`
	MaxOrders int       `gorm:"column:max_orders;not null;default:50"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *DeliverySlot) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
