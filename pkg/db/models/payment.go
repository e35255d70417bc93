package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
)

// Payment awaits manual verification for non-cash methods.
type Payment struct {
	ID             uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID                 `gorm:"column:order_id;type:uuid;not null;index"`
	Amount         decimal.Decimal           `gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentMethod  enums.PaymentMethod       `gorm:"column:payment_method;type:text;not null"`
	Status         enums.PaymentRecordStatus `gorm:"column:status;type:text;not null;default:pending"`
	TransactionID  *string                   `gorm:"column:transaction_id"`
	PaymentDetails json.RawMessage           `gorm:"column:payment_details;type:jsonb"`
	PaidAt         *time.Time                `gorm:"column:paid_at"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
