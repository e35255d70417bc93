package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
)

// OutboxDeadLetter is a copy of an outbox row the publisher gave up on.
// EventID is the original row's id.
type OutboxDeadLetter struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	EventID       uuid.UUID                 `gorm:"column:event_id;type:uuid;not null;uniqueIndex"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:text;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:text;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	Reason        enums.DeadLetterReason    `gorm:"column:reason;type:text;not null"`
	LastError     *string                   `gorm:"column:last_error"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	DeadAt        time.Time                 `gorm:"column:dead_at;autoCreateTime"`
}

func (OutboxDeadLetter) TableName() string {
	return "outbox_dead_letters"
}

func (d *OutboxDeadLetter) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// All lists every model for dev auto-migration and sqlite-backed tests.
func All() []any {
	return []any{
		&Product{},
		&ProductVariant{},
		&ProductStock{},
		&InventoryTransaction{},
		&Coupon{},
		&DeliveryArea{},
		&DeliverySlot{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&OrderStatusHistory{},
		&OrderSequence{},
		&Payment{},
		&Setting{},
		&OutboxEvent{},
		&OutboxDeadLetter{},
	}
}
