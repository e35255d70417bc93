package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
)

// Repository reads delivery areas and slots and counts slot bookings.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) AreaSlotRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) FindArea(ctx context.Context, id uuid.UUID) (*models.DeliveryArea, error) {
	var area models.DeliveryArea
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&area).Error; err != nil {
		return nil, err
	}
	return &area, nil
}

func (r *Repository) ListActiveAreas(ctx context.Context) ([]models.DeliveryArea, error) {
	var rows []models.DeliveryArea
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

// LockSlot loads the slot holding a row lock so capacity checks for it run
// one at a time.
func (r *Repository) LockSlot(ctx context.Context, id uuid.UUID) (*models.DeliverySlot, error) {
	var slot models.DeliverySlot
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *Repository) ListActiveSlots(ctx context.Context) ([]models.DeliverySlot, error) {
	var rows []models.DeliverySlot
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("start_time ASC").
		Find(&rows).Error
	return rows, err
}

// CountBooked counts live orders booked into slotID on day. Cancelled and
// failed orders release their booking.
func (r *Repository) CountBooked(ctx context.Context, slotID uuid.UUID, day time.Time) (int64, error) {
	from, to := dayBounds(day)
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("delivery_slot_id = ?", slotID).
		Where("delivery_date >= ? AND delivery_date < ?", from, to).
		Where("status NOT IN ?", voidStatuses()).
		Count(&n).Error
	return n, err
}

type slotCount struct {
	SlotID uuid.UUID `gorm:"column:delivery_slot_id"`
	Count  int64     `gorm:"column:booked"`
}

// CountBookedByDay returns booked counts per slot for day.
func (r *Repository) CountBookedByDay(ctx context.Context, day time.Time) (map[uuid.UUID]int64, error) {
	from, to := dayBounds(day)
	var rows []slotCount
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("delivery_slot_id, COUNT(*) AS booked").
		Where("delivery_slot_id IS NOT NULL").
		Where("delivery_date >= ? AND delivery_date < ?", from, to).
		Where("status NOT IN ?", voidStatuses()).
		Group("delivery_slot_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		out[row.SlotID] = row.Count
	}
	return out, nil
}

func voidStatuses() []enums.OrderStatus {
	return []enums.OrderStatus{enums.OrderStatusCancelled, enums.OrderStatusFailed}
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	from := Day(day)
	return from, from.AddDate(0, 0, 1)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
