// Package delivery reads delivery areas and slots and guards slot capacity.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/internal/pricing"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
)

// AreaSlotRepository is the persistence surface of the delivery service.
type AreaSlotRepository interface {
	WithTx(tx *gorm.DB) AreaSlotRepository
	FindArea(ctx context.Context, id uuid.UUID) (*models.DeliveryArea, error)
	ListActiveAreas(ctx context.Context) ([]models.DeliveryArea, error)
	LockSlot(ctx context.Context, id uuid.UUID) (*models.DeliverySlot, error)
	ListActiveSlots(ctx context.Context) ([]models.DeliverySlot, error)
	CountBooked(ctx context.Context, slotID uuid.UUID, day time.Time) (int64, error)
	CountBookedByDay(ctx context.Context, day time.Time) (map[uuid.UUID]int64, error)
}

// SlotAvailability is a slot with its remaining capacity on one day.
type SlotAvailability struct {
	Slot      models.DeliverySlot `json:"slot"`
	Booked    int64               `json:"booked"`
	Remaining int64               `json:"remaining"`
}

// Service is the delivery provider consumed by the cart and checkout.
type Service interface {
	// Area returns INVALID_DELIVERY_AREA when the area is missing or inactive.
	Area(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.DeliveryArea, error)
	ActiveAreas(ctx context.Context) ([]models.DeliveryArea, error)
	// ReserveSlot locks the slot and checks it still has room on day. The
	// lock is held until tx ends, so the caller must insert its order in tx.
	ReserveSlot(ctx context.Context, tx *gorm.DB, slotID uuid.UUID, day time.Time) (*models.DeliverySlot, error)
	AvailableSlots(ctx context.Context, day time.Time) ([]SlotAvailability, error)
}

type service struct {
	repo AreaSlotRepository
}

func NewService(repo AreaSlotRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("delivery repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Area(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.DeliveryArea, error) {
	area, err := s.repo.WithTx(tx).FindArea(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidDeliveryArea, "delivery area not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load delivery area")
	}
	if !area.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidDeliveryArea, "delivery area is not active")
	}
	return area, nil
}

func (s *service) ActiveAreas(ctx context.Context) ([]models.DeliveryArea, error) {
	areas, err := s.repo.ListActiveAreas(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list delivery areas")
	}
	return areas, nil
}

func (s *service) ReserveSlot(ctx context.Context, tx *gorm.DB, slotID uuid.UUID, day time.Time) (*models.DeliverySlot, error) {
	repo := s.repo.WithTx(tx)
	slot, err := repo.LockSlot(ctx, slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidDeliverySlot, "delivery slot not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock delivery slot")
	}
	if !slot.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidDeliverySlot, "delivery slot is not active")
	}

	booked, err := repo.CountBooked(ctx, slotID, day)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count slot bookings")
	}
	if booked >= int64(slot.MaxOrders) {
		return nil, pkgerrors.New(pkgerrors.CodeSlotCapacityExceeded, "delivery slot is full").WithDetails(map[string]any{
			"slot_id":    slotID.String(),
			"date":       Day(day).Format(time.DateOnly),
			"max_orders": slot.MaxOrders,
		})
	}
	return slot, nil
}

func (s *service) AvailableSlots(ctx context.Context, day time.Time) ([]SlotAvailability, error) {
	slots, err := s.repo.ListActiveSlots(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list delivery slots")
	}
	booked, err := s.repo.CountBookedByDay(ctx, day)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count slot bookings")
	}
	out := make([]SlotAvailability, 0, len(slots))
	for _, slot := range slots {
		n := booked[slot.ID]
		remaining := int64(slot.MaxOrders) - n
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, SlotAvailability{Slot: slot, Booked: n, Remaining: remaining})
	}
	return out, nil
}

// PricingArea converts an area row for the pricing engine. A nil area is nil.
func PricingArea(area *models.DeliveryArea) *pricing.Area {
	if area == nil {
		return nil
	}
	return &pricing.Area{
		Charge:          area.DeliveryCharge,
		FreeDeliveryMin: area.FreeDeliveryMinAmount,
	}
}

// ValidateDate accepts delivery dates from today through advanceDays ahead.
func ValidateDate(day, now time.Time, advanceDays int) error {
	d := Day(day)
	today := Day(now)
	if d.Before(today) {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery date is in the past")
	}
	if advanceDays >= 0 && d.After(today.AddDate(0, 0, advanceDays)) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("delivery date must be within %d days", advanceDays))
	}
	return nil
}
