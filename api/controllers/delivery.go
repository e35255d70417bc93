package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/IstiakDeveloper/orgreeni/api/responses"
	"github.com/IstiakDeveloper/orgreeni/internal/delivery"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
)

type DeliveryService interface {
	ActiveAreas(ctx context.Context) ([]models.DeliveryArea, error)
	AvailableSlots(ctx context.Context, day time.Time) ([]delivery.SlotAvailability, error)
}

func DeliveryAreas(svc DeliveryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		areas, err := svc.ActiveAreas(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDeliveryAreaList(areas))
	}
}

// DeliverySlots lists active slots with their remaining capacity on ?date,
// today when omitted.
func DeliverySlots(svc DeliveryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}
		day := time.Now().UTC().Truncate(24 * time.Hour)
		if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
			parsed, err := time.Parse(time.DateOnly, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "date must be YYYY-MM-DD"))
				return
			}
			day = parsed
		}
		slots, err := svc.AvailableSlots(r.Context(), day)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDeliverySlotList(slots))
	}
}
