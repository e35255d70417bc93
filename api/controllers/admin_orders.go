package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/IstiakDeveloper/orgreeni/api/responses"
	"github.com/IstiakDeveloper/orgreeni/api/validators"
	"github.com/IstiakDeveloper/orgreeni/internal/orders"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
)

// AdminOrderService is the back-office surface over orders.
type AdminOrderService interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter orders.ListFilter) (orders.OrderPage, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, input orders.StatusUpdateInput, actor orders.Actor) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, input orders.PaymentStatusInput, actor orders.Actor) (*models.Order, error)
	AssignDeliveryPerson(ctx context.Context, id, personID uuid.UUID, actor orders.Actor) (*models.Order, error)
	AddNote(ctx context.Context, id uuid.UUID, note string, actor orders.Actor) (*models.Order, error)
	Delete(ctx context.Context, id uuid.UUID, actor orders.Actor) error
}

type assignDeliveryRequest struct {
	DeliveryPersonID uuid.UUID `json:"delivery_person_id" validate:"required"`
}

type orderNoteRequest struct {
	Note string `json:"note" validate:"required,max=1000"`
}

// AdminListOrders filters by status, payment_status, from, to and q (order
// number or phone prefix).
func AdminListOrders(svc AdminOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		filter, err := orderFilterFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderPageResponse(list))
	}
}

func orderFilterFromQuery(r *http.Request) (orders.ListFilter, error) {
	page, err := pageFromQuery(r)
	if err != nil {
		return orders.ListFilter{}, err
	}
	filter := orders.ListFilter{
		Query: validators.QueryString(r, "q", 100),
		Page:  page,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := enums.OrderStatus(raw)
		filter.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
		status := enums.PaymentStatus(raw)
		filter.PaymentStatus = &status
	}
	if filter.From, err = validators.QueryTime(r, "from", false); err != nil {
		return orders.ListFilter{}, err
	}
	if filter.To, err = validators.QueryTime(r, "to", true); err != nil {
		return orders.ListFilter{}, err
	}
	return filter, nil
}

func AdminOrderDetail(svc AdminOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := uuidParam(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// adminOrderAction decodes payload, resolves the order id and the acting
// admin, and writes the order returned by fn.
func adminOrderAction[T any](svc AdminOrderService, logg *logger.Logger, fn func(ctx context.Context, id uuid.UUID, payload T, actor orders.Actor) (*models.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := uuidParam(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor := actorFromRequest(r)
		var payload T
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := fn(r.Context(), orderID, payload, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func AdminUpdateOrderStatus(svc AdminOrderService, logg *logger.Logger) http.HandlerFunc {
	return adminOrderAction(svc, logg, func(ctx context.Context, id uuid.UUID, payload orders.StatusUpdateInput, actor orders.Actor) (*models.Order, error) {
		return svc.UpdateStatus(ctx, id, payload, actor)
	})
}

func AdminUpdatePaymentStatus(svc AdminOrderService, logg *logger.Logger) http.HandlerFunc {
	return adminOrderAction(svc, logg, func(ctx context.Context, id uuid.UUID, payload orders.PaymentStatusInput, actor orders.Actor) (*models.Order, error) {
		return svc.UpdatePaymentStatus(ctx, id, payload, actor)
	})
}

func AdminAssignDeliveryPerson(svc AdminOrderService, logg *logger.Logger) http.HandlerFunc {
	return adminOrderAction(svc, logg, func(ctx context.Context, id uuid.UUID, payload assignDeliveryRequest, actor orders.Actor) (*models.Order, error) {
		return svc.AssignDeliveryPerson(ctx, id, payload.DeliveryPersonID, actor)
	})
}

func AdminAddOrderNote(svc AdminOrderService, logg *logger.Logger) http.HandlerFunc {
	return adminOrderAction(svc, logg, func(ctx context.Context, id uuid.UUID, payload orderNoteRequest, actor orders.Actor) (*models.Order, error) {
		return svc.AddNote(ctx, id, payload.Note, actor)
	})
}

// AdminDeleteOrder soft-deletes the order.
func AdminDeleteOrder(svc AdminOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := uuidParam(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor := actorFromRequest(r)
		if err := svc.Delete(r.Context(), orderID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
