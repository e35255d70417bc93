package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/IstiakDeveloper/orgreeni/api/responses"
	"github.com/IstiakDeveloper/orgreeni/api/validators"
	"github.com/IstiakDeveloper/orgreeni/internal/orders"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
)

// CustomerOrderService covers what customers and guests may do to their own orders.
type CustomerOrderService interface {
	Lookup(ctx context.Context, loc orders.Locator) (*models.Order, error)
	Track(ctx context.Context, number, phone string) (orders.Tracking, error)
	List(ctx context.Context, filter orders.ListFilter) (orders.OrderPage, error)
	Cancel(ctx context.Context, loc orders.Locator, reason string) (*models.Order, error)
	UpdatePaymentInfo(ctx context.Context, loc orders.Locator, input orders.PaymentInfoInput) (*models.Order, error)
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
	Phone  string `json:"phone,omitempty"`
}

type paymentInfoRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
	TransactionID string `json:"transaction_id" validate:"max=128"`
	Phone         string `json:"phone,omitempty"`
}

// locatorFromRequest matches signed-in callers on their user id and guests on
// the phone number given at checkout.
func locatorFromRequest(r *http.Request, phone string) (orders.Locator, error) {
	number := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
	if number == "" {
		return orders.Locator{}, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	userID := userIDFromRequest(r)
	loc := orders.Locator{OrderNumber: number, UserID: userID}
	if userID == nil {
		loc.Phone = strings.TrimSpace(phone)
		if loc.Phone == "" {
			return orders.Locator{}, pkgerrors.New(pkgerrors.CodeValidation, "phone is required for guest orders")
		}
	}
	return loc, nil
}

// MyOrders lists the signed-in customer's orders, newest first.
func MyOrders(svc CustomerOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		userID := userIDFromRequest(r)
		if userID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		page, err := pageFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), orders.ListFilter{UserID: userID, Page: page})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderPageResponse(list))
	}
}

// OrderDetail returns one order with its items, payment and history.
func OrderDetail(svc CustomerOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		loc, err := locatorFromRequest(r, r.URL.Query().Get("phone"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Lookup(r.Context(), loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderTrack is the public tracking view keyed by order number and phone.
func OrderTrack(svc CustomerOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		number := strings.TrimSpace(r.URL.Query().Get("number"))
		phone := strings.TrimSpace(r.URL.Query().Get("phone"))
		if number == "" || phone == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "number and phone are required"))
			return
		}
		tracking, err := svc.Track(r.Context(), number, phone)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tracking)
	}
}

func OrderCancel(svc CustomerOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		var payload cancelOrderRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		loc, err := locatorFromRequest(r, payload.Phone)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Cancel(r.Context(), loc, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderPaymentInfo records the customer's mobile banking transaction for
// manual verification.
func OrderPaymentInfo(svc CustomerOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		var payload paymentInfoRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		loc, err := locatorFromRequest(r, payload.Phone)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.UpdatePaymentInfo(r.Context(), loc, orders.PaymentInfoInput{
			PaymentMethod: payload.PaymentMethod,
			TransactionID: payload.TransactionID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}
