package controllers

import (
	"context"
	"net/http"

	"github.com/IstiakDeveloper/orgreeni/api/responses"
	"github.com/IstiakDeveloper/orgreeni/api/validators"
	cartsvc "github.com/IstiakDeveloper/orgreeni/internal/cart"
	checkoutsvc "github.com/IstiakDeveloper/orgreeni/internal/checkout"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
)

type CheckoutService interface {
	PlaceOrder(ctx context.Context, owner cartsvc.Owner, input checkoutsvc.PlaceOrderInput) (*models.Order, error)
}

// Checkout converts the caller's cart into an order.
func Checkout(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutsvc.PlaceOrderInput
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PlaceOrder(r.Context(), owner, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}
