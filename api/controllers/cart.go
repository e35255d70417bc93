package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/IstiakDeveloper/orgreeni/api/middleware"
	"github.com/IstiakDeveloper/orgreeni/api/responses"
	"github.com/IstiakDeveloper/orgreeni/api/validators"
	cartsvc "github.com/IstiakDeveloper/orgreeni/internal/cart"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
)

// CartService is the slice of the cart service the HTTP layer drives.
type CartService interface {
	Get(ctx context.Context, owner cartsvc.Owner) (cartsvc.View, error)
	AddItem(ctx context.Context, owner cartsvc.Owner, input cartsvc.AddItemInput) (cartsvc.View, error)
	UpdateItemQuantity(ctx context.Context, owner cartsvc.Owner, itemID uuid.UUID, quantity int) (cartsvc.View, error)
	RemoveItem(ctx context.Context, owner cartsvc.Owner, itemID uuid.UUID) (cartsvc.View, error)
	ApplyCoupon(ctx context.Context, owner cartsvc.Owner, code string) (cartsvc.View, error)
	RemoveCoupon(ctx context.Context, owner cartsvc.Owner) (cartsvc.View, error)
	SetShippingArea(ctx context.Context, owner cartsvc.Owner, areaID uuid.UUID) (cartsvc.View, error)
	AddNotes(ctx context.Context, owner cartsvc.Owner, notes string) (cartsvc.View, error)
	Clear(ctx context.Context, owner cartsvc.Owner) error
	Merge(ctx context.Context, sessionID string, userID uuid.UUID) (cartsvc.View, error)
	ShippingOptions(ctx context.Context, owner cartsvc.Owner) ([]cartsvc.ShippingOption, error)
}

type updateQuantityRequest struct {
	// Zero removes the line.
	Quantity int `json:"quantity" validate:"gte=0"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type shippingAreaRequest struct {
	DeliveryAreaID uuid.UUID `json:"delivery_area_id" validate:"required"`
}

type cartNotesRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

// cartHandler resolves the owner and writes the view returned by fn.
func cartHandler(svc CartService, logg *logger.Logger, fn func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) (cartsvc.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := fn(w, r, owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartGet returns the caller's cart, recalculated against the live catalog.
func CartGet(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) (cartsvc.View, error) {
		return svc.Get(r.Context(), owner)
	})
}

func CartAddItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) (cartsvc.View, error) {
		var payload cartsvc.AddItemInput
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			return cartsvc.View{}, err
		}
		return svc.AddItem(r.Context(), owner, payload)
	})
}

func CartUpdateItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) (cartsvc.View, error) {
		itemID, err := uuidParam(r, "itemId", "item id")
		if err != nil {
			return cartsvc.View{}, err
		}
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			return cartsvc.View{}, err
		}
		return svc.UpdateItemQuantity(r.Context(), owner, itemID, payload.Quantity)
	})
}

func CartRemoveItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) (cartsvc.View, error) {
		itemID, err := uuidParam(r, "itemId", "item id")
		if err != nil {
			return cartsvc.View{}, err
		}
		return svc.RemoveItem(r.Context(), owner, itemID)
	})
}

func CartApplyCoupon(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) (cartsvc.View, error) {
		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			return cartsvc.View{}, err
		}
		return svc.ApplyCoupon(r.Context(), owner, payload.Code)
	})
}

func CartRemoveCoupon(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) (cartsvc.View, error) {
		return svc.RemoveCoupon(r.Context(), owner)
	})
}

func CartSetShippingArea(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) (cartsvc.View, error) {
		var payload shippingAreaRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			return cartsvc.View{}, err
		}
		return svc.SetShippingArea(r.Context(), owner, payload.DeliveryAreaID)
	})
}

func CartAddNotes(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) (cartsvc.View, error) {
		var payload cartNotesRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			return cartsvc.View{}, err
		}
		return svc.AddNotes(r.Context(), owner, payload.Notes)
	})
}

// CartClear empties the cart and answers with the empty view.
func CartClear(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(w http.ResponseWriter, r *http.Request, owner cartsvc.Owner) (cartsvc.View, error) {
		if err := svc.Clear(r.Context(), owner); err != nil {
			return cartsvc.View{}, err
		}
		return svc.Get(r.Context(), owner)
	})
}

func CartShippingOptions(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		options, err := svc.ShippingOptions(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, options)
	}
}

// CartMerge folds the session cart named by X-Session-ID into the signed-in
// user's cart. It is called once after login.
func CartMerge(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		caller := middleware.CallerFrom(r.Context())
		if !caller.Authenticated() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		if caller.SessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, middleware.SessionHeader+" header required"))
			return
		}

		view, err := svc.Merge(r.Context(), caller.SessionID, caller.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
