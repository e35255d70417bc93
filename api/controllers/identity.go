package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/IstiakDeveloper/orgreeni/api/middleware"
	cartsvc "github.com/IstiakDeveloper/orgreeni/internal/cart"
	"github.com/IstiakDeveloper/orgreeni/internal/orders"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
)

// ownerFromRequest picks the cart owner: the signed-in user when there is
// one, the X-Session-ID header otherwise.
func ownerFromRequest(r *http.Request) (cartsvc.Owner, error) {
	caller := middleware.CallerFrom(r.Context())
	switch {
	case caller.Authenticated():
		return cartsvc.UserOwner(caller.UserID), nil
	case caller.SessionID != "":
		return cartsvc.SessionOwner(caller.SessionID), nil
	}
	return cartsvc.Owner{}, pkgerrors.New(pkgerrors.CodeValidation, middleware.SessionHeader+" header or bearer token required")
}

// userIDFromRequest returns nil for anonymous callers.
func userIDFromRequest(r *http.Request) *uuid.UUID {
	caller := middleware.CallerFrom(r.Context())
	if !caller.Authenticated() {
		return nil
	}
	id := caller.UserID
	return &id
}

func actorFromRequest(r *http.Request) orders.Actor {
	return orders.Actor{UserID: userIDFromRequest(r), Role: middleware.CallerFrom(r.Context()).Role}
}

func uuidParam(r *http.Request, name, label string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, label+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return id, nil
}
