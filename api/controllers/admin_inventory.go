package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/IstiakDeveloper/orgreeni/api/responses"
	"github.com/IstiakDeveloper/orgreeni/api/validators"
	"github.com/IstiakDeveloper/orgreeni/internal/inventory"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
)

type InventoryService interface {
	ApplyManual(ctx context.Context, input inventory.ManualAdjustInput) (*models.InventoryTransaction, error)
	CurrentStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int, error)
	ListLowStock(ctx context.Context, limit int) ([]inventory.LowStockItem, error)
	ListTransactions(ctx context.Context, filter inventory.TransactionFilter) (inventory.TransactionPage, error)
	Stats(ctx context.Context) (inventory.Stats, error)
}

type stockLevelResponse struct {
	ProductID    uuid.UUID  `json:"product_id"`
	VariantID    *uuid.UUID `json:"variant_id,omitempty"`
	CurrentStock int        `json:"current_stock"`
}

// AdminAdjustStock applies an add, subtract or set operation and records it
// in the ledger.
func AdminAdjustStock(svc InventoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		actorID := userIDFromRequest(r)
		var payload inventory.ManualAdjustInput
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.Actor = actorID

		txn, err := svc.ApplyManual(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newInventoryTransactionResponse(*txn))
	}
}

func AdminProductStock(svc InventoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		productID, err := uuidParam(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := validators.QueryUUID(r, "variant_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stock, err := svc.CurrentStock(r.Context(), productID, variantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stockLevelResponse{ProductID: productID, VariantID: variantID, CurrentStock: stock})
	}
}

func AdminLowStock(svc InventoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListLowStock(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func AdminInventoryStats(svc InventoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newInventoryStatsResponse(stats))
	}
}

// AdminInventoryTransactions pages through the stock ledger, newest first.
func AdminInventoryTransactions(svc InventoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		filter, err := transactionFilterFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListTransactions(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transactionPageResponse{Items: newInventoryTransactionList(page.Items), NextCursor: page.NextCursor})
	}
}

func transactionFilterFromQuery(r *http.Request) (inventory.TransactionFilter, error) {
	var (
		filter inventory.TransactionFilter
		err    error
	)
	if filter.Page, err = pageFromQuery(r); err != nil {
		return filter, err
	}
	if filter.ProductID, err = validators.QueryUUID(r, "product_id"); err != nil {
		return filter, err
	}
	if filter.VariantID, err = validators.QueryUUID(r, "variant_id"); err != nil {
		return filter, err
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		kind, err := enums.ParseInventoryTransactionType(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction type").WithDetails(map[string]any{"field": "type"})
		}
		filter.Type = &kind
	}
	if filter.From, err = validators.QueryTime(r, "from", false); err != nil {
		return filter, err
	}
	if filter.To, err = validators.QueryTime(r, "to", true); err != nil {
		return filter, err
	}
	return filter, nil
}
