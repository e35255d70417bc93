package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/IstiakDeveloper/orgreeni/api/responses"
	"github.com/IstiakDeveloper/orgreeni/api/validators"
	"github.com/IstiakDeveloper/orgreeni/internal/settings"
	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
)

type SettingsService interface {
	Policy(ctx context.Context) (settings.Policy, error)
	Update(ctx context.Context, key, value string) (settings.Policy, error)
}

type updateSettingRequest struct {
	Value string `json:"value" validate:"required,max=64"`
}

func AdminGetSettings(svc SettingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings unavailable"))
			return
		}
		policy, err := svc.Policy(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, policy)
	}
}

// AdminUpdateSetting stores one commerce setting and returns the new policy.
func AdminUpdateSetting(svc SettingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings unavailable"))
			return
		}
		key := strings.TrimSpace(chi.URLParam(r, "key"))
		if !settings.IsKnownKey(key) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "unknown setting"))
			return
		}
		var payload updateSettingRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		policy, err := svc.Update(r.Context(), key, payload.Value)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, policy)
	}
}
