// Package assets exposes the asset lifecycle endpoints.
package assets

import (
	"net/http"

	"github.com/angelmondragon/assettrack-backend/api/middleware"
	"github.com/angelmondragon/assettrack-backend/api/responses"
	"github.com/angelmondragon/assettrack-backend/api/validators"
	"github.com/angelmondragon/assettrack-backend/internal/assets"
	"github.com/angelmondragon/assettrack-backend/internal/assignments"
	"github.com/angelmondragon/assettrack-backend/internal/cascade"
	"github.com/angelmondragon/assettrack-backend/internal/query"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
)

const assetIDParam = "assetId"

const (
	viewRecords = "records"
	viewEvents  = "events"
)

type statusChangeResponse struct {
	Asset         *models.Asset               `json:"asset"`
	StatusHistory *models.StatusHistoryRecord `json:"status_history"`
}

// Register creates an asset in IN_STOCK.
func Register(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload registerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		asset, err := svc.Register(r.Context(), payload.toInput(middleware.ActorFromContext(r.Context())))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, asset)
	}
}

func Get(svc query.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID, err := validators.ParseUUIDParam(r, assetIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		asset, err := svc.GetAsset(r.Context(), assetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, asset)
	}
}

// ChangeStatus applies a single transition. Transitions that would strand a user are
// rejected; the cascade endpoint handles those.
func ChangeStatus(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID, err := validators.ParseUUIDParam(r, assetIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithAssetID(r.Context(), assetID.String())
		result, err := svc.ChangeStatus(ctx, payload.toInput(assetID, middleware.ActorFromContext(ctx)))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, statusChangeResponse{Asset: result.Asset, StatusHistory: result.History})
	}
}

// ChangeStatusCascade unassigns the current user first when the target status forbids one.
func ChangeStatusCascade(svc cascade.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID, err := validators.ParseUUIDParam(r, assetIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithAssetID(r.Context(), assetID.String())
		result, err := svc.ChangeStatusWithUnassignment(ctx, payload.toInput(assetID, middleware.ActorFromContext(ctx)))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Assign binds a user. With ?activate=true the asset is also moved to ACTIVE.
func Assign(svc assignments.Service, orchestrator cascade.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID, err := validators.ParseUUIDParam(r, assetIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		activate, err := validators.ParseQueryBool(r, "activate")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload assignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithAssetID(r.Context(), assetID.String())
		input := payload.toInput(assetID, middleware.ActorFromContext(ctx))

		if activate {
			if orchestrator == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cascade service unavailable"))
				return
			}
			result, err := orchestrator.AssignUserWithStatusChange(ctx, input)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			responses.WriteSuccess(w, result)
			return
		}

		assignment, err := svc.AssignUser(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}

// Unassign closes the open assignment. The JSON body is optional.
func Unassign(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID, err := validators.ParseUUIDParam(r, assetIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload unassignRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithAssetID(r.Context(), assetID.String())
		closed, err := svc.UnassignCurrentUser(ctx, payload.toInput(assetID, middleware.ActorFromContext(ctx)))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, closed)
	}
}

func CurrentAssignment(svc query.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID, err := validators.ParseUUIDParam(r, assetIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assignment, err := svc.GetCurrentAssignment(r.Context(), assetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}

func StatusHistory(svc query.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID, err := validators.ParseUUIDParam(r, assetIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.GetStatusHistory(r.Context(), assetID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AssignmentHistory(svc query.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID, err := validators.ParseUUIDParam(r, assetIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		switch r.URL.Query().Get("view") {
		case "", viewRecords:
			page, err := svc.GetAssignmentHistory(r.Context(), assetID, params)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, page)
		case viewEvents:
			page, err := svc.GetAssignmentEvents(r.Context(), assetID, params)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, page)
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "view must be records or events").
				WithDetails(map[string]any{"field": "view"}))
		}
	}
}
