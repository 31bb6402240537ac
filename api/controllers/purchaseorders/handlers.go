package purchaseorders

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/assettrack-backend/api/middleware"
	"github.com/angelmondragon/assettrack-backend/api/responses"
	"github.com/angelmondragon/assettrack-backend/api/validators"
	"github.com/angelmondragon/assettrack-backend/internal/cascade"
	"github.com/angelmondragon/assettrack-backend/internal/purchaseorders"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
)

type createRequest struct {
	PoNumber        string          `json:"po_number" validate:"required,max=100"`
	VendorID        *string         `json:"vendor_id" validate:"omitempty,uuid"`
	AcquisitionType string          `json:"acquisition_type" validate:"required"`
	OrderDate       *time.Time      `json:"order_date"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	Currency        string          `json:"currency" validate:"omitempty,len=3"`
}

func (r createRequest) toInput() purchaseorders.CreateInput {
	input := purchaseorders.CreateInput{
		PoNumber:        strings.TrimSpace(r.PoNumber),
		AcquisitionType: r.AcquisitionType,
		OrderDate:       r.OrderDate,
		TotalCost:       r.TotalCost,
		Currency:        strings.ToUpper(strings.TrimSpace(r.Currency)),
	}
	if r.VendorID != nil {
		vendorID := uuid.MustParse(*r.VendorID)
		input.VendorID = &vendorID
	}
	return input
}

type migrateRequest struct {
	OldPoNumber string `json:"old_po_number" validate:"required,max=100"`
	NewPoNumber string `json:"new_po_number" validate:"required,max=100"`
}

func Create(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Create(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// Get looks a purchase order up by number, case-insensitively.
func Get(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := strings.TrimSpace(chi.URLParam(r, "poNumber"))
		if number == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "po number is required"))
			return
		}
		order, err := svc.FindByNumber(r.Context(), number)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Migrate renames a purchase order and repoints every linked asset.
func Migrate(svc cascade.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload migrateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithFields(r.Context(), map[string]any{
			"old_po_number": payload.OldPoNumber,
			"new_po_number": payload.NewPoNumber,
		})
		result, err := svc.MigratePoNumber(ctx, cascade.MigratePoNumberInput{
			OldNumber:   payload.OldPoNumber,
			NewNumber:   payload.NewPoNumber,
			ActorUserID: middleware.ActorFromContext(ctx),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
