package purchaseorders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
)

// UniqueNumberIndex enforces case-insensitive uniqueness of po_number.
const UniqueNumberIndex = "ux_purchase_orders_po_number_lower"

// Service manages purchase order rows. Renames go through the cascade orchestrator.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error)
	FindByNumber(ctx context.Context, poNumber string) (*models.PurchaseOrder, error)
}

// CreateInput describes a new purchase order.
type CreateInput struct {
	PoNumber        string
	VendorID        *uuid.UUID
	AcquisitionType string
	OrderDate       *time.Time
	TotalCost       decimal.Decimal
	Currency        string
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds a purchase order service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchase order repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error) {
	number := strings.TrimSpace(input.PoNumber)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "po_number is required").
			WithDetails(map[string]any{"field": "po_number"})
	}
	acquisition, err := enums.ParseAcquisitionType(input.AcquisitionType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid acquisition_type").
			WithDetails(map[string]any{"field": "acquisition_type"})
	}
	currency := enums.CurrencyUSD
	if raw := strings.ToUpper(strings.TrimSpace(input.Currency)); raw != "" {
		parsed, err := enums.ParseCurrency(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency").
				WithDetails(map[string]any{"field": "currency"})
		}
		currency = parsed
	}
	if input.TotalCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total_cost must not be negative").
			WithDetails(map[string]any{"field": "total_cost"})
	}

	po := &models.PurchaseOrder{
		PoNumber:        number,
		VendorID:        input.VendorID,
		AcquisitionType: acquisition,
		OrderDate:       input.OrderDate,
		TotalCost:       input.TotalCost.Round(2),
		Currency:        currency,
	}
	if err := s.repo.Create(ctx, po); err != nil {
		if db.IsUniqueViolation(err, UniqueNumberIndex) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "purchase order number already exists").
				WithDetails(map[string]any{"po_number": number})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase order")
	}

	s.logg.Info(s.logg.WithField(ctx, "po_number", po.PoNumber), "purchase order created")
	return po, nil
}

func (s *service) FindByNumber(ctx context.Context, poNumber string) (*models.PurchaseOrder, error) {
	return Load(ctx, s.repo, poNumber)
}

// Load resolves a purchase order by number or returns NOT_FOUND.
func Load(ctx context.Context, repo Repository, poNumber string) (*models.PurchaseOrder, error) {
	number := strings.TrimSpace(poNumber)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "po_number is required")
	}
	po, err := repo.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found").
				WithDetails(map[string]any{"po_number": number})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
	}
	return po, nil
}
