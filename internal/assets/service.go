package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/internal/audit"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/angelmondragon/assettrack-backend/pkg/metrics"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox/payloads"
)

const (
	opRegister     = "register_asset"
	opChangeStatus = "change_status"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PurchaseOrderFinder resolves a purchase order by number, ignoring case.
type PurchaseOrderFinder interface {
	FindByNumber(ctx context.Context, poNumber string) (*models.PurchaseOrder, error)
}

// Service owns asset status and registration.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Asset, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Asset, error)
	ChangeStatus(ctx context.Context, input ChangeStatusInput) (*StatusChangeResult, error)
}

// ServiceParams groups dependencies for the asset service.
type ServiceParams struct {
	Repository        Repository
	Recorder          audit.Recorder
	PurchaseOrders    PurchaseOrderFinder
	TransactionRunner txRunner
	Outbox            outboxPublisher
	Logger            *logger.Logger
	Metrics           *metrics.EngineMetrics
	Clock             func() time.Time
}

// RegisterInput describes a new asset. It always starts IN_STOCK and unassigned.
type RegisterInput struct {
	Name         string
	SerialNumber *string
	AssetTag     *string
	PoNumber     *string
	ActorUserID  *uuid.UUID
}

// ChangeStatusInput requests a status transition. Status is raw caller input.
type ChangeStatusInput struct {
	AssetID         uuid.UUID
	Status          string
	ActorUserID     *uuid.UUID
	Remarks         string
	ExpectedVersion *int
}

// StatusChangeResult carries the asset after the call. History is nil when the call was
// a no-op.
type StatusChangeResult struct {
	Asset   *models.Asset
	History *models.StatusHistoryRecord
}

type service struct {
	repo     Repository
	recorder audit.Recorder
	pos      PurchaseOrderFinder
	tx       txRunner
	outbox   outboxPublisher
	logg     *logger.Logger
	metrics  *metrics.EngineMetrics
	now      func() time.Time
}

// NewService builds the status transition engine.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("asset repository required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if params.PurchaseOrders == nil {
		return nil, fmt.Errorf("purchase order finder required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:     params.Repository,
		recorder: params.Recorder,
		pos:      params.PurchaseOrders,
		tx:       params.TransactionRunner,
		outbox:   params.Outbox,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      clock,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	return Load(ctx, s.repo, id)
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Asset, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required").
			WithDetails(map[string]any{"field": "name"})
	}

	asset := &models.Asset{
		Name:         name,
		SerialNumber: trimmedOrNil(input.SerialNumber),
		AssetTag:     trimmedOrNil(input.AssetTag),
		Status:       enums.AssetStatusInStock,
	}
	if number := trimmedOrNil(input.PoNumber); number != nil {
		po, err := s.pos.FindByNumber(ctx, *number)
		if err != nil {
			return nil, s.fail(ctx, opRegister, err)
		}
		asset.PoNumber = &po.PoNumber
	}

	now := s.now().UTC()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		asset.CreatedAt = now
		asset.UpdatedAt = now
		if err := s.repo.WithTx(tx).Create(ctx, asset); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create asset")
		}
		if _, err := s.recorder.WithTx(tx).RecordStatusChange(ctx, audit.StatusChange{
			AssetID:         asset.ID,
			Status:          enums.AssetStatusInStock,
			ChangedByUserID: input.ActorUserID,
			ChangedAt:       now,
			Remarks:         "registered",
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAssetRegistered,
			AggregateType: enums.AggregateAsset,
			AggregateID:   asset.ID,
			Actor:         outbox.ActorFor(input.ActorUserID),
			OccurredAt:    now,
			Data: payloads.AssetRegisteredEvent{
				AssetID:  asset.ID,
				Name:     asset.Name,
				Status:   asset.Status,
				PoNumber: asset.PoNumber,
			},
		})
	})
	if err != nil {
		return nil, s.fail(ctx, opRegister, err)
	}

	s.logg.Info(s.logg.WithAssetID(ctx, asset.ID.String()), "asset registered")
	return asset, nil
}

func (s *service) ChangeStatus(ctx context.Context, input ChangeStatusInput) (*StatusChangeResult, error) {
	target, err := ParseStatus(input.Status)
	if err != nil {
		return nil, s.fail(ctx, opChangeStatus, err)
	}
	asset, err := Load(ctx, s.repo, input.AssetID)
	if err != nil {
		return nil, s.fail(ctx, opChangeStatus, err)
	}
	if err := CheckVersion(asset, input.ExpectedVersion); err != nil {
		return nil, s.fail(ctx, opChangeStatus, err)
	}
	if asset.Status == target {
		return &StatusChangeResult{Asset: asset}, nil
	}
	if err := ValidateTransition(asset, target); err != nil {
		return nil, s.fail(ctx, opChangeStatus, err)
	}

	previous := asset.Status
	now := s.now().UTC()
	var history *models.StatusHistoryRecord
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.WithTx(tx).UpdateStatus(ctx, asset.ID, asset.Version, target, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update asset status")
		}
		if rows == 0 {
			return ConflictError(asset.ID)
		}
		history, err = s.recorder.WithTx(tx).RecordStatusChange(ctx, audit.StatusChange{
			AssetID:         asset.ID,
			Status:          target,
			ChangedByUserID: input.ActorUserID,
			ChangedAt:       now,
			Remarks:         input.Remarks,
		})
		if err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAssetStatusChanged,
			AggregateType: enums.AggregateAsset,
			AggregateID:   asset.ID,
			Actor:         outbox.ActorFor(input.ActorUserID),
			OccurredAt:    now,
			Data: payloads.AssetStatusChangedEvent{
				AssetID:         asset.ID,
				PreviousStatus:  previous,
				Status:          target,
				HistoryRecordID: history.ID,
				Version:         asset.Version + 1,
				ChangedAt:       now,
			},
		})
	})
	if err != nil {
		return nil, s.fail(ctx, opChangeStatus, err)
	}

	asset.Status = target
	asset.Version++
	asset.UpdatedAt = now
	s.metrics.IncTransition(previous.String(), target.String())

	logCtx := s.logg.WithFields(s.logg.WithAssetID(ctx, asset.ID.String()), map[string]any{
		"from":    previous,
		"to":      target,
		"version": asset.Version,
	})
	s.logg.Info(logCtx, "asset status changed")
	return &StatusChangeResult{Asset: asset, History: history}, nil
}

func (s *service) fail(ctx context.Context, operation string, err error) error {
	code := pkgerrors.CodeInternal
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	s.metrics.IncError(operation, string(code))
	if code == pkgerrors.CodeDependency || code == pkgerrors.CodeInternal {
		logCtx := s.logg.WithFields(s.logg.WithOperation(ctx, operation), map[string]any{
			"error_dump": pkgerrors.Dump(err),
		})
		s.logg.Error(logCtx, "asset operation failed", err)
	}
	return err
}

// Load returns the live asset or a NOT_FOUND error.
func Load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Asset, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset id required")
	}
	asset, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load asset")
	}
	return asset, nil
}

// ParseStatus maps raw input onto the status enum.
func ParseStatus(raw string) (enums.AssetStatus, error) {
	status, err := enums.ParseAssetStatus(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInvalidStatus, err, fmt.Sprintf("unknown status %q", raw)).
			WithDetails(map[string]any{"status": raw, "allowed": enums.AssetStatuses()})
	}
	return status, nil
}

// ValidateTransition applies the coupling rules between status and assignment. It does
// not treat same-status requests specially; callers short-circuit those first.
func ValidateTransition(asset *models.Asset, target enums.AssetStatus) error {
	switch {
	case target.RequiresAssignment() && !asset.IsAssigned():
		return pkgerrors.New(pkgerrors.CodeRequiresAssignment, "asset must be assigned before it can become ACTIVE").
			WithDetails(map[string]any{"asset_id": asset.ID, "status": target})
	case target.ForbidsAssignment() && asset.IsAssigned():
		return pkgerrors.New(pkgerrors.CodeRequiresUnassignmentConfirmation,
			fmt.Sprintf("asset is assigned; unassign before moving to %s", target)).
			WithDetails(map[string]any{
				"asset_id":        asset.ID,
				"status":          target,
				"current_user_id": *asset.CurrentUserID,
			})
	}
	return nil
}

// CheckVersion rejects a stale caller-supplied version.
func CheckVersion(asset *models.Asset, expected *int) error {
	if expected == nil || *expected == asset.Version {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "asset was modified by another request").
		WithDetails(map[string]any{"asset_id": asset.ID, "expected_version": *expected, "version": asset.Version})
}

// ConflictError reports a lost optimistic-concurrency race on the asset row.
func ConflictError(assetID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "asset was modified by another request").
		WithDetails(map[string]any{"asset_id": assetID})
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
