package assignments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/internal/assets"
	"github.com/angelmondragon/assettrack-backend/internal/audit"
	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/angelmondragon/assettrack-backend/pkg/metrics"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox/payloads"
)

const (
	opAssign   = "assign_user"
	opUnassign = "unassign_user"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service keeps at most one open assignment per asset. It never changes status except
// to move an ACTIVE asset out of ACTIVE when its user is removed.
type Service interface {
	AssignUser(ctx context.Context, input AssignInput) (*models.AssetAssignment, error)
	UnassignCurrentUser(ctx context.Context, input UnassignInput) (*models.AssetAssignment, error)
	Unassign(ctx context.Context, input UnassignInput) (*UnassignResult, error)
	GetCurrentAssignment(ctx context.Context, assetID uuid.UUID) (*models.AssetAssignment, error)
}

// ServiceParams groups dependencies for the assignment manager.
type ServiceParams struct {
	Assets            assets.Repository
	Repository        Repository
	Recorder          audit.Recorder
	TransactionRunner txRunner
	Outbox            outboxPublisher
	Logger            *logger.Logger
	Metrics           *metrics.EngineMetrics
	Clock             func() time.Time
}

// AssignInput binds UserID to the asset.
type AssignInput struct {
	AssetID         uuid.UUID
	UserID          uuid.UUID
	ActorUserID     *uuid.UUID
	Remarks         string
	ExpectedVersion *int
}

// UnassignInput closes the asset's open assignment. ReleaseStatus is where an ACTIVE
// asset lands once its user is gone; empty means IN_STOCK. It is ignored for assets
// that are not ACTIVE.
type UnassignInput struct {
	AssetID         uuid.UUID
	ActorUserID     *uuid.UUID
	Remarks         string
	ExpectedVersion *int
	ReleaseStatus   enums.AssetStatus
}

// UnassignResult carries the closed assignment and, when the asset left ACTIVE, the
// status history row written with it.
type UnassignResult struct {
	Assignment *models.AssetAssignment
	History    *models.StatusHistoryRecord
}

type service struct {
	assets   assets.Repository
	repo     Repository
	recorder audit.Recorder
	tx       txRunner
	outbox   outboxPublisher
	logg     *logger.Logger
	metrics  *metrics.EngineMetrics
	now      func() time.Time
}

// NewService builds the assignment manager.
func NewService(params ServiceParams) (Service, error) {
	if params.Assets == nil {
		return nil, fmt.Errorf("asset repository required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("assignment repository required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
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
		assets:   params.Assets,
		repo:     params.Repository,
		recorder: params.Recorder,
		tx:       params.TransactionRunner,
		outbox:   params.Outbox,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      clock,
	}, nil
}

func (s *service) AssignUser(ctx context.Context, input AssignInput) (*models.AssetAssignment, error) {
	if input.UserID == uuid.Nil {
		return nil, s.fail(ctx, opAssign, pkgerrors.New(pkgerrors.CodeValidation, "user id required").
			WithDetails(map[string]any{"field": "user_id"}))
	}
	asset, err := assets.Load(ctx, s.assets, input.AssetID)
	if err != nil {
		return nil, s.fail(ctx, opAssign, err)
	}
	if err := assets.CheckVersion(asset, input.ExpectedVersion); err != nil {
		return nil, s.fail(ctx, opAssign, err)
	}
	if asset.Status.ForbidsAssignment() {
		return nil, s.fail(ctx, opAssign, pkgerrors.New(pkgerrors.CodeNotEligible,
			fmt.Sprintf("asset in status %s cannot be assigned", asset.Status)).
			WithDetails(map[string]any{"asset_id": asset.ID, "status": asset.Status}))
	}

	open, err := s.findOpen(ctx, asset.ID)
	if err != nil {
		return nil, s.fail(ctx, opAssign, err)
	}
	holder := asset.CurrentUserID
	if open != nil {
		holder = &open.UserID
	}
	if holder != nil {
		if open != nil && *holder == input.UserID {
			return open, nil
		}
		return nil, s.fail(ctx, opAssign, pkgerrors.New(pkgerrors.CodeAlreadyAssigned, "asset is already assigned").
			WithDetails(map[string]any{"asset_id": asset.ID, "current_user_id": *holder}))
	}

	now := s.now().UTC()
	assignment := &models.AssetAssignment{
		AssetID:          asset.ID,
		UserID:           input.UserID,
		AssignedAt:       now,
		Remarks:          strings.TrimSpace(input.Remarks),
		AssignedByUserID: input.ActorUserID,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.assets.WithTx(tx).AttachUser(ctx, asset.ID, asset.Version, input.UserID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach user to asset")
		}
		if rows == 0 {
			return assets.ConflictError(asset.ID)
		}
		if err := s.repo.WithTx(tx).Create(ctx, assignment); err != nil {
			if db.IsUniqueViolation(err, OpenAssignmentIndex) {
				return assets.ConflictError(asset.ID)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
		}
		if _, err := s.recorder.WithTx(tx).RecordAssignmentEvent(ctx, audit.AssignmentEvent{
			AssetID:      asset.ID,
			AssignmentID: assignment.ID,
			UserID:       input.UserID,
			Type:         enums.AssignmentEventAssigned,
			ActorUserID:  input.ActorUserID,
			OccurredAt:   now,
			Remarks:      assignment.Remarks,
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAssetAssigned,
			AggregateType: enums.AggregateAsset,
			AggregateID:   asset.ID,
			Actor:         outbox.ActorFor(input.ActorUserID),
			OccurredAt:    now,
			Data: payloads.AssetAssignedEvent{
				AssetID:      asset.ID,
				AssignmentID: assignment.ID,
				UserID:       input.UserID,
				AssignedAt:   now,
			},
		})
	})
	if err != nil {
		return nil, s.fail(ctx, opAssign, err)
	}

	s.metrics.IncAssignmentEvent(string(enums.AssignmentEventAssigned))
	logCtx := s.logg.WithFields(s.logg.WithAssetID(ctx, asset.ID.String()), map[string]any{
		"assignment_id": assignment.ID,
		"assignee_id":   input.UserID,
	})
	s.logg.Info(logCtx, "user assigned to asset")
	return assignment, nil
}

func (s *service) UnassignCurrentUser(ctx context.Context, input UnassignInput) (*models.AssetAssignment, error) {
	result, err := s.Unassign(ctx, input)
	if err != nil {
		return nil, err
	}
	return result.Assignment, nil
}

func (s *service) Unassign(ctx context.Context, input UnassignInput) (*UnassignResult, error) {
	release := enums.AssetStatusInStock
	if input.ReleaseStatus != "" {
		if !input.ReleaseStatus.IsValid() {
			return nil, s.fail(ctx, opUnassign, pkgerrors.New(pkgerrors.CodeInvalidStatus, "invalid release status").
				WithDetails(map[string]any{"status": input.ReleaseStatus}))
		}
		if input.ReleaseStatus.RequiresAssignment() {
			return nil, s.fail(ctx, opUnassign, pkgerrors.New(pkgerrors.CodeRequiresAssignment, "an asset cannot stay active without a user").
				WithDetails(map[string]any{"asset_id": input.AssetID, "status": input.ReleaseStatus}))
		}
		release = input.ReleaseStatus
	}

	asset, err := assets.Load(ctx, s.assets, input.AssetID)
	if err != nil {
		return nil, s.fail(ctx, opUnassign, err)
	}
	if err := assets.CheckVersion(asset, input.ExpectedVersion); err != nil {
		return nil, s.fail(ctx, opUnassign, err)
	}
	open, err := s.findOpen(ctx, asset.ID)
	if err != nil {
		return nil, s.fail(ctx, opUnassign, err)
	}
	if open == nil {
		return nil, s.fail(ctx, opUnassign, pkgerrors.New(pkgerrors.CodeNoActiveAssignment, "asset has no active assignment").
			WithDetails(map[string]any{"asset_id": asset.ID}))
	}

	// An ACTIVE asset cannot stay ACTIVE without a user.
	status := asset.Status
	demoted := status.RequiresAssignment()
	if demoted {
		status = release
	}

	now := s.now().UTC()
	remarks := strings.TrimSpace(input.Remarks)
	var unassignRemarks *string
	if remarks != "" {
		unassignRemarks = &remarks
	}
	statusRemarks := demotionRemark(remarks)
	if input.ReleaseStatus != "" && remarks != "" {
		statusRemarks = remarks
	}
	var history *models.StatusHistoryRecord
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.assets.WithTx(tx).DetachUser(ctx, asset.ID, asset.Version, status, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach user from asset")
		}
		if rows == 0 {
			return assets.ConflictError(asset.ID)
		}
		rows, err = s.repo.WithTx(tx).Close(ctx, open.ID, now, unassignRemarks, input.ActorUserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close assignment")
		}
		if rows == 0 {
			return assets.ConflictError(asset.ID)
		}
		recorder := s.recorder.WithTx(tx)
		if _, err := recorder.RecordAssignmentEvent(ctx, audit.AssignmentEvent{
			AssetID:      asset.ID,
			AssignmentID: open.ID,
			UserID:       open.UserID,
			Type:         enums.AssignmentEventUnassigned,
			ActorUserID:  input.ActorUserID,
			OccurredAt:   now,
			Remarks:      remarks,
		}); err != nil {
			return err
		}
		if demoted {
			history, err = recorder.RecordStatusChange(ctx, audit.StatusChange{
				AssetID:         asset.ID,
				Status:          status,
				ChangedByUserID: input.ActorUserID,
				ChangedAt:       now,
				Remarks:         statusRemarks,
			})
			if err != nil {
				return err
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventAssetStatusChanged,
				AggregateType: enums.AggregateAsset,
				AggregateID:   asset.ID,
				Actor:         outbox.ActorFor(input.ActorUserID),
				OccurredAt:    now,
				Data: payloads.AssetStatusChangedEvent{
					AssetID:         asset.ID,
					PreviousStatus:  asset.Status,
					Status:          status,
					HistoryRecordID: history.ID,
					Version:         asset.Version + 1,
					ChangedAt:       now,
				},
			}); err != nil {
				return err
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAssetUnassigned,
			AggregateType: enums.AggregateAsset,
			AggregateID:   asset.ID,
			Actor:         outbox.ActorFor(input.ActorUserID),
			OccurredAt:    now,
			Data: payloads.AssetUnassignedEvent{
				AssetID:      asset.ID,
				AssignmentID: open.ID,
				UserID:       open.UserID,
				UnassignedAt: now,
				Reason:       remarks,
			},
		})
	})
	if err != nil {
		return nil, s.fail(ctx, opUnassign, err)
	}

	open.UnassignedAt = &now
	open.UnassignRemarks = unassignRemarks
	open.UnassignedByUserID = input.ActorUserID
	s.metrics.IncAssignmentEvent(string(enums.AssignmentEventUnassigned))
	if demoted {
		s.metrics.IncTransition(asset.Status.String(), status.String())
	}
	logCtx := s.logg.WithFields(s.logg.WithAssetID(ctx, asset.ID.String()), map[string]any{
		"assignment_id": open.ID,
		"assignee_id":   open.UserID,
		"demoted":       demoted,
	})
	s.logg.Info(logCtx, "user unassigned from asset")
	return &UnassignResult{Assignment: open, History: history}, nil
}

func (s *service) GetCurrentAssignment(ctx context.Context, assetID uuid.UUID) (*models.AssetAssignment, error) {
	asset, err := assets.Load(ctx, s.assets, assetID)
	if err != nil {
		return nil, err
	}
	return Current(ctx, s.repo, asset.ID)
}

// Current returns the open assignment or NOT_FOUND.
func Current(ctx context.Context, repo Repository, assetID uuid.UUID) (*models.AssetAssignment, error) {
	open, err := repo.FindOpen(ctx, assetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset has no current assignment").
				WithDetails(map[string]any{"asset_id": assetID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load current assignment")
	}
	return open, nil
}

func (s *service) findOpen(ctx context.Context, assetID uuid.UUID) (*models.AssetAssignment, error) {
	open, err := s.repo.FindOpen(ctx, assetID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open assignment")
	}
	return open, nil
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
		s.logg.Error(logCtx, "assignment operation failed", err)
	}
	return err
}

func demotionRemark(remarks string) string {
	if remarks == "" {
		return "user unassigned"
	}
	return "user unassigned: " + remarks
}
