package cascade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/internal/assets"
	"github.com/angelmondragon/assettrack-backend/internal/assignments"
	"github.com/angelmondragon/assettrack-backend/internal/purchaseorders"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/angelmondragon/assettrack-backend/pkg/metrics"
)

const (
	opChangeStatusWithUnassignment = "change_status_with_unassignment"
	opAssignWithStatusChange       = "assign_with_status_change"
	opMigratePoNumber              = "migrate_po_number"

	stepUnassign     = "unassign"
	stepAssign       = "assign"
	stepChangeStatus = "change_status"

	activationRemark = "activated by assignment"

	defaultBatchSize = 500
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service runs compound intents. Each step is its own transaction; a failure after a
// completed step is reported as PARTIAL_SUCCESS together with the partial result.
type Service interface {
	ChangeStatusWithUnassignment(ctx context.Context, input assets.ChangeStatusInput) (*Result, error)
	AssignUserWithStatusChange(ctx context.Context, input assignments.AssignInput) (*Result, error)
	MigratePoNumber(ctx context.Context, input MigratePoNumberInput) (*MigrationResult, error)
}

// ServiceParams groups dependencies for the orchestrator.
type ServiceParams struct {
	Assets            assets.Service
	Assignments       assignments.Service
	AssetRepository   assets.Repository
	AssignmentRepo    assignments.Repository
	PurchaseOrderRepo purchaseorders.Repository
	TransactionRunner txRunner
	Outbox            outboxPublisher
	Logger            *logger.Logger
	Metrics           *metrics.EngineMetrics
	BatchSize         int
	Clock             func() time.Time
}

// Result is the combined outcome of a compound intent. StatusHistory is nil when the
// status step did not write; Assignment is nil when no assignment step ran.
type Result struct {
	Asset         *models.Asset               `json:"asset"`
	StatusHistory *models.StatusHistoryRecord `json:"status_history,omitempty"`
	Assignment    *models.AssetAssignment     `json:"assignment,omitempty"`
}

type service struct {
	assets      assets.Service
	assignments assignments.Service
	assetRepo   assets.Repository
	assignRepo  assignments.Repository
	poRepo      purchaseorders.Repository
	tx          txRunner
	outbox      outboxPublisher
	logg        *logger.Logger
	metrics     *metrics.EngineMetrics
	batchSize   int
	now         func() time.Time
}

// NewService builds the cascade orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Assets == nil {
		return nil, fmt.Errorf("asset service required")
	}
	if params.Assignments == nil {
		return nil, fmt.Errorf("assignment service required")
	}
	if params.AssetRepository == nil {
		return nil, fmt.Errorf("asset repository required")
	}
	if params.AssignmentRepo == nil {
		return nil, fmt.Errorf("assignment repository required")
	}
	if params.PurchaseOrderRepo == nil {
		return nil, fmt.Errorf("purchase order repository required")
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
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		assets:      params.Assets,
		assignments: params.Assignments,
		assetRepo:   params.AssetRepository,
		assignRepo:  params.AssignmentRepo,
		poRepo:      params.PurchaseOrderRepo,
		tx:          params.TransactionRunner,
		outbox:      params.Outbox,
		logg:        params.Logger,
		metrics:     params.Metrics,
		batchSize:   batchSize,
		now:         clock,
	}, nil
}

func (s *service) ChangeStatusWithUnassignment(ctx context.Context, input assets.ChangeStatusInput) (*Result, error) {
	target, err := assets.ParseStatus(input.Status)
	if err != nil {
		return nil, err
	}
	asset, err := assets.Load(ctx, s.assetRepo, input.AssetID)
	if err != nil {
		return nil, err
	}
	if err := assets.CheckVersion(asset, input.ExpectedVersion); err != nil {
		return nil, err
	}
	if target.RequiresAssignment() {
		return nil, pkgerrors.New(pkgerrors.CodeRequiresAssignment, "an asset cannot be activated by removing its user").
			WithDetails(map[string]any{"asset_id": asset.ID, "status": target})
	}

	open, err := s.assignRepo.FindOpen(ctx, asset.ID)
	if err != nil && !errors.Is(err, assignments.ErrNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open assignment")
	}

	result := &Result{Asset: asset}
	if open != nil || asset.IsAssigned() {
		// An ACTIVE asset leaves ACTIVE with its user, so it goes straight to the target
		// and the history shows one row for the whole intent.
		released, err := s.assignments.Unassign(ctx, assignments.UnassignInput{
			AssetID:       asset.ID,
			ActorUserID:   input.ActorUserID,
			Remarks:       joinRemarks(fmt.Sprintf("status change to %s", target), input.Remarks),
			ReleaseStatus: target,
		})
		if err != nil {
			return nil, err
		}
		result.Assignment = released.Assignment
		result.StatusHistory = released.History
		if released.History != nil {
			if current, loadErr := assets.Load(ctx, s.assetRepo, asset.ID); loadErr == nil {
				result.Asset = current
			} else {
				asset.Status = released.History.Status
				asset.CurrentUserID = nil
				asset.Version++
			}
			return result, nil
		}
	}

	statusInput := input
	statusInput.Status = target.String()
	statusInput.ExpectedVersion = nil
	changed, err := s.assets.ChangeStatus(ctx, statusInput)
	if err != nil {
		if result.Assignment == nil {
			return nil, err
		}
		if current, loadErr := assets.Load(ctx, s.assetRepo, asset.ID); loadErr == nil {
			result.Asset = current
		}
		return result, s.partial(ctx, opChangeStatusWithUnassignment, "user was unassigned, status change failed",
			[]string{stepUnassign}, stepChangeStatus, err, result)
	}

	result.Asset = changed.Asset
	result.StatusHistory = changed.History
	return result, nil
}

func (s *service) AssignUserWithStatusChange(ctx context.Context, input assignments.AssignInput) (*Result, error) {
	assignment, err := s.assignments.AssignUser(ctx, input)
	if err != nil {
		return nil, err
	}
	result := &Result{Assignment: assignment}

	changed, err := s.assets.ChangeStatus(ctx, assets.ChangeStatusInput{
		AssetID:     input.AssetID,
		Status:      enums.AssetStatusActive.String(),
		ActorUserID: input.ActorUserID,
		Remarks:     joinRemarks(activationRemark, input.Remarks),
	})
	if err != nil {
		if current, loadErr := assets.Load(ctx, s.assetRepo, input.AssetID); loadErr == nil {
			result.Asset = current
		}
		return result, s.partial(ctx, opAssignWithStatusChange, "user was assigned, status change failed",
			[]string{stepAssign}, stepChangeStatus, err, result)
	}

	result.Asset = changed.Asset
	result.StatusHistory = changed.History
	return result, nil
}

func (s *service) partial(ctx context.Context, operation, message string, completed []string, failed string, cause error, result *Result) error {
	causeCode := pkgerrors.CodeInternal
	if typed := pkgerrors.As(cause); typed != nil {
		causeCode = typed.Code()
	}
	details := map[string]any{
		"completed_steps": completed,
		"failed_step":     failed,
		"cause_code":      causeCode,
	}
	if result.Asset != nil {
		details["asset"] = result.Asset
	}
	if result.Assignment != nil {
		details["assignment"] = result.Assignment
	}

	s.metrics.IncPartialSuccess(operation)
	logCtx := s.logg.WithFields(s.logg.WithOperation(ctx, operation), map[string]any{
		"completed_steps": completed,
		"failed_step":     failed,
		"cause_code":      causeCode,
	})
	s.logg.Warn(logCtx, message)
	return pkgerrors.Wrap(pkgerrors.CodePartialSuccess, cause, message).WithDetails(details)
}

func joinRemarks(prefix, remarks string) string {
	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		return prefix
	}
	return prefix + ": " + remarks
}
