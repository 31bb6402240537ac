// Package query serves read-only views of asset state and history.
package query

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/assettrack-backend/internal/assets"
	"github.com/angelmondragon/assettrack-backend/internal/assignments"
	"github.com/angelmondragon/assettrack-backend/internal/audit"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/pagination"
)

// Service exposes the consistency query surface. Every call on an unknown asset
// returns NOT_FOUND.
type Service interface {
	GetAsset(ctx context.Context, assetID uuid.UUID) (*models.Asset, error)
	GetCurrentAssignment(ctx context.Context, assetID uuid.UUID) (*models.AssetAssignment, error)
	GetStatusHistory(ctx context.Context, assetID uuid.UUID, params pagination.Params) (pagination.Page[models.StatusHistoryRecord], error)
	GetAssignmentHistory(ctx context.Context, assetID uuid.UUID, params pagination.Params) (pagination.Page[models.AssetAssignment], error)
	GetAssignmentEvents(ctx context.Context, assetID uuid.UUID, params pagination.Params) (pagination.Page[models.AssignmentEvent], error)
}

// ServiceParams groups the read dependencies.
type ServiceParams struct {
	Assets          assets.Repository
	Assignments     assignments.Repository
	Recorder        audit.Recorder
	DefaultPageSize int
}

type service struct {
	assets      assets.Repository
	assignments assignments.Repository
	recorder    audit.Recorder
	pageSize    int
}

// NewService builds the query surface.
func NewService(params ServiceParams) (Service, error) {
	if params.Assets == nil {
		return nil, fmt.Errorf("asset repository required")
	}
	if params.Assignments == nil {
		return nil, fmt.Errorf("assignment repository required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{
		assets:      params.Assets,
		assignments: params.Assignments,
		recorder:    params.Recorder,
		pageSize:    pagination.NormalizeSize(params.DefaultPageSize),
	}, nil
}

func (s *service) GetAsset(ctx context.Context, assetID uuid.UUID) (*models.Asset, error) {
	return assets.Load(ctx, s.assets, assetID)
}

func (s *service) GetCurrentAssignment(ctx context.Context, assetID uuid.UUID) (*models.AssetAssignment, error) {
	if _, err := assets.Load(ctx, s.assets, assetID); err != nil {
		return nil, err
	}
	return assignments.Current(ctx, s.assignments, assetID)
}

func (s *service) GetStatusHistory(ctx context.Context, assetID uuid.UUID, params pagination.Params) (pagination.Page[models.StatusHistoryRecord], error) {
	if _, err := assets.Load(ctx, s.assets, assetID); err != nil {
		return pagination.Page[models.StatusHistoryRecord]{}, err
	}
	return s.recorder.ListStatusHistory(ctx, assetID, s.normalize(params))
}

func (s *service) GetAssignmentHistory(ctx context.Context, assetID uuid.UUID, params pagination.Params) (pagination.Page[models.AssetAssignment], error) {
	if _, err := assets.Load(ctx, s.assets, assetID); err != nil {
		return pagination.Page[models.AssetAssignment]{}, err
	}
	params = s.normalize(params)
	rows, total, err := s.assignments.ListByAsset(ctx, assetID, params)
	if err != nil {
		return pagination.Page[models.AssetAssignment]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignment history")
	}
	return pagination.NewPage(rows, params, total), nil
}

// GetAssignmentEvents pages the append-only ASSIGNED/UNASSIGNED log, newest first.
func (s *service) GetAssignmentEvents(ctx context.Context, assetID uuid.UUID, params pagination.Params) (pagination.Page[models.AssignmentEvent], error) {
	if _, err := assets.Load(ctx, s.assets, assetID); err != nil {
		return pagination.Page[models.AssignmentEvent]{}, err
	}
	return s.recorder.ListAssignmentEvents(ctx, assetID, s.normalize(params))
}

func (s *service) normalize(params pagination.Params) pagination.Params {
	if params.Size <= 0 {
		params.Size = s.pageSize
	}
	return params.Normalize()
}
