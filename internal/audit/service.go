package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/pagination"
)

// Recorder appends status and assignment history. Entries are never updated or deleted.
type Recorder interface {
	WithTx(tx *gorm.DB) Recorder
	RecordStatusChange(ctx context.Context, input StatusChange) (*models.StatusHistoryRecord, error)
	RecordAssignmentEvent(ctx context.Context, input AssignmentEvent) (*models.AssignmentEvent, error)
	ListStatusHistory(ctx context.Context, assetID uuid.UUID, params pagination.Params) (pagination.Page[models.StatusHistoryRecord], error)
	ListAssignmentEvents(ctx context.Context, assetID uuid.UUID, params pagination.Params) (pagination.Page[models.AssignmentEvent], error)
}

// StatusChange captures one accepted status transition.
type StatusChange struct {
	AssetID         uuid.UUID
	Status          enums.AssetStatus
	ChangedByUserID *uuid.UUID
	ChangedAt       time.Time
	Remarks         string
}

// AssignmentEvent captures one assign or unassign action.
type AssignmentEvent struct {
	AssetID      uuid.UUID
	AssignmentID uuid.UUID
	UserID       uuid.UUID
	Type         enums.AssignmentEventType
	ActorUserID  *uuid.UUID
	OccurredAt   time.Time
	Remarks      string
}

type service struct {
	repo Repository
}

// NewRecorder wires a recorder with the provided repository.
func NewRecorder(repo Repository) (Recorder, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Recorder {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) RecordStatusChange(ctx context.Context, input StatusChange) (*models.StatusHistoryRecord, error) {
	if input.AssetID == uuid.Nil {
		return nil, invalidRecord("asset_id")
	}
	if !input.Status.IsValid() {
		return nil, invalidRecord("status")
	}
	if input.ChangedAt.IsZero() {
		return nil, invalidRecord("changed_at")
	}

	record := &models.StatusHistoryRecord{
		AssetID:         input.AssetID,
		Status:          input.Status,
		ChangedByUserID: input.ChangedByUserID,
		ChangedAt:       input.ChangedAt.UTC(),
		Remarks:         strings.TrimSpace(input.Remarks),
	}
	if err := s.repo.CreateStatusRecord(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status history")
	}
	return record, nil
}

func (s *service) RecordAssignmentEvent(ctx context.Context, input AssignmentEvent) (*models.AssignmentEvent, error) {
	if input.AssetID == uuid.Nil {
		return nil, invalidRecord("asset_id")
	}
	if input.AssignmentID == uuid.Nil {
		return nil, invalidRecord("assignment_id")
	}
	if input.UserID == uuid.Nil {
		return nil, invalidRecord("user_id")
	}
	if !input.Type.IsValid() {
		return nil, invalidRecord("type")
	}
	if input.OccurredAt.IsZero() {
		return nil, invalidRecord("occurred_at")
	}

	event := &models.AssignmentEvent{
		AssetID:      input.AssetID,
		AssignmentID: input.AssignmentID,
		UserID:       input.UserID,
		Type:         input.Type,
		ActorUserID:  input.ActorUserID,
		OccurredAt:   input.OccurredAt.UTC(),
		Remarks:      strings.TrimSpace(input.Remarks),
	}
	if err := s.repo.CreateAssignmentEvent(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record assignment event")
	}
	return event, nil
}

func (s *service) ListStatusHistory(ctx context.Context, assetID uuid.UUID, params pagination.Params) (pagination.Page[models.StatusHistoryRecord], error) {
	records, total, err := s.repo.ListStatusHistory(ctx, assetID, params)
	if err != nil {
		return pagination.Page[models.StatusHistoryRecord]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list status history")
	}
	return pagination.NewPage(records, params, total), nil
}

func (s *service) ListAssignmentEvents(ctx context.Context, assetID uuid.UUID, params pagination.Params) (pagination.Page[models.AssignmentEvent], error) {
	events, total, err := s.repo.ListAssignmentEvents(ctx, assetID, params)
	if err != nil {
		return pagination.Page[models.AssignmentEvent]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignment events")
	}
	return pagination.NewPage(events, params, total), nil
}

func invalidRecord(field string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidRecord, fmt.Sprintf("%s is required", field)).
		WithDetails(map[string]any{"field": field})
}
