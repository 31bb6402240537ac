package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/pagination"
)

// Repository persists history rows. It only inserts and reads.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateStatusRecord(ctx context.Context, record *models.StatusHistoryRecord) error
	CreateAssignmentEvent(ctx context.Context, event *models.AssignmentEvent) error
	ListStatusHistory(ctx context.Context, assetID uuid.UUID, params pagination.Params) ([]models.StatusHistoryRecord, int64, error)
	ListAssignmentEvents(ctx context.Context, assetID uuid.UUID, params pagination.Params) ([]models.AssignmentEvent, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateStatusRecord(ctx context.Context, record *models.StatusHistoryRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) CreateAssignmentEvent(ctx context.Context, event *models.AssignmentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListStatusHistory(ctx context.Context, assetID uuid.UUID, params pagination.Params) ([]models.StatusHistoryRecord, int64, error) {
	params = params.Normalize()
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.StatusHistoryRecord{}).
		Where("asset_id = ?", assetID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []models.StatusHistoryRecord
	if err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("changed_at DESC").
		Order("id DESC").
		Offset(params.Offset()).
		Limit(params.Size).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *repository) ListAssignmentEvents(ctx context.Context, assetID uuid.UUID, params pagination.Params) ([]models.AssignmentEvent, int64, error) {
	params = params.Normalize()
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.AssignmentEvent{}).
		Where("asset_id = ?", assetID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []models.AssignmentEvent
	if err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("occurred_at DESC").
		Order("id DESC").
		Offset(params.Offset()).
		Limit(params.Size).
		Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
