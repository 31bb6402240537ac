package assignments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/pagination"
)

// OpenAssignmentIndex allows a single open assignment row per asset.
const OpenAssignmentIndex = "ux_asset_assignments_open"

// ErrNotFound is returned when the asset has no open assignment.
var ErrNotFound = errors.New("assignment not found")

// Repository persists assignment rows. Rows are closed, never deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOpen(ctx context.Context, assetID uuid.UUID) (*models.AssetAssignment, error)
	Create(ctx context.Context, assignment *models.AssetAssignment) error
	Close(ctx context.Context, id uuid.UUID, at time.Time, remarks *string, actorUserID *uuid.UUID) (int64, error)
	ListByAsset(ctx context.Context, assetID uuid.UUID, params pagination.Params) ([]models.AssetAssignment, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an assignment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOpen(ctx context.Context, assetID uuid.UUID) (*models.AssetAssignment, error) {
	var assignment models.AssetAssignment
	err := r.db.WithContext(ctx).
		Where("asset_id = ? AND unassigned_at IS NULL", assetID).
		Order("assigned_at DESC").
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) Create(ctx context.Context, assignment *models.AssetAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) Close(ctx context.Context, id uuid.UUID, at time.Time, remarks *string, actorUserID *uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.AssetAssignment{}).
		Where("id = ? AND unassigned_at IS NULL", id).
		Updates(map[string]any{
			"unassigned_at":         at,
			"unassign_remarks":      remarks,
			"unassigned_by_user_id": actorUserID,
		})
	return res.RowsAffected, res.Error
}

// ListByAsset returns assignment rows newest first.
func (r *repository) ListByAsset(ctx context.Context, assetID uuid.UUID, params pagination.Params) ([]models.AssetAssignment, int64, error) {
	params = params.Normalize()
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.AssetAssignment{}).
		Where("asset_id = ?", assetID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.AssetAssignment
	if err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("assigned_at DESC").
		Order("id DESC").
		Offset(params.Offset()).
		Limit(params.Size).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
