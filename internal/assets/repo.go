package assets

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
)

// ErrNotFound is returned when the asset does not exist or was soft-deleted.
var ErrNotFound = errors.New("asset not found")

// Repository persists asset rows. Every ownership or status write is conditional on the
// version the caller read and returns the number of rows it changed; zero means the row
// moved underneath the caller.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Asset, error)
	Create(ctx context.Context, asset *models.Asset) error
	UpdateStatus(ctx context.Context, id uuid.UUID, expectedVersion int, status enums.AssetStatus, at time.Time) (int64, error)
	AttachUser(ctx context.Context, id uuid.UUID, expectedVersion int, userID uuid.UUID, at time.Time) (int64, error)
	DetachUser(ctx context.Context, id uuid.UUID, expectedVersion int, status enums.AssetStatus, at time.Time) (int64, error)
	CountByPoNumber(ctx context.Context, poNumber string) (int64, error)
	RepointPoNumber(ctx context.Context, oldNumber, newNumber string, batchSize int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an asset repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *repository) Create(ctx context.Context, asset *models.Asset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, expectedVersion int, status enums.AssetStatus, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Asset{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"status":     status,
			"version":    gorm.Expr("version + 1"),
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) AttachUser(ctx context.Context, id uuid.UUID, expectedVersion int, userID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Asset{}).
		Where("id = ? AND version = ? AND current_user_id IS NULL", id, expectedVersion).
		Updates(map[string]any{
			"current_user_id": userID,
			"version":         gorm.Expr("version + 1"),
			"updated_at":      at,
		})
	return res.RowsAffected, res.Error
}

// DetachUser clears the holder and writes status in the same statement, so an ACTIVE
// asset never exists without a user even transiently.
func (r *repository) DetachUser(ctx context.Context, id uuid.UUID, expectedVersion int, status enums.AssetStatus, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Asset{}).
		Where("id = ? AND version = ? AND current_user_id IS NOT NULL", id, expectedVersion).
		Updates(map[string]any{
			"current_user_id": nil,
			"status":          status,
			"version":         gorm.Expr("version + 1"),
			"updated_at":      at,
		})
	return res.RowsAffected, res.Error
}

// CountByPoNumber counts assets, deleted ones included, linked to the number.
func (r *repository) CountByPoNumber(ctx context.Context, poNumber string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.Asset{}).
		Where("LOWER(po_number) = LOWER(?)", poNumber).
		Count(&total).Error
	return total, err
}

// RepointPoNumber moves every asset from oldNumber to newNumber, batchSize rows per
// statement. Matching on the old number ignores case.
func (r *repository) RepointPoNumber(ctx context.Context, oldNumber, newNumber string, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	var updated int64
	for {
		var ids []uuid.UUID
		if err := r.db.WithContext(ctx).
			Unscoped().
			Model(&models.Asset{}).
			Where("LOWER(po_number) = LOWER(?)", oldNumber).
			Order("id").
			Limit(batchSize).
			Pluck("id", &ids).Error; err != nil {
			return updated, err
		}
		if len(ids) == 0 {
			return updated, nil
		}
		res := r.db.WithContext(ctx).
			Unscoped().
			Model(&models.Asset{}).
			Where("id IN ?", ids).
			UpdateColumn("po_number", newNumber)
		if res.Error != nil {
			return updated, res.Error
		}
		updated += res.RowsAffected
		if len(ids) < batchSize {
			return updated, nil
		}
	}
}
