package cron

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
)

// Invariant violation kinds reported by the reconciler.
const (
	ViolationActiveWithoutUser      = "active_without_user"
	ViolationRetiredWithUser        = "retired_with_user"
	ViolationUserWithoutAssignment  = "user_without_open_assignment"
	ViolationAssignmentWithoutUser  = "open_assignment_without_user"
	ViolationMultipleOpenAssignment = "multiple_open_assignments"
)

// ViolationKinds lists every kind in report order.
var ViolationKinds = []string{
	ViolationActiveWithoutUser,
	ViolationRetiredWithUser,
	ViolationUserWithoutAssignment,
	ViolationAssignmentWithoutUser,
	ViolationMultipleOpenAssignment,
}

// ConsistencyRepository runs the read-only invariant scans. Each method returns the ids
// of offending assets; soft-deleted assets are ignored.
type ConsistencyRepository interface {
	ActiveWithoutUser(ctx context.Context) ([]uuid.UUID, error)
	RetiredWithUser(ctx context.Context) ([]uuid.UUID, error)
	UserWithoutOpenAssignment(ctx context.Context) ([]uuid.UUID, error)
	OpenAssignmentWithoutUser(ctx context.Context) ([]uuid.UUID, error)
	MultipleOpenAssignments(ctx context.Context) ([]uuid.UUID, error)
}

type consistencyRepository struct {
	db *gorm.DB
}

// NewConsistencyRepository builds the scanner on the primary connection.
func NewConsistencyRepository(db *gorm.DB) ConsistencyRepository {
	return &consistencyRepository{db: db}
}

func (r *consistencyRepository) assets(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Asset{})
}

func (r *consistencyRepository) ActiveWithoutUser(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.assets(ctx).
		Where("status = ? AND current_user_id IS NULL", enums.AssetStatusActive).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *consistencyRepository) RetiredWithUser(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.assets(ctx).
		Where("status IN ? AND current_user_id IS NOT NULL", []enums.AssetStatus{enums.AssetStatusBroken, enums.AssetStatusCeased}).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *consistencyRepository) UserWithoutOpenAssignment(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.assets(ctx).
		Where("current_user_id IS NOT NULL").
		Where(`NOT EXISTS (
			SELECT 1 FROM asset_assignments aa
			WHERE aa.asset_id = assets.id AND aa.unassigned_at IS NULL AND aa.user_id = assets.current_user_id
		)`).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *consistencyRepository) OpenAssignmentWithoutUser(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.assets(ctx).
		Where("current_user_id IS NULL").
		Where(`EXISTS (
			SELECT 1 FROM asset_assignments aa
			WHERE aa.asset_id = assets.id AND aa.unassigned_at IS NULL
		)`).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *consistencyRepository) MultipleOpenAssignments(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.AssetAssignment{}).
		Where("unassigned_at IS NULL").
		Group("asset_id").
		Having("COUNT(*) > 1").
		Order("asset_id").
		Pluck("asset_id", &ids).Error
	return ids, err
}
