package purchaseorders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
)

// ErrNotFound is returned when no purchase order or ledger row matches.
var ErrNotFound = errors.New("purchase order not found")

// Repository persists purchase orders and the number migration ledger. Number lookups
// ignore case.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, po *models.PurchaseOrder) error
	FindByNumber(ctx context.Context, poNumber string) (*models.PurchaseOrder, error)
	Rename(ctx context.Context, id uuid.UUID, newNumber string, at time.Time) error
	FindMigration(ctx context.Context, oldNumber, newNumber string) (*models.PoNumberMigration, error)
	SaveMigration(ctx context.Context, migration *models.PoNumberMigration) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a purchase order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, po *models.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(po).Error
}

func (r *repository) FindByNumber(ctx context.Context, poNumber string) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	err := r.db.WithContext(ctx).
		Where("LOWER(po_number) = LOWER(?)", poNumber).
		First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *repository) Rename(ctx context.Context, id uuid.UUID, newNumber string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ?", id).
		Updates(map[string]any{"po_number": newNumber, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) FindMigration(ctx context.Context, oldNumber, newNumber string) (*models.PoNumberMigration, error) {
	var migration models.PoNumberMigration
	err := r.db.WithContext(ctx).
		Where("LOWER(old_po_number) = LOWER(?) AND LOWER(new_po_number) = LOWER(?)", oldNumber, newNumber).
		First(&migration).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &migration, nil
}

// SaveMigration inserts the ledger row, or updates counters when the row already exists.
func (r *repository) SaveMigration(ctx context.Context, migration *models.PoNumberMigration) error {
	if migration.ID != uuid.Nil {
		return r.db.WithContext(ctx).
			Model(&models.PoNumberMigration{}).
			Where("id = ?", migration.ID).
			Updates(map[string]any{
				"assets_updated": migration.AssetsUpdated,
				"completed_at":   migration.CompletedAt,
			}).Error
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(migration).Error
}
