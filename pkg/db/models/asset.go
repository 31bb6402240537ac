package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/pkg/enums"
)

// Asset is a tracked physical or software asset. The lifecycle engine owns Status,
// CurrentUserID and Version; the remaining columns are descriptive.
type Asset struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string            `gorm:"column:name;not null" json:"name"`
	SerialNumber  *string           `gorm:"column:serial_number" json:"serial_number,omitempty"`
	AssetTag      *string           `gorm:"column:asset_tag" json:"asset_tag,omitempty"`
	Status        enums.AssetStatus `gorm:"column:status;type:asset_status;not null;default:'IN_STOCK'" json:"status"`
	CurrentUserID *uuid.UUID        `gorm:"column:current_user_id;type:uuid" json:"current_user_id,omitempty"`
	PoNumber      *string           `gorm:"column:po_number" json:"po_number,omitempty"`
	Version       int               `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt    `gorm:"column:deleted_at;index" json:"-"`
}

func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Version == 0 {
		a.Version = 1
	}
	return nil
}

// IsAssigned reports whether a user currently holds the asset.
func (a *Asset) IsAssigned() bool {
	return a != nil && a.CurrentUserID != nil
}
