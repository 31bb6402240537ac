package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/pkg/enums"
)

// StatusHistoryRecord is an append-only entry written for every accepted status change.
type StatusHistoryRecord struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AssetID         uuid.UUID         `gorm:"column:asset_id;type:uuid;not null" json:"asset_id"`
	Status          enums.AssetStatus `gorm:"column:status;type:asset_status;not null" json:"status"`
	ChangedByUserID *uuid.UUID        `gorm:"column:changed_by_user_id;type:uuid" json:"changed_by_user_id,omitempty"`
	ChangedAt       time.Time         `gorm:"column:changed_at;not null" json:"changed_at"`
	Remarks         string            `gorm:"column:remarks;not null;default:''" json:"remarks"`
}

func (StatusHistoryRecord) TableName() string {
	return "asset_status_history"
}

func (r *StatusHistoryRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
