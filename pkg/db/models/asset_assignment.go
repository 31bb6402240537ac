package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssetAssignment binds a user to an asset. A row is closed by setting UnassignedAt and
// is never deleted; at most one open row exists per asset.
type AssetAssignment struct {
	ID                 uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AssetID            uuid.UUID  `gorm:"column:asset_id;type:uuid;not null" json:"asset_id"`
	UserID             uuid.UUID  `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	AssignedAt         time.Time  `gorm:"column:assigned_at;not null" json:"assigned_at"`
	UnassignedAt       *time.Time `gorm:"column:unassigned_at" json:"unassigned_at,omitempty"`
	Remarks            string     `gorm:"column:remarks;not null;default:''" json:"remarks"`
	UnassignRemarks    *string    `gorm:"column:unassign_remarks" json:"unassign_remarks,omitempty"`
	AssignedByUserID   *uuid.UUID `gorm:"column:assigned_by_user_id;type:uuid" json:"assigned_by_user_id,omitempty"`
	UnassignedByUserID *uuid.UUID `gorm:"column:unassigned_by_user_id;type:uuid" json:"unassigned_by_user_id,omitempty"`
}

func (a *AssetAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsOpen reports whether the assignment is the asset's active one.
func (a *AssetAssignment) IsOpen() bool {
	return a != nil && a.UnassignedAt == nil
}
