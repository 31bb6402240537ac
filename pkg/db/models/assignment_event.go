package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/pkg/enums"
)

// AssignmentEvent records one assign or unassign action against an asset.
type AssignmentEvent struct {
	ID           uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AssetID      uuid.UUID                 `gorm:"column:asset_id;type:uuid;not null" json:"asset_id"`
	AssignmentID uuid.UUID                 `gorm:"column:assignment_id;type:uuid;not null" json:"assignment_id"`
	UserID       uuid.UUID                 `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	Type         enums.AssignmentEventType `gorm:"column:type;type:assignment_event_type;not null" json:"type"`
	ActorUserID  *uuid.UUID                `gorm:"column:actor_user_id;type:uuid" json:"actor_user_id,omitempty"`
	OccurredAt   time.Time                 `gorm:"column:occurred_at;not null" json:"occurred_at"`
	Remarks      string                    `gorm:"column:remarks;not null;default:''" json:"remarks"`
}

func (e *AssignmentEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
