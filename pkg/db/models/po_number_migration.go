package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PoNumberMigration records a purchase order rename so a retried migration can resume
// or report that it already ran.
type PoNumberMigration struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OldPoNumber     string     `gorm:"column:old_po_number;not null" json:"old_po_number"`
	NewPoNumber     string     `gorm:"column:new_po_number;not null" json:"new_po_number"`
	PurchaseOrderID uuid.UUID  `gorm:"column:purchase_order_id;type:uuid;not null" json:"purchase_order_id"`
	AssetsUpdated   int        `gorm:"column:assets_updated;not null;default:0" json:"assets_updated"`
	ActorUserID     *uuid.UUID `gorm:"column:actor_user_id;type:uuid" json:"actor_user_id,omitempty"`
	StartedAt       time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	CompletedAt     *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (m *PoNumberMigration) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
