package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/assettrack-backend/pkg/enums"
)

// PurchaseOrder is referenced by assets through its mutable PoNumber.
type PurchaseOrder struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PoNumber        string                `gorm:"column:po_number;not null" json:"po_number"`
	VendorID        *uuid.UUID            `gorm:"column:vendor_id;type:uuid" json:"vendor_id,omitempty"`
	AcquisitionType enums.AcquisitionType `gorm:"column:acquisition_type;type:acquisition_type;not null" json:"acquisition_type"`
	OrderDate       *time.Time            `gorm:"column:order_date" json:"order_date,omitempty"`
	TotalCost       decimal.Decimal       `gorm:"column:total_cost;type:numeric(14,2);not null;default:0" json:"total_cost"`
	Currency        enums.Currency        `gorm:"column:currency;not null;default:'USD'" json:"currency"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (p *PurchaseOrder) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
