package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/assettrack-backend/pkg/enums"
)

// AssetRegisteredEvent is emitted when a new asset enters stock.
type AssetRegisteredEvent struct {
	AssetID  uuid.UUID         `json:"asset_id"`
	Name     string            `json:"name"`
	Status   enums.AssetStatus `json:"status"`
	PoNumber *string           `json:"po_number,omitempty"`
}

// AssetStatusChangedEvent is emitted for every accepted status transition.
type AssetStatusChangedEvent struct {
	AssetID         uuid.UUID         `json:"asset_id"`
	PreviousStatus  enums.AssetStatus `json:"previous_status"`
	Status          enums.AssetStatus `json:"status"`
	HistoryRecordID uuid.UUID         `json:"history_record_id"`
	Version         int               `json:"version"`
	ChangedAt       time.Time         `json:"changed_at"`
}

// AssetAssignedEvent is emitted when a user is bound to an asset.
type AssetAssignedEvent struct {
	AssetID      uuid.UUID `json:"asset_id"`
	AssignmentID uuid.UUID `json:"assignment_id"`
	UserID       uuid.UUID `json:"user_id"`
	AssignedAt   time.Time `json:"assigned_at"`
}

// AssetUnassignedEvent is emitted when an assignment is closed.
type AssetUnassignedEvent struct {
	AssetID      uuid.UUID `json:"asset_id"`
	AssignmentID uuid.UUID `json:"assignment_id"`
	UserID       uuid.UUID `json:"user_id"`
	UnassignedAt time.Time `json:"unassigned_at"`
	Reason       string    `json:"reason,omitempty"`
}

// PoNumberMigratedEvent is emitted when a purchase order is renamed.
type PoNumberMigratedEvent struct {
	PurchaseOrderID uuid.UUID `json:"purchase_order_id"`
	OldPoNumber     string    `json:"old_po_number"`
	NewPoNumber     string    `json:"new_po_number"`
	AssetsUpdated   int       `json:"assets_updated"`
}
