package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateAsset         OutboxAggregateType = "asset"
	AggregatePurchaseOrder OutboxAggregateType = "purchase_order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateAsset,
	AggregatePurchaseOrder,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventAssetRegistered    OutboxEventType = "asset_registered"
	EventAssetStatusChanged OutboxEventType = "asset_status_changed"
	EventAssetAssigned      OutboxEventType = "asset_assigned"
	EventAssetUnassigned    OutboxEventType = "asset_unassigned"
	EventPoNumberMigrated   OutboxEventType = "po_number_migrated"
)

var validOutboxEventTypes = []OutboxEventType{
	EventAssetRegistered,
	EventAssetStatusChanged,
	EventAssetAssigned,
	EventAssetUnassigned,
	EventPoNumberMigrated,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
