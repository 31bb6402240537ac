package enums

import (
	"fmt"
	"strings"
)

// AssetStatus maps to the asset_status enum in Postgres.
type AssetStatus string

const (
	AssetStatusInStock  AssetStatus = "IN_STOCK"
	AssetStatusActive   AssetStatus = "ACTIVE"
	AssetStatusInRepair AssetStatus = "IN_REPAIR"
	AssetStatusBroken   AssetStatus = "BROKEN"
	AssetStatusCeased   AssetStatus = "CEASED"
)

var validAssetStatuses = []AssetStatus{
	AssetStatusInStock,
	AssetStatusActive,
	AssetStatusInRepair,
	AssetStatusBroken,
	AssetStatusCeased,
}

// String implements fmt.Stringer.
func (s AssetStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical asset_status enum.
func (s AssetStatus) IsValid() bool {
	for _, candidate := range validAssetStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ForbidsAssignment reports whether an asset in this status must not carry a user.
func (s AssetStatus) ForbidsAssignment() bool {
	return s == AssetStatusBroken || s == AssetStatusCeased
}

// RequiresAssignment reports whether an asset in this status must carry a user.
func (s AssetStatus) RequiresAssignment() bool {
	return s == AssetStatusActive
}

// AssetStatuses returns the canonical statuses in declaration order.
func AssetStatuses() []AssetStatus {
	out := make([]AssetStatus, len(validAssetStatuses))
	copy(out, validAssetStatuses)
	return out
}

// ParseAssetStatus converts raw input into AssetStatus. Matching ignores case and
// surrounding whitespace.
func ParseAssetStatus(value string) (AssetStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validAssetStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid asset status %q", value)
}
