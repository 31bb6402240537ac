package enums

import (
	"fmt"
	"strings"
)

// AcquisitionType maps to the acquisition_type enum in Postgres.
type AcquisitionType string

const (
	AcquisitionPurchase AcquisitionType = "PURCHASE"
	AcquisitionLease    AcquisitionType = "LEASE"
	AcquisitionRental   AcquisitionType = "RENTAL"
	AcquisitionDonation AcquisitionType = "DONATION"
)

var validAcquisitionTypes = []AcquisitionType{
	AcquisitionPurchase,
	AcquisitionLease,
	AcquisitionRental,
	AcquisitionDonation,
}

// String implements fmt.Stringer.
func (a AcquisitionType) String() string {
	return string(a)
}

// IsValid reports whether the value matches the canonical acquisition_type enum.
func (a AcquisitionType) IsValid() bool {
	for _, candidate := range validAcquisitionTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAcquisitionType converts raw input into AcquisitionType.
func ParseAcquisitionType(value string) (AcquisitionType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validAcquisitionTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid acquisition type %q", value)
}
