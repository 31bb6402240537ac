package enums

import "fmt"

// AssignmentEventType maps to the assignment_event_type enum in Postgres.
type AssignmentEventType string

const (
	AssignmentEventAssigned   AssignmentEventType = "ASSIGNED"
	AssignmentEventUnassigned AssignmentEventType = "UNASSIGNED"
)

var validAssignmentEventTypes = []AssignmentEventType{
	AssignmentEventAssigned,
	AssignmentEventUnassigned,
}

// String implements fmt.Stringer.
func (t AssignmentEventType) String() string {
	return string(t)
}

// IsValid reports whether the value matches the canonical assignment_event_type enum.
func (t AssignmentEventType) IsValid() bool {
	for _, candidate := range validAssignmentEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseAssignmentEventType converts raw input into AssignmentEventType.
func ParseAssignmentEventType(value string) (AssignmentEventType, error) {
	for _, candidate := range validAssignmentEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment event type %q", value)
}
