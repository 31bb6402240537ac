package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
)

// Lifecycle engine codes.
const (
	CodeInvalidStatus                    Code = "INVALID_STATUS"
	CodeRequiresAssignment               Code = "REQUIRES_ASSIGNMENT"
	CodeRequiresUnassignmentConfirmation Code = "REQUIRES_UNASSIGNMENT_CONFIRMATION"
	CodeAlreadyAssigned                  Code = "ALREADY_ASSIGNED"
	CodeNoActiveAssignment               Code = "NO_ACTIVE_ASSIGNMENT"
	CodeNotEligible                      Code = "NOT_ELIGIBLE"
	CodeSameNumber                       Code = "SAME_NUMBER"
	CodeAlreadyMigrated                  Code = "ALREADY_MIGRATED"
	CodeInvalidRecord                    Code = "INVALID_RECORD"
	CodePartialSuccess                   Code = "PARTIAL_SUCCESS"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:     http.StatusUnauthorized,
		Retryable:      false,
		PublicMessage:  "authentication required",
		DetailsAllowed: false,
	},
	CodeForbidden: {
		HTTPStatus:     http.StatusForbidden,
		Retryable:      false,
		PublicMessage:  "access denied",
		DetailsAllowed: false,
	},
	CodeNotFound: {
		HTTPStatus:     http.StatusNotFound,
		Retryable:      false,
		PublicMessage:  "resource not found",
		DetailsAllowed: false,
	},
	CodeConflict: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      true,
		PublicMessage:  "conflict detected",
		DetailsAllowed: false,
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "idempotency key reused",
		DetailsAllowed: true,
	},
	CodeInternal: {
		HTTPStatus:     http.StatusInternalServerError,
		Retryable:      true,
		PublicMessage:  "internal server error",
		DetailsAllowed: false,
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
	CodeInvalidStatus: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "invalid asset status",
		DetailsAllowed: true,
	},
	CodeRequiresAssignment: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		Retryable:      false,
		PublicMessage:  "asset must be assigned to a user first",
		DetailsAllowed: true,
	},
	CodeRequiresUnassignmentConfirmation: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "asset is assigned; confirm unassignment to continue",
		DetailsAllowed: true,
	},
	CodeAlreadyAssigned: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "asset is already assigned to another user",
		DetailsAllowed: true,
	},
	CodeNoActiveAssignment: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "asset has no active assignment",
		DetailsAllowed: false,
	},
	CodeNotEligible: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		Retryable:      false,
		PublicMessage:  "asset status does not allow assignment",
		DetailsAllowed: true,
	},
	CodeSameNumber: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "old and new purchase order numbers are the same",
		DetailsAllowed: false,
	},
	CodeAlreadyMigrated: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "purchase order number already migrated",
		DetailsAllowed: true,
	},
	CodeInvalidRecord: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		Retryable:      false,
		PublicMessage:  "history record is incomplete",
		DetailsAllowed: true,
	},
	CodePartialSuccess: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      true,
		PublicMessage:  "operation partially completed",
		DetailsAllowed: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// IsCode reports whether err carries the given typed code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
