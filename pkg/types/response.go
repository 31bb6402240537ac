package types

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the error body every endpoint returns. RequestID echoes the
// X-Request-Id header so a failed asset operation can be matched to its log lines.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
