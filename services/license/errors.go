package license

import "fmt"

// Machine codes surfaced to administrative callers alongside the human
// message. The revoked case is intentionally absent: revocation is an expected
// steady-state outcome reported as data, not an error.
const (
	CodeInvalidFormat  = "INVALID_FORMAT"
	CodeNotFound       = "NOT_FOUND"
	CodeExpired        = "EXPIRED"
	CodeTenantNotFound = "TENANT_NOT_FOUND"
	CodeNoLicense      = "NO_LICENSE"
)

// ValidationError is the caller-input / expected-negative error surface of the
// validation paths.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func newValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// AsValidationError unwraps err into a ValidationError, if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	ve, ok := err.(*ValidationError)
	return ve, ok
}
