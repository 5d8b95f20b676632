package kanban

import "net/http"

// Code is a machine-readable failure code carried in error payloads.
type Code string

const (
	CodeBlank            Code = "blank"
	CodeInvalid          Code = "invalid"
	CodeNotFound         Code = "not_found"
	CodeNotAuthenticated Code = "not_authenticated"
	CodeNotAuthorized    Code = "not_authorized"
)

// HTTPStatus maps a failure code to its response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotAuthenticated:
		return http.StatusUnauthorized
	case CodeNotAuthorized:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// FieldError is a failure attributed to a single request field. It renders
// as `{<field>: {"message": ..., "code": ...}}` at the HTTP boundary.
type FieldError struct {
	Field   string `json:"-"`
	Message string `json:"message"`
	Code    Code   `json:"code"`
}

// NewFieldError creates a field error.
func NewFieldError(field, message string, code Code) *FieldError {
	return &FieldError{Field: field, Message: message, Code: code}
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}
