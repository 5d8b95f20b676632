// Package httputil provides HTTP handler utilities for the field-scoped
// error payload contract, JSON encoding/decoding, and request parsing.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alcadeta/portfolio-goteam/pkg/auth"
	"github.com/alcadeta/portfolio-goteam/pkg/kanban"
)

// Messages reused across endpoints. These strings are client contract.
const (
	MsgAuthFailure   = "Authentication failure."
	MsgNotAuthorized = "Authorization failure."
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteFieldError writes a failure payload shaped as
// `{<field>: {"message": ..., "code": ...}}` with the status implied by
// the code.
func WriteFieldError(w http.ResponseWriter, fieldErr *kanban.FieldError) {
	WriteJSON(w, fieldErr.Code.HTTPStatus(), map[string]*kanban.FieldError{
		fieldErr.Field: fieldErr,
	})
}

// WriteBlank writes the blank-field failure for a required parameter.
func WriteBlank(w http.ResponseWriter, field, message string) {
	WriteFieldError(w, kanban.NewFieldError(field, message, kanban.CodeBlank))
}

// WriteAuthFailure writes the canonical authentication failure.
func WriteAuthFailure(w http.ResponseWriter) {
	WriteFieldError(w, kanban.NewFieldError(
		"auth", MsgAuthFailure, kanban.CodeNotAuthenticated,
	))
}

// WriteError maps a domain error onto the field-scoped payload contract.
// field names the request field the failure is attributed to when the
// error itself does not carry one. Unknown errors become 500s with a
// generic body so internals never leak.
func WriteError(w http.ResponseWriter, field string, err error) {
	var fieldErr *kanban.FieldError
	switch {
	case errors.As(err, &fieldErr):
		WriteFieldError(w, fieldErr)
	case errors.Is(err, auth.ErrNotAuthenticated):
		WriteAuthFailure(w)
	case errors.Is(err, auth.ErrNotAuthorized):
		WriteFieldError(w, kanban.NewFieldError(
			field, MsgNotAuthorized, kanban.CodeNotAuthorized,
		))
	default:
		WriteInternalError(w)
	}
}

// WriteInternalError writes a generic 500 response.
func WriteInternalError(w http.ResponseWriter) {
	WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}
