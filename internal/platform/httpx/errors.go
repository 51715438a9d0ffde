// Package httpx provides HTTP response utilities following RFC7807
// problem details, plus the sentinel errors domain services use to
// classify failures for transport mapping.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the domain layer. Services wrap these; handlers
// hand the wrapped error to RespondError.
var (
	// ErrNotFound indicates identifier resolution failure.
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate indicates a uniqueness conflict.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrValidation indicates malformed user input; the wrapping
	// message names the offending field.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden indicates an authenticated but insufficiently
	// privileged subject.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized indicates an anonymous subject attempting a
	// gated action.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidRequest indicates a caller contract violation. It is a
	// programming error, not user input, so it surfaces as a 500.
	ErrInvalidRequest = errors.New("invalid request")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		// ErrInvalidRequest lands here on purpose.
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
