package utils

import (
	"errors"
	"net/http"

	"ms-events/internal/store"
	"ms-events/internal/validation"
)

// StatusFor maps service and store errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalidID), validation.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrAlreadyCheckedIn), errors.Is(err, store.ErrSoldOut), errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError writes err with the status from StatusFor. Internal errors
// are reported with a generic message.
func WriteServiceError(w http.ResponseWriter, message string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		WriteError(w, status, message, errors.New("internal server error"))
		return
	}
	WriteError(w, status, message, err)
}
