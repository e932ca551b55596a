package errors

import (
	"errors"
	"net/http"

	apperrors "motobooking/pkg/errors"
)

var (
	ErrNotFound = errors.New("booking not found")

	// ErrCorruptStore marks persisted state that cannot be decoded as a
	// collection of booking objects.
	ErrCorruptStore = errors.New("booking store is corrupt")

	ErrMalformedPayload = errors.New("booking payload is not a JSON object")
)

// NotFound is the client-facing error for an id with no stored booking.
func NotFound() *apperrors.AppError {
	appErr := apperrors.NotFound("Booking")
	appErr.Err = ErrNotFound
	return appErr
}

// MalformedPayload is the client-facing error for a body that does not
// decode as a booking.
func MalformedPayload(cause error) *apperrors.AppError {
	return apperrors.Wrap(errors.Join(ErrMalformedPayload, cause), apperrors.CodeInvalidInput, "Invalid request body", http.StatusBadRequest)
}
