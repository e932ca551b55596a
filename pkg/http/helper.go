package http

import (
	"errors"
	"net/http"
	"strconv"

	apperrors "motobooking/pkg/errors"
)

const IDParam = "id"

// ErrIDOutOfRange marks an id that is a well-formed integer too large for
// int. No stored record can carry such an id.
var ErrIDOutOfRange = errors.New("id parameter out of range")

// ExtractID reads the id query parameter. An empty value counts as absent.
func ExtractID(r *http.Request) (id int, present bool, err error) {
	raw := r.URL.Query().Get(IDParam)
	if raw == "" {
		return 0, false, nil
	}

	v, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) {
		return 0, true, apperrors.Wrap(ErrIDOutOfRange, apperrors.CodeInvalidInput, "Invalid id parameter", http.StatusBadRequest)
	}
	if err != nil {
		return 0, true, apperrors.InvalidInput("Invalid id parameter")
	}
	return v, true, nil
}

// RequireID is ExtractID for operations that cannot run without an id.
func RequireID(r *http.Request) (int, error) {
	id, present, err := ExtractID(r)
	if err != nil {
		return 0, err
	}
	if !present {
		return 0, apperrors.InvalidInput("Missing id parameter")
	}
	return id, nil
}
