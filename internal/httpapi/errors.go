package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"modelgate/internal/manager"
	"modelgate/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// invalidModelDetail is the fixed message for unknown model ids.
const invalidModelDetail = "Invalid model"

// errorStatus maps a service error to a status code and client-facing detail.
func errorStatus(err error) (int, string) {
	if manager.IsUnknownModel(err) {
		return http.StatusBadRequest, invalidModelDetail
	}
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode(), err.Error()
	}
	return http.StatusInternalServerError, err.Error()
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Detail: msg})
}
