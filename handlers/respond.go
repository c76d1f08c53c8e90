package handlers

import (
	"encoding/json"
	"net/http"

	"excursion/apperrors"
	"excursion/state"
)

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeFailure answers with a failed operation envelope.
func writeFailure[T any](w http.ResponseWriter, err error, message string) {
	kind := apperrors.KindOf(err)
	writeJSON(w, statusFor(kind), state.NewFailure[T](message, string(kind)))
}

func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.InvalidInput:
		return http.StatusBadRequest
	case apperrors.NotFound:
		return http.StatusNotFound
	case apperrors.PermissionDenied:
		return http.StatusForbidden
	case apperrors.NetworkError:
		return http.StatusServiceUnavailable
	case apperrors.QuotaOrSizeExceeded:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
