package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"yardb/internal/yarerr"
)

// statusFor maps a taxonomy Kind to its HTTP status (§7, §4.4.6).
func statusFor(kind yarerr.Kind) int {
	switch kind {
	case yarerr.BadRequest:
		return http.StatusBadRequest
	case yarerr.NotFound:
		return http.StatusNotFound
	case yarerr.MethodNotAllowed:
		return http.StatusMethodNotAllowed
	case yarerr.NotAcceptable:
		return http.StatusNotAcceptable
	case yarerr.PreconditionFailed:
		return http.StatusPreconditionFailed
	case yarerr.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes the §4.4.6 error body for err, which is expected (but
// not required) to be a *yarerr.Error; anything else maps to 500.
func writeError(w http.ResponseWriter, err error) {
	var yerr *yarerr.Error
	if !errors.As(err, &yerr) {
		yerr = yarerr.Wrap(yarerr.Internal, "unexpected error", err)
	}

	body := map[string]interface{}{
		"error":   http.StatusText(statusFor(yerr.Kind)),
		"message": yerr.Message,
	}
	for k, v := range yerr.Fields {
		body[k] = v
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(yerr.Kind))
	_ = json.NewEncoder(w).Encode(body)
}
