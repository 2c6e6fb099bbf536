package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"spacehub/internal/database"
	"spacehub/internal/service"

	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeServiceError maps service and storage errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	status, msg := ErrorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
	}
	writeError(w, status, msg)
}

// ErrorStatus returns the HTTP status and client-facing message for err.
func ErrorStatus(err error) (int, string) {
	var (
		verr *service.ValidationError
		ferr *service.ForbiddenError
		nerr *service.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.As(err, &ferr):
		return http.StatusForbidden, ferr.Message
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.As(err, &nerr):
		return http.StatusNotFound, nerr.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "The booking was modified concurrently, please retry"
	case errors.Is(err, database.ErrDuplicateEmail):
		return http.StatusConflict, "Email already registered"
	case errors.Is(err, service.ErrTooManyAttempts):
		return http.StatusTooManyRequests, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// decodeJSON reads a request body into v, rejecting malformed JSON.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	return dec.Decode(v)
}
