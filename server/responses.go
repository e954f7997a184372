package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/flexnote/compute-broker/internal/errors"
)

const maxRequestBody = 1 << 20

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MessageResponse acknowledges an action without returning a resource.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("Failed to encode response")
	}
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errors.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, errors.ErrProviderUnavailable):
		return http.StatusBadGateway, "provider_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event = event.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status)
	if id := r.PathValue("id"); id != "" {
		event = event.Str("id", id)
	}
	event.Msg("Request failed")

	writeJSON(w, status, ErrorResponse{Error: code, Message: err.Error()})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		return errors.Invalidf("malformed request body: %v", err)
	}
	return nil
}
