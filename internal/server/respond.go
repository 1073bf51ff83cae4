package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/guilhermegouw/parley/internal/apperr"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorBody{Error: msg})
}

// respondErr maps an error kind to a status code.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	kind := string(apperr.KindOf(err))
	if status >= http.StatusInternalServerError {
		requestLogger(r).ErrorContext(r.Context(), "request failed", "error", err)
		if kind == "" {
			kind = string(apperr.KindStorage)
		}
	}
	respondJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrPolicy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperr.Newf(apperr.KindValidation, "server.decode", "invalid request body: %v", err)
	}
	return nil
}
