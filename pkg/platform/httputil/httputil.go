// Package httputil provides JSON response helpers shared by module handlers.
// Handlers stay thin: the sentinel-to-status mapping lives here so every
// module reports infrastructure facts the same way.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"fieldledger/pkg/platform/sentinel"
)

// WriteJSON writes v as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	// Encoding failures past this point cannot change the status line; the
	// body is simply truncated and the client sees a decode error.
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteError maps sentinel errors onto HTTP status codes and writes a JSON
// error body. Internal errors omit the description so storage details never
// leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		WriteJSON(w, http.StatusNotFound, errorBody{Error: "not_found", ErrorDescription: err.Error()})
	case errors.Is(err, sentinel.ErrInvalidArgument):
		WriteJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", ErrorDescription: err.Error()})
	case errors.Is(err, sentinel.ErrInvalidJobState):
		WriteJSON(w, http.StatusConflict, errorBody{Error: "invalid_job_state", ErrorDescription: err.Error()})
	case errors.Is(err, sentinel.ErrStorageUnavailable):
		WriteJSON(w, http.StatusServiceUnavailable, errorBody{Error: "storage_unavailable"})
	default:
		WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error"})
	}
}

// BadRequest writes a 400 with the given description.
func BadRequest(w http.ResponseWriter, description string) {
	WriteJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", ErrorDescription: description})
}
