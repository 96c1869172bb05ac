package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// errorResponse is the JSON error body shared by every endpoint.
type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Message    string `json:"message,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response body", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, resp errorResponse) {
	writeJSON(w, code, resp)
}

// decodeBody reads a JSON request body bounded by limit into v. On failure
// it writes the error response itself: 413 for oversized bodies, otherwise
// 400 with the given message. It reports whether decoding succeeded.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any, invalid string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Request body too large"})
		return false
	}
	slog.Debug("invalid request body", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusBadRequest, errorResponse{Error: invalid})
	return false
}
