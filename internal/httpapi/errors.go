package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"vtond/internal/pipeline"
	"vtond/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case pipeline.IsNotLoaded(err):
		return http.StatusServiceUnavailable
	case pipeline.IsInvalidInput(err):
		return http.StatusBadRequest
	case pipeline.IsNoImage(err):
		return http.StatusInternalServerError
	}
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Detail: msg, Code: status})
}

// writeJSON writes v as a compact JSON body with no trailing newline.
func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// writeError maps err and writes it; it returns the status used.
func writeError(w http.ResponseWriter, err error) int {
	status := statusFor(err)
	writeJSONError(w, status, err.Error())
	return status
}
