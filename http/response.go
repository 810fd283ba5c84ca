package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagarc03/apicore"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type
func HandleError(w http.ResponseWriter, err error) {
	writeResponse(w, ErrorResponseFor(err))
}

// ErrorResponseFor maps err to the JSON error response returned to clients.
func ErrorResponseFor(err error) apicore.Response {
	code, errCode, message := classify(err)
	if code >= http.StatusInternalServerError {
		slog.Error("request error", "error", err)
	} else {
		slog.Debug("request rejected", "status", code, "error", err)
	}

	resp, encErr := apicore.NewResponse().WithStatus(code).WithJSON(ErrorResponse{
		Error:   errCode,
		Message: message,
	})
	if encErr != nil {
		slog.Error("failed to encode error response", "error", encErr)
		return apicore.NewResponse().WithStatus(code)
	}
	return resp
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, apicore.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", "Authentication required"
	case errors.Is(err, apicore.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input", "Invalid request"
	case errors.Is(err, apicore.ErrNotFound):
		return http.StatusNotFound, "not_found", "Resource not found"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited", "Too many requests"
	default:
		return http.StatusInternalServerError, "internal_error", "Internal server error"
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}

// writeResponse flushes an action response to w.
func writeResponse(w http.ResponseWriter, resp apicore.Response) {
	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if len(resp.Body) > 0 {
		if _, err := w.Write(resp.Body); err != nil {
			slog.Debug("failed to write response body", "error", err)
		}
	}
}
