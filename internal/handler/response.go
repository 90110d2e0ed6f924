package handler

// RESPONSE HELPERS:
// These functions are how every /api handler writes JSON and errors.
//
// WHY HELPERS?
// Without them each handler repeats the same three steps:
//   w.Header().Set("Content-Type", "application/json")
//   w.WriteHeader(statusCode)
//   json.NewEncoder(w).Encode(data)
//
// With them a handler ends in one line:
//   writeJSON(w, http.StatusOK, data)
//   writeError(w, err)
//
// CONSISTENT ERROR FORMAT:
// Every API error has the same shape, whatever the status code, so a
// client always knows which fields to read:
//
//	{"error": "not_found", "message": "user not found with id 42"}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/sendlinks/internal/apperror"
)

// ErrorResponse is the error body returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

// writeJSON sends data as JSON with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and the status code go out with the first byte of the body.
// Once Encode starts writing, header changes are silently ignored, so:
//  1. w.Header().Set(...)     ← set headers
//  2. w.WriteHeader(status)   ← send status + headers
//  3. json.Encode(data)       ← send body
//
// An encoding error after step 2 can only be logged.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to a status code and the error envelope.
//
// ERROR MAPPING:
//
//	apperror.ErrValidation          → 400 validation_error
//	apperror.ErrNotFound            → 404 not_found
//	apperror.ErrUnauthorized,
//	apperror.ErrInvalidCredentials  → 401 unauthorized
//	apperror.ErrForbidden           → 403 forbidden
//	apperror.ErrConflict,
//	apperror.ErrUserExists          → 409 conflict
//	anything else                   → 500 internal_error (details logged only)
//
// errors.Is walks the wrap chain, so a service error like
// fmt.Errorf("service/profile: ...: %w", apperror.NotFound(...)) still
// maps to 404.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError

	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrUnauthorized), errors.Is(err, apperror.ErrInvalidCredentials):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrConflict), errors.Is(err, apperror.ErrUserExists):
			status = http.StatusConflict
			errorType = "conflict"
		}

		if status != http.StatusInternalServerError {
			writeJSON(w, status, ErrorResponse{
				Error:   errorType,
				Message: appErr.Message,
			})
			return
		}
	}

	// Never expose internal error text: it may hold SQL or file paths.
	slog.Error("API request failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
