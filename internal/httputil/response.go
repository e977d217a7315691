package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"wayfarer/internal/domain"
)

// ErrorBody is the canonical error envelope: {error: {kind, message, details?}}.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail identifies the failure for programmatic handling.
type ErrorDetail struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// RespondJSON writes a JSON response with the given status code. It marshals
// first so an encoding failure cannot produce a half-written body.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, domain.ErrInternal)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// RespondError maps a domain error to its envelope and HTTP status.
func RespondError(w http.ResponseWriter, err error) {
	kind := domain.Kind(err)
	message := err.Error()
	if kind == "Internal" {
		// Internal details stay in the log, not on the wire.
		message = "internal error"
	}

	body := ErrorBody{Error: ErrorDetail{Kind: kind, Message: message}}
	var held *domain.LockHeldError
	if errors.As(err, &held) && held.Owner != "" {
		body.Error.Details = map[string]any{"owner": held.Owner}
	}
	var exhausted *domain.EntropyExhaustedError
	if errors.As(err, &exhausted) {
		body.Error.Details = map[string]any{"need": exhausted.Need, "have": exhausted.Have}
	}

	payload, jsonErr := json.Marshal(body)
	if jsonErr != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(kind))
	w.Write(payload)
}

// RespondErrorMessage wraps a plain validation message as a SchemaViolation.
func RespondErrorMessage(w http.ResponseWriter, message string) {
	RespondJSON(w, http.StatusBadRequest, ErrorBody{
		Error: ErrorDetail{Kind: "SchemaViolation", Message: message},
	})
}

func statusFor(kind string) int {
	switch kind {
	case "SessionMissing", "PreviewMissing":
		return http.StatusNotFound
	case "SchemaViolation", "ExpressionInvalid":
		return http.StatusBadRequest
	case "LockOwnerMismatch":
		return http.StatusForbidden
	case "LockRequired", "LockHeld", "PreviewStale", "EntropyMissing", "EntropyExhausted", "Conflict":
		return http.StatusConflict
	case "Unavailable":
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
