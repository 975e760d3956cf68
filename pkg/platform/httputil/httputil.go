// Package httputil centralizes JSON encoding and domain-error translation for
// HTTP handlers so every endpoint produces the same error envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "quorum/pkg/domain-errors"
)

// statusByCode maps domain error codes to HTTP status codes.
var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:         http.StatusBadRequest,
	dErrors.CodeInvalidInput:       http.StatusBadRequest,
	dErrors.CodeValidation:         http.StatusUnprocessableEntity,
	dErrors.CodeNotFound:           http.StatusNotFound,
	dErrors.CodeConflict:           http.StatusConflict,
	dErrors.CodeUnauthorized:       http.StatusUnauthorized,
	dErrors.CodeForbidden:          http.StatusForbidden,
	dErrors.CodeInvariantViolation: http.StatusConflict,
	dErrors.CodeTimeout:            http.StatusGatewayTimeout,
	dErrors.CodeInternal:           http.StatusInternalServerError,

	dErrors.CodeInvalidParameter:   http.StatusBadRequest,
	dErrors.CodeCampaignExpired:    http.StatusGone,
	dErrors.CodeCapacityExceeded:   http.StatusConflict,
	dErrors.CodeNoSuchAssignment:   http.StatusNotFound,
	dErrors.CodeDuplicateJudgement: http.StatusConflict,
	dErrors.CodeStorageUnavailable: http.StatusServiceUnavailable,
}

// ToHTTPStatus returns the HTTP status for a domain error code.
func ToHTTPStatus(code dErrors.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the shared JSON error envelope.
// Internal and storage faults omit the description so infrastructure details
// never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}

	switch code {
	case dErrors.CodeInternal, dErrors.CodeStorageUnavailable:
		// no description
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			body["error_description"] = de.Message
		}
	}

	WriteJSON(w, ToHTTPStatus(code), body)
}

// Decode parses a JSON request body into T. A malformed body yields a
// bad_request domain error the caller passes straight to WriteError.
func Decode[T any](r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return v, nil
}
