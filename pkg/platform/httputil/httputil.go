// Package httputil maps coded domain errors onto HTTP responses so handlers
// never hand-pick status codes.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "pramaan/pkg/domain-errors"
)

// ErrorBody is the JSON error envelope every endpoint returns on failure.
type ErrorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeInvariantViolation:
		return http.StatusConflict
	case dErrors.CodeExpired:
		return http.StatusGone
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders a coded error. Uncoded errors become opaque 500s so
// internal details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := ErrorBody{Error: string(code), Reason: dErrors.Reason(err)}
	if code != dErrors.CodeInternal {
		body.Detail = err.Error()
	}
	WriteJSON(w, statusFor(code), body)
}

// WriteJSON renders v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
