package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aretw0/stageflow/pkg/domain"
)

const (
	codeBadRequest      = "bad_request"
	codeUnknownStage    = "unknown_stage"
	codeSessionNotFound = "session_not_found"
	codeAccessDenied    = "access_denied"
	codeInternal        = "internal"
)

// statusFor maps the domain error taxonomy to HTTP.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnknownStage):
		return http.StatusNotFound, codeUnknownStage
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, codeSessionNotFound
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden, codeAccessDenied
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
