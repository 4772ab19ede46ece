// Package auth holds the HTTP edge of authentication: bearer token
// extraction and the JSON error envelope shared by middleware and handlers.
package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"financeplanner/internal/apperr"
)

// Token extraction failures. They are never shown to callers verbatim;
// every one of them is answered with a plain 401.
var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthScheme = errors.New("invalid authorization scheme: expected Bearer")
	ErrEmptyToken        = errors.New("empty bearer token")
)

// ExtractBearerToken returns the token from an "Authorization: Bearer <token>"
// header. The scheme name is matched case-insensitively.
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingAuthHeader
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidAuthScheme
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

// APIError is the error response body.
type APIError struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a human-readable message and a stable machine-readable type.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// WriteJSONError writes {"error": {"message": ..., "type": ...}} with status.
func WriteJSONError(w http.ResponseWriter, status int, message, errorType string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(APIError{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
		},
	}); err != nil {
		log.Printf("failed to write JSON error response: %v", err)
	}
}

// WriteError maps err to its kind's status and message. Internal errors are
// logged here and answered with a generic message.
func WriteError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		log.Printf("internal error: %v", err)
	}
	WriteJSONError(w, apperr.HTTPStatus(kind), apperr.PublicMessage(err), kind.String())
}

// WriteUnauthorized writes a 401 for a missing or malformed Authorization header.
func WriteUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer`)
	WriteJSONError(w, http.StatusUnauthorized, "missing or malformed bearer token", apperr.Unauthorized.String())
}
