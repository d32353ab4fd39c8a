// Package apierr defines the error taxonomy shared by every API-facing
// component: transport failures, auth rejections, conflicts, validation
// problems and server-side faults. Callers branch on these with errors.As
// or the Is* helpers instead of inspecting status codes.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// NetworkError means the request could not complete at all (DNS, dial,
// timeout, connection reset). The server never produced a response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError is a 401: invalid credentials or an expired/revoked token.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return e.Message
}

// AuthorizationError is a 403: the caller is authenticated but not allowed,
// e.g. a rejected admin key.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	if e.Message == "" {
		return "forbidden"
	}
	return e.Message
}

// ConflictError is a 409, e.g. registering an email that already exists.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return "conflict"
	}
	return e.Message
}

// FieldError pins a validation failure to a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError covers malformed client input (400/422), including local
// pre-flight validation such as quiz JSON imports.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// ServerError is any other non-2xx response, 5xx in particular.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (status %d): %s", e.StatusCode, e.Body)
}

// FromResponse maps a non-2xx response to the taxonomy. The body text (the
// "message" field when the body is a JSON error envelope, otherwise the raw
// text) becomes the error message.
func FromResponse(statusCode int, body []byte) error {
	msg := messageFromBody(body)
	switch statusCode {
	case http.StatusUnauthorized:
		return &AuthError{Message: msg}
	case http.StatusForbidden:
		return &AuthorizationError{Message: msg}
	case http.StatusConflict:
		return &ConflictError{Message: msg}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &ValidationError{Message: msg}
	default:
		return &ServerError{StatusCode: statusCode, Body: msg}
	}
}

func messageFromBody(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return strings.TrimSpace(string(body))
}

func IsNetwork(err error) bool {
	var e *NetworkError
	return errors.As(err, &e)
}

func IsAuth(err error) bool {
	var e *AuthError
	return errors.As(err, &e)
}

func IsAuthorization(err error) bool {
	var e *AuthorizationError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsServer(err error) bool {
	var e *ServerError
	return errors.As(err, &e)
}
