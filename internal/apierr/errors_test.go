package apierr

import (
	"errors"
	"net/http"
	"testing"
)

func TestFromResponseMapping(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
		name   string
	}{
		{http.StatusUnauthorized, IsAuth, "auth"},
		{http.StatusForbidden, IsAuthorization, "authorization"},
		{http.StatusConflict, IsConflict, "conflict"},
		{http.StatusBadRequest, IsValidation, "validation"},
		{http.StatusUnprocessableEntity, IsValidation, "validation 422"},
		{http.StatusInternalServerError, IsServer, "server"},
		{http.StatusBadGateway, IsServer, "bad gateway"},
		{http.StatusNotFound, IsServer, "not found falls back to server"},
	}
	for _, tc := range cases {
		err := FromResponse(tc.status, []byte("boom"))
		if !tc.check(err) {
			t.Errorf("%s: status %d mapped to %T", tc.name, tc.status, err)
		}
	}
}

func TestBodyTextBecomesMessage(t *testing.T) {
	err := FromResponse(http.StatusUnauthorized, []byte("Invalid credentials"))
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T", err)
	}
	if authErr.Message != "Invalid credentials" {
		t.Fatalf("unexpected message %q", authErr.Message)
	}
}

func TestJSONEnvelopeMessage(t *testing.T) {
	err := FromResponse(http.StatusConflict, []byte(`{"message":"Email already registered"}`))
	if err.Error() != "Email already registered" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	err = FromResponse(http.StatusBadRequest, []byte(`{"error":"bad input"}`))
	if err.Error() != "bad input" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestValidationErrorListsFields(t *testing.T) {
	err := &ValidationError{Message: "invalid quiz file", Fields: []FieldError{
		{Field: "title", Message: "required"},
		{Field: "duration", Message: "min"},
	}}
	msg := err.Error()
	if msg != "invalid quiz file (title: required; duration: min)" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestNetworkErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := &NetworkError{Err: cause}
	if !errors.Is(err, cause) {
		t.Fatal("expected NetworkError to unwrap to its cause")
	}
	if !IsNetwork(err) {
		t.Fatal("IsNetwork should match")
	}
}
