package goerror

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestNewRequest(t *testing.T) {
	t.Run("WithStatus", func(t *testing.T) {
		// Arrange & Act
		err := NewRequest(http.StatusUnauthorized, "invalid code")

		// Assert
		var gerr *Error
		if !errors.As(err, &gerr) {
			t.Fatalf("expected *Error, got %T", err)
		}
		status, ok := gerr.Status()
		if !ok || status != http.StatusUnauthorized {
			t.Fatalf("expected status 401, got %d (%v)", status, ok)
		}
		if gerr.Code() != CodeUnauthorized {
			t.Fatalf("expected code unauthorized, got %s", gerr.Code())
		}
		if gerr.Msg() != "invalid code" {
			t.Fatalf("unexpected message %q", gerr.Msg())
		}
	})

	t.Run("NetworkHasNoStatus", func(t *testing.T) {
		// Arrange & Act
		err := NewNetwork(context.Canceled)

		// Assert
		var gerr *Error
		if !errors.As(err, &gerr) {
			t.Fatalf("expected *Error, got %T", err)
		}
		if _, ok := gerr.Status(); ok {
			t.Fatalf("expected no status on network error")
		}
		if gerr.Msg() != MessageNetworkError {
			t.Fatalf("unexpected message %q", gerr.Msg())
		}
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected network error to wrap the cause")
		}
		if !IsType(err, TypeRequest) {
			t.Fatalf("expected request type")
		}
	})
}

func TestNewValidation(t *testing.T) {
	// Arrange & Act
	err := NewValidation("email", "Please enter a valid email")

	// Assert
	if !IsType(err, TypeValidation) {
		t.Fatalf("expected validation type")
	}
	if got := Message(err, "fallback"); got != "Please enter a valid email" {
		t.Fatalf("unexpected message %q", got)
	}

	var gerr *Error
	errors.As(err, &gerr)
	if gerr.Fields()["email"] != "Please enter a valid email" {
		t.Fatalf("expected field message, got %v", gerr.Fields())
	}
	if gerr.StatusCode() != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", gerr.StatusCode())
	}
}

func TestMessage(t *testing.T) {
	if got := Message(errors.New("boom"), "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for plain errors, got %q", got)
	}
	if got := Message(nil, "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for nil, got %q", got)
	}
	if got := Message(NewBusiness("nope", CodeForbidden), "fallback"); got != "nope" {
		t.Fatalf("expected business message, got %q", got)
	}
}
