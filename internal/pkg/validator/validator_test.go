package validator

import (
	"errors"
	"testing"
)

type loginVerifyRequest struct {
	SessionToken string `json:"sessionToken" validate:"required"`
	TOTPCode     string `json:"totpCode" validate:"required,totp_or_backup"`
}

type signupRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,password"`
	Code     string `validate:"omitempty,totp"`
}

func TestV10Validator(t *testing.T) {
	v, err := NewV10Validator()
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}

	t.Run("Valid", func(t *testing.T) {
		if err := v.Validate(signupRequest{Email: "a@b.co", Password: "secret", Code: "123456"}); err != nil {
			t.Fatalf("expected valid, got %v", err)
		}
		if err := v.Validate(loginVerifyRequest{SessionToken: "st", TOTPCode: "AbC1-dEf2-GhI3"}); err != nil {
			t.Fatalf("expected backup code to be accepted, got %v", err)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		// Arrange & Act
		err := v.Validate(signupRequest{Email: "nope", Password: "12345", Code: "12a456"})

		// Assert
		var verr V10ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected V10ValidationError, got %T", err)
		}
		if verr["password"] != "Password must be 6-72 characters" {
			t.Fatalf("unexpected password message %q", verr["password"])
		}
		if verr["code"] != "Code must be a 6-digit code" {
			t.Fatalf("unexpected code message %q", verr["code"])
		}
		if _, ok := verr["email"]; !ok {
			t.Fatalf("expected email error, got %v", verr)
		}
	})

	t.Run("SnakeCaseKeys", func(t *testing.T) {
		err := v.Validate(loginVerifyRequest{TOTPCode: "12"})

		var verr V10ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected V10ValidationError, got %T", err)
		}
		if _, ok := verr["session_token"]; !ok {
			t.Fatalf("expected session_token key, got %v", verr)
		}
		if _, ok := verr["totp_code"]; !ok {
			t.Fatalf("expected totp_code key, got %v", verr)
		}
	})
}
