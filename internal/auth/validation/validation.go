// Package validation holds the client-side checks that gate every submission
// before it reaches the network.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
)

const (
	MsgRequiredFields   = "Please fill in all fields"
	MsgInvalidEmail     = "Please enter a valid email"
	MsgPasswordTooShort = "Password must be at least 6 characters"
	MsgPasswordMismatch = "Passwords do not match"
	MsgIncompleteCode   = "Please enter the 6-digit code"
)

// MinPasswordLength is counted in characters, not bytes.
const MinPasswordLength = 6

// TOTPCodeLength is the number of digits in a TOTP code.
const TOTPCodeLength = 6

var reEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether s has a single local part, an @, and a dotted domain.
func IsValidEmail(s string) bool {
	return reEmail.MatchString(s)
}

// IsValidPassword reports whether s has at least MinPasswordLength characters.
func IsValidPassword(s string) bool {
	return utf8.RuneCountInString(s) >= MinPasswordLength
}

// PasswordsMatch compares the password and its confirmation exactly.
func PasswordsMatch(password, confirm string) bool {
	return password == confirm
}

// NormalizeTOTPCode keeps the digits of raw and truncates to TOTPCodeLength.
func NormalizeTOTPCode(raw string) string {
	var b strings.Builder
	b.Grow(TOTPCodeLength)
	for i := 0; i < len(raw) && b.Len() < TOTPCodeLength; i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			b.WriteByte(raw[i])
		}
	}
	return b.String()
}

// IsCompleteTOTPCode reports whether code is exactly six ASCII digits.
func IsCompleteTOTPCode(code string) bool {
	if len(code) != TOTPCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// SignupForm is the raw signup input.
type SignupForm struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// ValidateSignupForm returns the first failing rule as a validation error.
func ValidateSignupForm(f SignupForm) error {
	if f.Name == "" || f.Email == "" || f.Password == "" || f.ConfirmPassword == "" {
		return goerror.NewValidation("form", MsgRequiredFields)
	}
	if !IsValidEmail(f.Email) {
		return goerror.NewValidation("email", MsgInvalidEmail)
	}
	if !IsValidPassword(f.Password) {
		return goerror.NewValidation("password", MsgPasswordTooShort)
	}
	if !PasswordsMatch(f.Password, f.ConfirmPassword) {
		return goerror.NewValidation("confirm_password", MsgPasswordMismatch)
	}

	return nil
}

// LoginForm is the raw login input.
type LoginForm struct {
	Email    string
	Password string
}

// ValidateLoginForm checks required fields and the email shape. Password rules
// are left to the server.
func ValidateLoginForm(f LoginForm) error {
	if f.Email == "" || f.Password == "" {
		return goerror.NewValidation("form", MsgRequiredFields)
	}
	if !IsValidEmail(f.Email) {
		return goerror.NewValidation("email", MsgInvalidEmail)
	}

	return nil
}

// ValidateTOTPCode normalizes raw and rejects anything short of six digits.
func ValidateTOTPCode(raw string) (string, error) {
	code := NormalizeTOTPCode(raw)
	if !IsCompleteTOTPCode(code) {
		return "", goerror.NewValidation("totp_code", MsgIncompleteCode)
	}
	return code, nil
}
