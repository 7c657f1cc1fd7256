package validation

import (
	"testing"

	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "Simple", input: "a@b.co", want: true},
		{name: "Subdomain", input: "jane.doe@mail.example.org", want: true},
		{name: "MissingAt", input: "ab.co", want: false},
		{name: "TwoAt", input: "a@b@c.co", want: false},
		{name: "Whitespace", input: "a b@c.co", want: false},
		{name: "NoDotAfterAt", input: "a@bco", want: false},
		{name: "EmptyTld", input: "a@b.", want: false},
		{name: "EmptyLocal", input: "@b.co", want: false},
		{name: "Empty", input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidEmail(tt.input); got != tt.want {
				t.Fatalf("IsValidEmail(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidPassword(t *testing.T) {
	if IsValidPassword("12345") {
		t.Fatalf("expected 5 characters to be rejected")
	}
	if !IsValidPassword("123456") {
		t.Fatalf("expected 6 characters to be accepted")
	}
	if !IsValidPassword("ééééèè") {
		t.Fatalf("expected length to count characters, not bytes")
	}
	if IsValidPassword("ééééè") {
		t.Fatalf("expected 5 multibyte characters to be rejected")
	}
}

func TestNormalizeTOTPCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "123456", want: "123456"},
		{input: "12 34 56", want: "123456"},
		{input: "1a2b3c4d5e6f7", want: "123456"},
		{input: "12345678", want: "123456"},
		{input: "12-34", want: "1234"},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		if got := NormalizeTOTPCode(tt.input); got != tt.want {
			t.Fatalf("NormalizeTOTPCode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsCompleteTOTPCode(t *testing.T) {
	if !IsCompleteTOTPCode("000000") {
		t.Fatalf("expected six digits to be complete")
	}
	for _, c := range []string{"", "12345", "1234567", "12345a", "١٢٣٤٥٦"} {
		if IsCompleteTOTPCode(c) {
			t.Fatalf("expected %q to be incomplete", c)
		}
	}
}

func TestValidateSignupForm(t *testing.T) {
	valid := SignupForm{Name: "Jane", Email: "jane@example.com", Password: "secret1", ConfirmPassword: "secret1"}

	tests := []struct {
		name    string
		mutate  func(f *SignupForm)
		wantMsg string
	}{
		{name: "Valid", mutate: func(*SignupForm) {}},
		{name: "MissingName", mutate: func(f *SignupForm) { f.Name = "" }, wantMsg: MsgRequiredFields},
		{name: "MissingConfirm", mutate: func(f *SignupForm) { f.ConfirmPassword = "" }, wantMsg: MsgRequiredFields},
		{name: "BadEmail", mutate: func(f *SignupForm) { f.Email = "jane" }, wantMsg: MsgInvalidEmail},
		{name: "ShortPassword", mutate: func(f *SignupForm) { f.Password, f.ConfirmPassword = "abc", "abc" }, wantMsg: MsgPasswordTooShort},
		{name: "Mismatch", mutate: func(f *SignupForm) { f.ConfirmPassword = "secret2" }, wantMsg: MsgPasswordMismatch},
		{
			name:    "FirstRuleWins",
			mutate:  func(f *SignupForm) { f.Email, f.Password = "bad", "x" },
			wantMsg: MsgInvalidEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := valid
			tt.mutate(&f)

			// Act
			err := ValidateSignupForm(f)

			// Assert
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !goerror.IsType(err, goerror.TypeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if got := goerror.Message(err, ""); got != tt.wantMsg {
				t.Fatalf("expected %q, got %q", tt.wantMsg, got)
			}
		})
	}
}

func TestValidateLoginForm(t *testing.T) {
	if err := ValidateLoginForm(LoginForm{Email: "a@b.co", Password: "x"}); err != nil {
		t.Fatalf("expected short password to pass login validation, got %v", err)
	}
	if got := goerror.Message(ValidateLoginForm(LoginForm{Email: "a@b.co"}), ""); got != MsgRequiredFields {
		t.Fatalf("unexpected message %q", got)
	}
	if got := goerror.Message(ValidateLoginForm(LoginForm{Email: "ab.co", Password: "x"}), ""); got != MsgInvalidEmail {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestValidateTOTPCode(t *testing.T) {
	code, err := ValidateTOTPCode(" 123-456 ")
	if err != nil || code != "123456" {
		t.Fatalf("expected normalized code, got %q (%v)", code, err)
	}

	_, err = ValidateTOTPCode("12345")
	if got := goerror.Message(err, ""); got != MsgIncompleteCode {
		t.Fatalf("unexpected message %q", got)
	}
}
