package otp

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
)

func TestTOTP(t *testing.T) {
	// Arrange
	o := NewTOTP("SocialPluse", 0, 0, otp.DigitsSix)
	secret, uri, err := o.Generate("a@b.co")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	at := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("ValidCode", func(t *testing.T) {
		code, err := o.GenerateCode(secret, at)
		if err != nil {
			t.Fatalf("generate code: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		if !o.Validate(code, secret, at) {
			t.Fatalf("expected code to validate")
		}
		if o.Validate(code, secret, at.Add(10*time.Minute)) {
			t.Fatalf("expected code to expire")
		}
	})

	t.Run("QRCode", func(t *testing.T) {
		if !strings.Contains(uri, "otpauth://totp/") {
			t.Fatalf("unexpected uri %q", uri)
		}

		qr, err := o.QRCode(uri)
		if err != nil {
			t.Fatalf("qr: %v", err)
		}
		if !strings.HasPrefix(qr, "data:image/png;base64,") {
			t.Fatalf("expected png data url, got %q", qr[:30])
		}
	})
}
