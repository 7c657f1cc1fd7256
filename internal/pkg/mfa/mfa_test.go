package mfa

import (
	"bytes"
	"errors"
	"regexp"
	"testing"
)

func TestAESGCMEncryptor(t *testing.T) {
	key := bytes.Repeat([]byte{7}, 32)
	enc := NewAESGCMEncryptor(StaticKeyProvider{KeyBytes: key})
	scope := Scope{UserID: 42, Purpose: PurposeBackupCodes}

	t.Run("RoundTrip", func(t *testing.T) {
		// Arrange
		plain := []byte("AAAA-BBBB-CCCC\n")

		// Act
		sealed, err := enc.Encrypt(plain, scope)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		got, err := enc.Decrypt(sealed, scope)

		// Assert
		if err != nil {
			t.Fatalf("decrypt: %v", err)
		}
		if !bytes.Equal(got, plain) {
			t.Fatalf("expected %q, got %q", plain, got)
		}
	})

	t.Run("WrongPurpose", func(t *testing.T) {
		sealed, err := enc.Encrypt([]byte("secret"), scope)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}

		_, err = enc.Decrypt(sealed, Scope{UserID: 42, Purpose: PurposeOTPSeed})
		if !errors.Is(err, ErrDecryptFailed) {
			t.Fatalf("expected decrypt failure, got %v", err)
		}
	})

	t.Run("EmptyPlaintext", func(t *testing.T) {
		if _, err := enc.Encrypt(nil, scope); !errors.Is(err, ErrPlaintextEmpty) {
			t.Fatalf("expected empty plaintext error, got %v", err)
		}
	})

	t.Run("MissingKey", func(t *testing.T) {
		_, err := NewAESGCMEncryptor(StaticKeyProvider{}).Encrypt([]byte("x"), scope)
		if !errors.Is(err, ErrMissingStaticKey) {
			t.Fatalf("expected missing key error, got %v", err)
		}
	})
}

func TestRecoveryCodeGenerate(t *testing.T) {
	codes, err := NewRecoveryCode().Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(codes) != 10 {
		t.Fatalf("expected 10 codes, got %d", len(codes))
	}

	re := regexp.MustCompile(`^[0-9A-Za-z]{4}-[0-9A-Za-z]{4}-[0-9A-Za-z]{4}$`)
	seen := map[string]bool{}
	for _, c := range codes {
		if !re.MatchString(c) {
			t.Fatalf("unexpected code format %q", c)
		}
		if seen[c] {
			t.Fatalf("duplicate code %q", c)
		}
		seen[c] = true
	}
}
