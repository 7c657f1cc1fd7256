package hash

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashers(t *testing.T) {
	tests := []struct {
		name string
		h    Hash
	}{
		{name: "HMACSHA256", h: NewHMACSHA256("secret")},
		{name: "Bcrypt", h: NewBcrypt(bcrypt.MinCost, "pepper")},
		{name: "Argon2id", h: NewArgon2id("pepper")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			hashed, err := tt.h.Hash("Passw0rd!")
			if err != nil {
				t.Fatalf("hash: %v", err)
			}

			// Act & Assert
			if !tt.h.Verify(string(hashed), "Passw0rd!") {
				t.Fatalf("expected plaintext to verify")
			}
			if tt.h.Verify(string(hashed), "wrong") {
				t.Fatalf("expected wrong plaintext to fail")
			}
		})
	}
}

func TestHMACSHA256Deterministic(t *testing.T) {
	h := NewHMACSHA256("secret")
	a, _ := h.Hash("token")
	b, _ := h.Hash("token")
	if string(a) != string(b) {
		t.Fatalf("expected lookup hashes to be stable")
	}
}
