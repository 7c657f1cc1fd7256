package mfa

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
)

const (
	sealVersion  uint16 = 1
	nonceSize           = 12
	keySize             = 32
	headerSize          = 2 + nonceSize
	minSealedLen        = headerSize + 1
)

var (
	// ErrEncryptorNotConfigured indicates a missing encryptor key provider.
	ErrEncryptorNotConfigured = errors.New("mfa: encryptor not configured")
	// ErrPlaintextEmpty indicates an empty plaintext input.
	ErrPlaintextEmpty = errors.New("mfa: plaintext is empty")
	// ErrInvalidKeyLength indicates the key is not 32 bytes.
	ErrInvalidKeyLength = errors.New("mfa: invalid key length")
	// ErrCiphertextTooShort indicates a truncated ciphertext.
	ErrCiphertextTooShort = errors.New("mfa: ciphertext too short")
	// ErrUnsupportedCiphertextVersion indicates an unknown header version.
	ErrUnsupportedCiphertextVersion = errors.New("mfa: unsupported ciphertext version")
	// ErrDecryptFailed hides whether the key, scope or payload was wrong.
	ErrDecryptFailed = errors.New("mfa: decrypt failed")
	// ErrMissingStaticKey indicates a missing static key.
	ErrMissingStaticKey = errors.New("mfa: missing static key")
)

// AESGCMEncryptor seals data with AES-256-GCM. The output is
// version(2) | nonce(12) | ciphertext+tag, and the scope is bound as AAD.
type AESGCMEncryptor struct {
	keys KeyProvider
}

func NewAESGCMEncryptor(keys KeyProvider) *AESGCMEncryptor {
	return &AESGCMEncryptor{keys: keys}
}

func (e *AESGCMEncryptor) aead(scope Scope) (cipher.AEAD, error) {
	if e == nil || e.keys == nil {
		return nil, ErrEncryptorNotConfigured
	}

	key, err := e.keys.Key(scope)
	if err != nil {
		return nil, fmt.Errorf("mfa: key provider: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("mfa: got %d key bytes, want %d: %w", len(key), keySize, ErrInvalidKeyLength)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("mfa: aes init: %w", err)
	}

	return cipher.NewGCMWithNonceSize(block, nonceSize)
}

// Encrypt seals plaintext for scope.
func (e *AESGCMEncryptor) Encrypt(plaintext []byte, scope Scope) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, ErrPlaintextEmpty
	}

	gcm, err := e.aead(scope)
	if err != nil {
		return nil, err
	}

	out := make([]byte, headerSize, headerSize+len(plaintext)+gcm.Overhead())
	binary.BigEndian.PutUint16(out, sealVersion)
	if _, err := rand.Read(out[2:headerSize]); err != nil {
		return nil, fmt.Errorf("mfa: nonce: %w", err)
	}

	return gcm.Seal(out, out[2:headerSize], plaintext, scopeAAD(scope)), nil
}

// Decrypt opens ciphertext sealed for the same scope.
func (e *AESGCMEncryptor) Decrypt(ciphertext []byte, scope Scope) ([]byte, error) {
	if len(ciphertext) < minSealedLen {
		return nil, ErrCiphertextTooShort
	}
	if v := binary.BigEndian.Uint16(ciphertext); v != sealVersion {
		return nil, fmt.Errorf("mfa: version %d: %w", v, ErrUnsupportedCiphertextVersion)
	}

	gcm, err := e.aead(scope)
	if err != nil {
		return nil, err
	}

	plain, err := gcm.Open(nil, ciphertext[2:headerSize], ciphertext[headerSize:], scopeAAD(scope))
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}

// scopeAAD hashes a labelled form of the scope so the AAD has a fixed size.
func scopeAAD(s Scope) []byte {
	sum := sha256.Sum256(fmt.Appendf(nil, "uid=%d\npurpose=%s\n", s.UserID, s.Purpose))
	return sum[:]
}

// StaticKeyProvider returns the same key for every scope.
type StaticKeyProvider struct {
	KeyBytes []byte
}

func (p StaticKeyProvider) Key(Scope) ([]byte, error) {
	if len(p.KeyBytes) == 0 {
		return nil, ErrMissingStaticKey
	}
	return slices.Clone(p.KeyBytes), nil
}
