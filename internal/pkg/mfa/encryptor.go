package mfa

// Encryptor seals secrets at rest, such as TOTP seeds and exported backup
// codes.
type Encryptor interface {
	Encrypt(plaintext []byte, scope Scope) (ciphertext []byte, err error)
	Decrypt(ciphertext []byte, scope Scope) (plaintext []byte, err error)
}

// KeyProvider returns the 32-byte AES key for a scope.
type KeyProvider interface {
	Key(scope Scope) ([]byte, error)
}
