package hash

// Hash hashes secrets and verifies plaintext against stored hashes.
type Hash interface {
	Hash(str string) ([]byte, error)
	Verify(hashed, str string) bool
}
