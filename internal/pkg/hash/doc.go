// Package hash hashes secrets for the auth server: bcrypt for passwords,
// argon2id for backup codes and a deterministic HMAC-SHA256 for token lookup
// keys.
package hash
