package mfa

type Purpose string

const (
	PurposeOTPSeed     Purpose = "otp_seed"
	PurposeBackupCodes Purpose = "backup_codes"
)

// Scope is bound to every ciphertext as AAD. Decrypting with a different
// user or purpose fails.
type Scope struct {
	UserID  int64
	Purpose Purpose
}
