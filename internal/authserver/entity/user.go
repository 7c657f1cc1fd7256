package entity

import "time"

type UserStatus int

const (
	UserStatusUnknown UserStatus = iota
	// UserStatusPending is a user that has not confirmed its authenticator.
	UserStatusPending
	UserStatusActive
)

func (s UserStatus) String() string {
	switch s {
	case UserStatusPending:
		return "pending"
	case UserStatusActive:
		return "active"
	default:
		return "unknown"
	}
}

type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"password_hash"`
	Status       UserStatus `json:"status"`
	// TOTPSecret is sealed with the MFA encryptor.
	TOTPSecret  []byte       `json:"totp_secret"`
	BackupCodes []BackupCode `json:"backup_codes"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (u *User) IsActive() bool {
	return u != nil && u.Status == UserStatusActive
}

type BackupCode struct {
	Hash string `json:"hash"`
	Used bool   `json:"used"`
}

// Challenge is a pending second-factor login keyed by the hashed session token.
type Challenge struct {
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RefreshToken struct {
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	// ReplacedBy is the hash of the token issued on rotation.
	ReplacedBy string `json:"replaced_by,omitempty"`
}

// TokenPair is what a successful verification or rotation hands out.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
