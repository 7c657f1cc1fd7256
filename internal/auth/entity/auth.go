package entity

// TOTPMaterial is what the backend hands out once at signup.
type TOTPMaterial struct {
	QRCode      string   `json:"qrCode"`
	Secret      string   `json:"secret"`
	BackupCodes []string `json:"backupCodes"`
}

// SignupInit is the first signup step result. It only lives in flow memory.
type SignupInit struct {
	UserID int64        `json:"userId"`
	Email  string       `json:"email"`
	TOTP   TOTPMaterial `json:"totp"`
}

// LoginInit is the first login step result. It only lives in flow memory.
type LoginInit struct {
	Message      string `json:"message"`
	SessionToken string `json:"sessionToken"`
}

// AuthResult is returned by both verify steps.
type AuthResult struct {
	Message string
	User    User
	Tokens  TokenPair
}

// BackupCodes are single-use recovery codes shown once after signup.
type BackupCodes []string
