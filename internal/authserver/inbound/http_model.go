package inbound

import (
	"strconv"

	"github.com/shandysiswandi/authflow/internal/authserver/entity"
)

type SignupInitRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TOTPResponse struct {
	QRCode      string   `json:"qrCode"`
	Secret      string   `json:"secret"`
	BackupCodes []string `json:"backupCodes"`
}

type SignupInitResponse struct {
	UserID int64        `json:"userId"`
	Email  string       `json:"email"`
	TOTP   TOTPResponse `json:"totp"`
}

type SignupVerifyRequest struct {
	UserID   int64  `json:"userId"`
	TOTPCode string `json:"totpCode"`
}

type LoginInitRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInitResponse struct {
	Message      string `json:"message"`
	SessionToken string `json:"sessionToken"`
}

type LoginVerifyRequest struct {
	SessionToken string `json:"sessionToken"`
	TOTPCode     string `json:"totpCode"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func newUserResponse(u *entity.User) UserResponse {
	return UserResponse{ID: strconv.FormatInt(u.ID, 10), Email: u.Email, Name: u.Name}
}

type AuthResponse struct {
	Message      string       `json:"message"`
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type MeResponse struct {
	User UserResponse `json:"user"`
}
