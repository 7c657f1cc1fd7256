package api

import (
	"context"

	"github.com/shandysiswandi/authflow/internal/auth/entity"
	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
)

type SignupInitRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupVerifyRequest struct {
	UserID   int64  `json:"userId"`
	TOTPCode string `json:"totpCode"`
}

type LoginInitRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginVerifyRequest struct {
	SessionToken string `json:"sessionToken"`
	TOTPCode     string `json:"totpCode"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authResponse struct {
	Message      string      `json:"message"`
	User         entity.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

func (r authResponse) result() *entity.AuthResult {
	return &entity.AuthResult{
		Message: r.Message,
		User:    r.User,
		Tokens:  entity.TokenPair{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken},
	}
}

type logoutResponse struct {
	Message string `json:"message"`
}

type profileResponse struct {
	User entity.User `json:"user"`
}

// SignupInit registers the account and returns the TOTP enrollment material.
func (c *Client) SignupInit(ctx context.Context, in SignupInitRequest) (*entity.SignupInit, error) {
	var out entity.SignupInit
	if err := c.call(ctx, epSignupInit, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignupVerify confirms the first TOTP code and returns the new session.
func (c *Client) SignupVerify(ctx context.Context, in SignupVerifyRequest) (*entity.AuthResult, error) {
	var out authResponse
	if err := c.call(ctx, epSignupVerify, in, &out); err != nil {
		return nil, err
	}
	return out.result(), nil
}

// LoginInit checks credentials and returns a short-lived session token for
// the TOTP step.
func (c *Client) LoginInit(ctx context.Context, in LoginInitRequest) (*entity.LoginInit, error) {
	var out entity.LoginInit
	if err := c.call(ctx, epLoginInit, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LoginVerify(ctx context.Context, in LoginVerifyRequest) (*entity.AuthResult, error) {
	var out authResponse
	if err := c.call(ctx, epLoginVerify, in, &out); err != nil {
		return nil, err
	}
	return out.result(), nil
}

// RefreshToken exchanges a refresh token for a new pair.
func (c *Client) RefreshToken(ctx context.Context, in RefreshTokenRequest) (*entity.TokenPair, error) {
	var out entity.TokenPair
	if err := c.call(ctx, epRefreshToken, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the refresh token and returns the server message.
func (c *Client) Logout(ctx context.Context, in LogoutRequest) (string, error) {
	var out logoutResponse
	if err := c.call(ctx, epLogout, in, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Profile returns the user behind the current access token.
func (c *Client) Profile(ctx context.Context) (*entity.User, error) {
	if !c.hasToken {
		return nil, goerror.NewServer(ErrNoTokenSource)
	}

	var out profileResponse
	if err := c.call(ctx, epProfile, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}
