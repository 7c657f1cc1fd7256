package inbound

import (
	"github.com/shandysiswandi/authflow/internal/authserver/usecase"
	"github.com/shandysiswandi/authflow/internal/pkg/router"
)

// HTTPEndpoint exposes the signup, login and token endpoints.
type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) SignupInit(r *router.Request) (any, error) {
	var req SignupInitRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.SignupInit(r.Context(), usecase.SignupInitInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return SignupInitResponse{
		UserID: resp.UserID,
		Email:  resp.Email,
		TOTP: TOTPResponse{
			QRCode:      resp.QRCode,
			Secret:      resp.Secret,
			BackupCodes: resp.BackupCodes,
		},
	}, nil
}

func (h *HTTPEndpoint) SignupVerify(r *router.Request) (any, error) {
	var req SignupVerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.SignupVerify(r.Context(), usecase.SignupVerifyInput{
		UserID:   req.UserID,
		TOTPCode: req.TOTPCode,
	})
	if err != nil {
		return nil, err
	}

	return newAuthResponse(resp), nil
}

func (h *HTTPEndpoint) LoginInit(r *router.Request) (any, error) {
	var req LoginInitRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.LoginInit(r.Context(), usecase.LoginInitInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return LoginInitResponse{Message: resp.Message, SessionToken: resp.SessionToken}, nil
}

func (h *HTTPEndpoint) LoginVerify(r *router.Request) (any, error) {
	var req LoginVerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.LoginVerify(r.Context(), usecase.LoginVerifyInput{
		SessionToken: req.SessionToken,
		TOTPCode:     req.TOTPCode,
	})
	if err != nil {
		return nil, err
	}

	return newAuthResponse(resp), nil
}

func (h *HTTPEndpoint) RefreshToken(r *router.Request) (any, error) {
	var req RefreshTokenRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RefreshToken(r.Context(), usecase.RefreshTokenInput{RefreshToken: req.RefreshToken})
	if err != nil {
		return nil, err
	}

	return TokenResponse{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, nil
}

func (h *HTTPEndpoint) Logout(r *router.Request) (any, error) {
	var req LogoutRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	msg, err := h.uc.Logout(r.Context(), usecase.LogoutInput{RefreshToken: req.RefreshToken})
	if err != nil {
		return nil, err
	}

	return MessageResponse{Message: msg}, nil
}

func (h *HTTPEndpoint) Me(r *router.Request) (any, error) {
	user, err := h.uc.Me(r.Context())
	if err != nil {
		return nil, err
	}

	return MeResponse{User: newUserResponse(user)}, nil
}

func newAuthResponse(out *usecase.AuthOutput) AuthResponse {
	return AuthResponse{
		Message:      out.Message,
		User:         newUserResponse(out.User),
		AccessToken:  out.Tokens.AccessToken,
		RefreshToken: out.Tokens.RefreshToken,
	}
}
