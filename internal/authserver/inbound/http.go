package inbound

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/authflow/internal/authserver/entity"
	"github.com/shandysiswandi/authflow/internal/authserver/usecase"
	"github.com/shandysiswandi/authflow/internal/pkg/router"
)

type uc interface {
	SignupInit(ctx context.Context, in usecase.SignupInitInput) (*usecase.SignupInitOutput, error)
	SignupVerify(ctx context.Context, in usecase.SignupVerifyInput) (*usecase.AuthOutput, error)
	LoginInit(ctx context.Context, in usecase.LoginInitInput) (*usecase.LoginInitOutput, error)
	LoginVerify(ctx context.Context, in usecase.LoginVerifyInput) (*usecase.AuthOutput, error)
	RefreshToken(ctx context.Context, in usecase.RefreshTokenInput) (*entity.TokenPair, error)
	Logout(ctx context.Context, in usecase.LogoutInput) (string, error)
	Me(ctx context.Context) (*entity.User, error)
}

// PublicEndpoints are served without a bearer token.
var PublicEndpoints = []router.Endpoint{
	{Method: http.MethodPost, Path: "/auth/signup/init"},
	{Method: http.MethodPost, Path: "/auth/signup/verify-totp"},
	{Method: http.MethodPost, Path: "/auth/login/init"},
	{Method: http.MethodPost, Path: "/auth/login/verify-totp"},
	{Method: http.MethodPost, Path: "/auth/refresh"},
	{Method: http.MethodPost, Path: "/auth/logout"},
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/auth/signup/init", end.SignupInit)
	r.POST("/auth/signup/verify-totp", end.SignupVerify)
	r.POST("/auth/login/init", end.LoginInit)
	r.POST("/auth/login/verify-totp", end.LoginVerify)
	r.POST("/auth/refresh", end.RefreshToken)
	r.POST("/auth/logout", end.Logout)
	r.GET("/auth/me", end.Me) // need authenticated
}
