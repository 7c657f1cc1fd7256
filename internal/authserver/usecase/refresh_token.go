package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/authflow/internal/authserver/entity"
	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
)

type RefreshTokenInput struct {
	RefreshToken string `validate:"required"`
}

// RefreshToken rotates a refresh token. Presenting a token that was already
// rotated revokes every token of its user.
func (s *Usecase) RefreshToken(ctx context.Context, in RefreshTokenInput) (*entity.TokenPair, error) {
	ctx, span := s.startSpan(ctx, "RefreshToken")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	oldHash, err := s.hmac.Hash(in.RefreshToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash old refresh token", "error", err)
		return nil, goerror.NewServer(err)
	}

	rt, err := s.repoDB.GetRefreshToken(ctx, string(oldHash))
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user refresh token not found")
		return nil, goerror.NewBusiness("Invalid or expired refresh token", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get refresh token", "error", err)
		return nil, goerror.NewServer(err)
	}

	if rt.Revoked {
		if rt.ReplacedBy != "" {
			if err := s.repoDB.RevokeAllRefreshToken(ctx, rt.UserID); err != nil {
				slog.ErrorContext(ctx, "failed to repo revoke all refresh token", "user_id", rt.UserID, "error", err)
			}

			slog.WarnContext(ctx, "SECURITY: refresh token reuse detected", "user_id", rt.UserID)
			return nil, goerror.NewBusiness("Token reuse detected, please log in again", goerror.CodeForbidden)
		}

		slog.WarnContext(ctx, "refresh token is revoked", "user_id", rt.UserID)
		return nil, goerror.NewBusiness("Invalid or expired refresh token", goerror.CodeUnauthorized)
	}

	if s.clock.Now().After(rt.ExpiresAt) {
		slog.WarnContext(ctx, "user refresh token is expired", "user_id", rt.UserID)
		return nil, goerror.NewBusiness("Invalid or expired refresh token", goerror.CodeUnauthorized)
	}

	user, err := s.repoDB.GetUserByID(ctx, rt.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "refresh token user not found", "user_id", rt.UserID)
		return nil, goerror.NewBusiness("Invalid or expired refresh token", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by id", "user_id", rt.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	acToken, err := s.jwt.Generate(user.ID, user.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access jwt token", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	newToken := s.oid.Generate()
	newHash, err := s.hmac.Hash(newToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash new refresh token", "error", err)
		return nil, goerror.NewServer(err)
	}

	err = s.repoDB.RotateRefreshToken(ctx, string(oldHash), string(newHash), entity.RefreshToken{
		UserID:    user.ID,
		ExpiresAt: s.clock.Now().Add(s.refreshTTL),
	})
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "refresh token already rotated or revoked", "user_id", user.ID)
		return nil, goerror.NewBusiness("Invalid or expired refresh token", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo rotate refresh token", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &entity.TokenPair{AccessToken: acToken, RefreshToken: newToken}, nil
}
