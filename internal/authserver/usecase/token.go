package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/authflow/internal/authserver/entity"
	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
	"github.com/shandysiswandi/authflow/internal/pkg/mfa"
)

func (s *Usecase) issueTokens(ctx context.Context, user *entity.User) (*entity.TokenPair, error) {
	acToken, err := s.jwt.Generate(user.ID, user.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access jwt token", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	refToken := s.oid.Generate()
	refTokenHash, err := s.hmac.Hash(refToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash refresh token", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoDB.CreateRefreshToken(ctx, string(refTokenHash), entity.RefreshToken{
		UserID:    user.ID,
		ExpiresAt: s.clock.Now().Add(s.refreshTTL),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo create refresh token", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &entity.TokenPair{AccessToken: acToken, RefreshToken: refToken}, nil
}

func (s *Usecase) validTOTP(ctx context.Context, user *entity.User, code string) (bool, error) {
	secret, err := s.mfaEncryptor.Decrypt(user.TOTPSecret, mfa.Scope{
		UserID:  user.ID,
		Purpose: mfa.PurposeOTPSeed,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to decrypt totp secret", "user_id", user.ID, "error", err)
		return false, goerror.NewServer(err)
	}

	return s.totp.Validate(code, string(secret), s.clock.Now()), nil
}
