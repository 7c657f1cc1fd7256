package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
)

type LogoutInput struct {
	RefreshToken string `validate:"required"`
}

// Logout revokes the refresh token. Unknown tokens are accepted so the call
// stays idempotent.
func (s *Usecase) Logout(ctx context.Context, in LogoutInput) (string, error) {
	ctx, span := s.startSpan(ctx, "Logout")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return "", goerror.NewInvalidInput(err)
	}

	refHash, err := s.hmac.Hash(in.RefreshToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash refresh token", "error", err)
		return "", goerror.NewServer(err)
	}

	err = s.repoDB.RevokeRefreshToken(ctx, string(refHash))
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "logout with unknown refresh token")
		err = nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo revoke refresh token", "error", err)
		return "", goerror.NewServer(err)
	}

	return "Logged out successfully", nil
}
