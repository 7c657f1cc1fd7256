package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/authflow/internal/auth/outbound/api"
	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
)

// Logout revokes the refresh token on the server and always clears the local
// session. A server failure is logged and swallowed.
func (s *Usecase) Logout(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Logout")
	defer span.End()

	if refreshToken := s.session.RefreshToken(); refreshToken != "" {
		if _, err := s.api.Logout(ctx, api.LogoutRequest{RefreshToken: refreshToken}); err != nil {
			span.RecordError(err)
			slog.WarnContext(ctx, "failed to logout on server, clearing local session anyway", "error", err)
		}
	}

	if err := s.session.ClearAuth(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to clear local session", "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
