package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/authflow/internal/authserver/entity"
	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
)

type LoginInitInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type LoginInitOutput struct {
	Message      string
	SessionToken string
}

// LoginInit checks the password and opens a short-lived TOTP challenge.
func (s *Usecase) LoginInit(ctx context.Context, in LoginInitInput) (*LoginInitOutput, error) {
	ctx, span := s.startSpan(ctx, "LoginInit")
	defer span.End()

	in.Email = strings.TrimSpace(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user, err := s.repoDB.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found", "email", in.Email)
		return nil, goerror.NewBusiness("Invalid email or password", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !s.bcrypt.Verify(user.PasswordHash, in.Password) {
		slog.WarnContext(ctx, "password user account not match", "user_id", user.ID)
		return nil, goerror.NewBusiness("Invalid email or password", goerror.CodeUnauthorized)
	}

	if !user.IsActive() {
		slog.WarnContext(ctx, "user account not verified", "user_id", user.ID, "status", user.Status.String())
		return nil, goerror.NewBusiness("Account setup is not complete", goerror.CodeForbidden)
	}

	cToken := s.oid.Generate()
	cTokenHash, err := s.hmac.Hash(cToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash token challenge", "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoDB.CreateChallenge(ctx, string(cTokenHash), entity.Challenge{
		UserID:    user.ID,
		ExpiresAt: s.clock.Now().Add(s.challengeTTL),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo create challenge", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &LoginInitOutput{
		Message:      "TOTP verification required",
		SessionToken: cToken,
	}, nil
}

type LoginVerifyInput struct {
	SessionToken string `validate:"required"`
	TOTPCode     string `validate:"required,totp_or_backup"`
}

// LoginVerify completes a challenge with either a TOTP code or an unused
// backup code. The challenge is single use.
func (s *Usecase) LoginVerify(ctx context.Context, in LoginVerifyInput) (*AuthOutput, error) {
	ctx, span := s.startSpan(ctx, "LoginVerify")
	defer span.End()

	in.TOTPCode = strings.TrimSpace(in.TOTPCode)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	cTokenHash, err := s.hmac.Hash(in.SessionToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash token challenge", "error", err)
		return nil, goerror.NewServer(err)
	}

	ch, err := s.repoDB.GetChallenge(ctx, string(cTokenHash))
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "login challenge not found")
		return nil, goerror.NewBusiness("Invalid session or code", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get challenge", "error", err)
		return nil, goerror.NewServer(err)
	}

	if s.clock.Now().After(ch.ExpiresAt) {
		slog.WarnContext(ctx, "login challenge expired", "user_id", ch.UserID)
		if err := s.repoDB.ConsumeChallenge(ctx, string(cTokenHash)); err != nil && !errors.Is(err, goerror.ErrNotFound) {
			slog.ErrorContext(ctx, "failed to repo consume challenge", "user_id", ch.UserID, "error", err)
		}
		return nil, goerror.NewBusiness("Session expired, please log in again", goerror.CodeUnauthorized)
	}

	user, err := s.repoDB.GetUserByID(ctx, ch.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "challenge user not found", "user_id", ch.UserID)
		return nil, goerror.NewBusiness("Invalid session or code", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by id", "user_id", ch.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if isTOTPCode(in.TOTPCode) {
		ok, err := s.validTOTP(ctx, user, in.TOTPCode)
		if err != nil {
			return nil, err
		}
		if !ok {
			slog.WarnContext(ctx, "invalid login totp code", "user_id", user.ID)
			return nil, goerror.NewBusiness("Invalid session or code", goerror.CodeUnauthorized)
		}
	} else if err := s.consumeBackupCode(ctx, user, in.TOTPCode); err != nil {
		return nil, err
	}

	if err := s.repoDB.ConsumeChallenge(ctx, string(cTokenHash)); err != nil {
		if errors.Is(err, goerror.ErrNotFound) {
			slog.WarnContext(ctx, "login challenge consumed concurrently", "user_id", user.ID)
			return nil, goerror.NewBusiness("Invalid session or code", goerror.CodeUnauthorized)
		}
		slog.ErrorContext(ctx, "failed to repo consume challenge", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	return &AuthOutput{
		Message: "Login successful",
		User:    user,
		Tokens:  tokens,
	}, nil
}

func isTOTPCode(code string) bool {
	if len(code) != 6 {
		return false
	}

	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}

	return true
}

func (s *Usecase) consumeBackupCode(ctx context.Context, user *entity.User, code string) error {
	idx := -1
	for i, stored := range user.BackupCodes {
		if !stored.Used && s.argon2id.Verify(stored.Hash, code) {
			idx = i
			break
		}
	}

	if idx < 0 {
		slog.WarnContext(ctx, "backup code not match", "user_id", user.ID)
		return goerror.NewBusiness("Invalid session or code", goerror.CodeUnauthorized)
	}

	ok, err := s.repoDB.MarkBackupCodeUsed(ctx, user.ID, idx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to consume backup code", "user_id", user.ID, "error", err)
		return goerror.NewServer(err)
	}
	if !ok {
		slog.WarnContext(ctx, "backup code already used", "user_id", user.ID)
		return goerror.NewBusiness("Invalid session or code", goerror.CodeUnauthorized)
	}

	return nil
}
