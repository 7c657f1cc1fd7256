package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shandysiswandi/authflow/internal/authserver/entity"
	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
	"github.com/shandysiswandi/authflow/internal/pkg/idempotency"
	"github.com/shandysiswandi/authflow/internal/pkg/mfa"
)

type SignupInitInput struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,password"`
}

type SignupInitOutput struct {
	UserID      int64
	Email       string
	QRCode      string
	Secret      string
	BackupCodes []string
}

// SignupInit registers a pending user and returns the authenticator material.
// The backup codes are returned once and only their hashes are kept.
func (s *Usecase) SignupInit(ctx context.Context, in SignupInitInput) (*SignupInitOutput, error) {
	ctx, span := s.startSpan(ctx, "SignupInit")
	defer span.End()

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	existing, err := s.repoDB.GetUserByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}
	if existing.IsActive() {
		slog.WarnContext(ctx, "email already registered", "email", in.Email)
		return nil, goerror.NewBusiness("Email already registered", goerror.CodeConflict)
	}

	passHash, err := s.bcrypt.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, goerror.NewServer(err)
	}

	secret, uri, err := s.totp.Generate(in.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate totp secret", "error", err)
		return nil, goerror.NewServer(err)
	}

	qrCode, err := s.totp.QRCode(uri)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render totp qr code", "error", err)
		return nil, goerror.NewServer(err)
	}

	codes, err := s.mfaRecoveryCode.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate backup codes", "error", err)
		return nil, goerror.NewServer(err)
	}

	userID := s.uid.Generate()

	sealed, err := s.mfaEncryptor.Encrypt([]byte(secret), mfa.Scope{UserID: userID, Purpose: mfa.PurposeOTPSeed})
	if err != nil {
		slog.ErrorContext(ctx, "failed to encrypt totp secret", "user_id", userID, "error", err)
		return nil, goerror.NewServer(err)
	}

	hashedCodes := make([]entity.BackupCode, 0, len(codes))
	for _, code := range codes {
		h, err := s.argon2id.Hash(code)
		if err != nil {
			slog.ErrorContext(ctx, "failed to hash backup code", "user_id", userID, "error", err)
			return nil, goerror.NewServer(err)
		}
		hashedCodes = append(hashedCodes, entity.BackupCode{Hash: string(h)})
	}

	err = s.repoDB.CreateUser(ctx, entity.User{
		ID:           userID,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(passHash),
		Status:       entity.UserStatusPending,
		TOTPSecret:   sealed,
		BackupCodes:  hashedCodes,
		CreatedAt:    s.clock.Now(),
	})
	if errors.Is(err, goerror.ErrConflict) {
		slog.WarnContext(ctx, "email registered concurrently", "email", in.Email)
		return nil, goerror.NewBusiness("Email already registered", goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create user", "user_id", userID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &SignupInitOutput{
		UserID:      userID,
		Email:       in.Email,
		QRCode:      qrCode,
		Secret:      secret,
		BackupCodes: codes,
	}, nil
}

type SignupVerifyInput struct {
	UserID   int64  `validate:"required,gt=0"`
	TOTPCode string `validate:"required,totp"`
}

type AuthOutput struct {
	Message string
	User    *entity.User
	Tokens  *entity.TokenPair
}

// SignupVerify confirms the authenticator of a pending user and signs it in.
// Concurrent attempts for the same user are rejected.
func (s *Usecase) SignupVerify(ctx context.Context, in SignupVerifyInput) (*AuthOutput, error) {
	ctx, span := s.startSpan(ctx, "SignupVerify")
	defer span.End()

	in.TOTPCode = strings.TrimSpace(in.TOTPCode)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	var out *AuthOutput
	err := s.idemp.Exec(ctx, "signup_verify:"+strconv.FormatInt(in.UserID, 10), func(ctx context.Context) error {
		var err error
		out, err = s.signupVerify(ctx, in)
		return err
	})
	switch {
	case errors.Is(err, idempotency.ErrAlreadyInProgress):
		slog.WarnContext(ctx, "signup verification already in progress", "user_id", in.UserID)
		return nil, goerror.NewBusiness("Verification already in progress", goerror.CodeTooManyRequest)
	case errors.Is(err, idempotency.ErrAlreadyCompleted):
		slog.WarnContext(ctx, "signup verification already completed", "user_id", in.UserID)
		return nil, goerror.NewBusiness("Account already verified", goerror.CodeConflict)
	case err != nil:
		var gerr *goerror.Error
		if errors.As(err, &gerr) {
			return nil, err
		}
		slog.ErrorContext(ctx, "failed to track signup verification", "user_id", in.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return out, nil
}

func (s *Usecase) signupVerify(ctx context.Context, in SignupVerifyInput) (*AuthOutput, error) {
	user, err := s.repoDB.GetUserByID(ctx, in.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "signup user not found", "user_id", in.UserID)
		return nil, goerror.NewBusiness("Invalid verification code", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by id", "user_id", in.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if user.Status != entity.UserStatusPending {
		slog.WarnContext(ctx, "signup user already verified", "user_id", user.ID)
		return nil, goerror.NewBusiness("Account already verified", goerror.CodeConflict)
	}

	ok, err := s.validTOTP(ctx, user, in.TOTPCode)
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.WarnContext(ctx, "invalid signup totp code", "user_id", user.ID)
		return nil, goerror.NewBusiness("Invalid verification code", goerror.CodeUnauthorized)
	}

	if err := s.repoDB.ActivateUser(ctx, user.ID); err != nil {
		if errors.Is(err, goerror.ErrConflict) {
			return nil, goerror.NewBusiness("Account already verified", goerror.CodeConflict)
		}
		slog.ErrorContext(ctx, "failed to repo activate user", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}
	user.Status = entity.UserStatusActive

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	return &AuthOutput{
		Message: "Account created successfully",
		User:    user,
		Tokens:  tokens,
	}, nil
}
