package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/authflow/internal/authserver/entity"
	"github.com/shandysiswandi/authflow/internal/pkg/clock"
	"github.com/shandysiswandi/authflow/internal/pkg/hash"
	"github.com/shandysiswandi/authflow/internal/pkg/idempotency"
	"github.com/shandysiswandi/authflow/internal/pkg/instrument"
	"github.com/shandysiswandi/authflow/internal/pkg/jwt"
	"github.com/shandysiswandi/authflow/internal/pkg/mfa"
	"github.com/shandysiswandi/authflow/internal/pkg/otp"
	"github.com/shandysiswandi/authflow/internal/pkg/uid"
	"github.com/shandysiswandi/authflow/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type repoDB interface {
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	CreateUser(ctx context.Context, user entity.User) error
	ActivateUser(ctx context.Context, id int64) error
	MarkBackupCodeUsed(ctx context.Context, userID int64, idx int) (bool, error)

	CreateChallenge(ctx context.Context, hash string, ch entity.Challenge) error
	GetChallenge(ctx context.Context, hash string) (*entity.Challenge, error)
	ConsumeChallenge(ctx context.Context, hash string) error

	CreateRefreshToken(ctx context.Context, hash string, rt entity.RefreshToken) error
	GetRefreshToken(ctx context.Context, hash string) (*entity.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldHash, newHash string, rt entity.RefreshToken) error
	RevokeRefreshToken(ctx context.Context, hash string) error
	RevokeAllRefreshToken(ctx context.Context, userID int64) error
}

type Usecase struct {
	repoDB          repoDB
	idemp           idempotency.Idempotency
	validator       validator.Validator
	hmac            hash.Hash
	bcrypt          hash.Hash
	argon2id        hash.Hash
	mfaEncryptor    mfa.Encryptor
	mfaRecoveryCode mfa.RecoveryCodeGenerator
	uid             uid.NumberID
	oid             uid.StringID
	totp            otp.OTP
	clock           clock.Clocker
	jwt             jwt.JWT
	ins             instrument.Instrumentation
	challengeTTL    time.Duration
	refreshTTL      time.Duration
}

type Dependency struct {
	RepoDB          repoDB
	Idempotency     idempotency.Idempotency
	Validator       validator.Validator
	HMAC            hash.Hash
	Bcrypt          hash.Hash
	Argon2ID        hash.Hash
	MFAEncryptor    mfa.Encryptor
	MFARecoveryCode mfa.RecoveryCodeGenerator
	UID             uid.NumberID
	OID             uid.StringID
	Totp            otp.OTP
	Clock           clock.Clocker
	JWT             jwt.JWT
	Instrument      instrument.Instrumentation
	ChallengeTTL    time.Duration
	RefreshTTL      time.Duration
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:          dep.RepoDB,
		idemp:           dep.Idempotency,
		validator:       dep.Validator,
		hmac:            dep.HMAC,
		bcrypt:          dep.Bcrypt,
		argon2id:        dep.Argon2ID,
		mfaEncryptor:    dep.MFAEncryptor,
		mfaRecoveryCode: dep.MFARecoveryCode,
		uid:             dep.UID,
		oid:             dep.OID,
		totp:            dep.Totp,
		clock:           dep.Clock,
		jwt:             dep.JWT,
		ins:             dep.Instrument,
		challengeTTL:    dep.ChallengeTTL,
		refreshTTL:      dep.RefreshTTL,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("authserver.usecase").Start(ctx, name)
}
