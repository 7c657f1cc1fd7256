// Package authserver is a development backend for the signup, login and
// token endpoints the auth client talks to.
package authserver

import (
	"time"

	"github.com/shandysiswandi/authflow/internal/authserver/inbound"
	"github.com/shandysiswandi/authflow/internal/authserver/outbound/repo"
	"github.com/shandysiswandi/authflow/internal/authserver/usecase"
	"github.com/shandysiswandi/authflow/internal/pkg/clock"
	"github.com/shandysiswandi/authflow/internal/pkg/hash"
	"github.com/shandysiswandi/authflow/internal/pkg/idempotency"
	"github.com/shandysiswandi/authflow/internal/pkg/instrument"
	"github.com/shandysiswandi/authflow/internal/pkg/jwt"
	"github.com/shandysiswandi/authflow/internal/pkg/kvstore"
	"github.com/shandysiswandi/authflow/internal/pkg/mfa"
	"github.com/shandysiswandi/authflow/internal/pkg/otp"
	"github.com/shandysiswandi/authflow/internal/pkg/router"
	"github.com/shandysiswandi/authflow/internal/pkg/uid"
	"github.com/shandysiswandi/authflow/internal/pkg/validator"
)

// PublicEndpoints must be passed to router.Config so the unauthenticated
// routes skip the bearer check.
var PublicEndpoints = inbound.PublicEndpoints

type Dependency struct {
	KVStore         kvstore.Store              `validate:"required"`
	Router          *router.Router             `validate:"required"`
	Idempotency     idempotency.Idempotency    `validate:"required"`
	Validator       validator.Validator        `validate:"required"`
	HMAC            hash.Hash                  `validate:"required"`
	Bcrypt          hash.Hash                  `validate:"required"`
	Argon2ID        hash.Hash                  `validate:"required"`
	MFAEncryptor    mfa.Encryptor              `validate:"required"`
	MFARecoveryCode mfa.RecoveryCodeGenerator  `validate:"required"`
	UID             uid.NumberID               `validate:"required"`
	OID             uid.StringID               `validate:"required"`
	Totp            otp.OTP                    `validate:"required"`
	Clock           clock.Clocker              `validate:"required"`
	JWT             jwt.JWT                    `validate:"required"`
	Instrument      instrument.Instrumentation `validate:"required"`
	ChallengeTTL    time.Duration              `validate:"required"`
	RefreshTTL      time.Duration              `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	uc := usecase.New(usecase.Dependency{
		RepoDB:          repo.NewRepo(dep.KVStore, dep.Instrument),
		Idempotency:     dep.Idempotency,
		Validator:       dep.Validator,
		HMAC:            dep.HMAC,
		Bcrypt:          dep.Bcrypt,
		Argon2ID:        dep.Argon2ID,
		MFAEncryptor:    dep.MFAEncryptor,
		MFARecoveryCode: dep.MFARecoveryCode,
		UID:             dep.UID,
		OID:             dep.OID,
		Totp:            dep.Totp,
		Clock:           dep.Clock,
		JWT:             dep.JWT,
		Instrument:      dep.Instrument,
		ChallengeTTL:    dep.ChallengeTTL,
		RefreshTTL:      dep.RefreshTTL,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
