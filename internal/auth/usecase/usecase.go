package usecase

import (
	"context"

	"github.com/shandysiswandi/authflow/internal/auth/entity"
	"github.com/shandysiswandi/authflow/internal/auth/outbound/api"
	"github.com/shandysiswandi/authflow/internal/pkg/clock"
	"github.com/shandysiswandi/authflow/internal/pkg/config"
	"github.com/shandysiswandi/authflow/internal/pkg/instrument"
	"github.com/shandysiswandi/authflow/internal/pkg/mfa"
	"github.com/shandysiswandi/authflow/internal/pkg/storage"
	"github.com/shandysiswandi/authflow/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type repoAPI interface {
	Logout(ctx context.Context, in api.LogoutRequest) (string, error)
	Profile(ctx context.Context) (*entity.User, error)
}

type sessionStore interface {
	IsAuthenticated() bool
	RefreshToken() string
	ClearAuth(ctx context.Context) error
}

type Usecase struct {
	api       repoAPI
	session   sessionStore
	storage   storage.Storage
	encryptor mfa.Encryptor
	validator validator.Validator
	cfg       config.Config
	clock     clock.Clocker
	ins       instrument.Instrumentation
}

type Dependency struct {
	API        repoAPI
	Session    sessionStore
	Storage    storage.Storage
	Encryptor  mfa.Encryptor // nil disables encrypted exports
	Validator  validator.Validator
	Config     config.Config
	Clock      clock.Clocker
	Instrument instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		api:       dep.API,
		session:   dep.Session,
		storage:   dep.Storage,
		encryptor: dep.Encryptor,
		validator: dep.Validator,
		cfg:       dep.Config,
		clock:     dep.Clock,
		ins:       dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("auth.usecase").Start(ctx, name)
}
