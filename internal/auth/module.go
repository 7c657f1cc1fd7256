package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/shandysiswandi/authflow/internal/auth/flow"
	"github.com/shandysiswandi/authflow/internal/auth/inbound/terminal"
	"github.com/shandysiswandi/authflow/internal/auth/outbound/api"
	"github.com/shandysiswandi/authflow/internal/auth/outbound/mq"
	"github.com/shandysiswandi/authflow/internal/auth/refresh"
	"github.com/shandysiswandi/authflow/internal/auth/session"
	"github.com/shandysiswandi/authflow/internal/auth/usecase"
	"github.com/shandysiswandi/authflow/internal/pkg/clock"
	"github.com/shandysiswandi/authflow/internal/pkg/config"
	"github.com/shandysiswandi/authflow/internal/pkg/goroutine"
	"github.com/shandysiswandi/authflow/internal/pkg/instrument"
	"github.com/shandysiswandi/authflow/internal/pkg/kvstore"
	"github.com/shandysiswandi/authflow/internal/pkg/messaging"
	"github.com/shandysiswandi/authflow/internal/pkg/mfa"
	"github.com/shandysiswandi/authflow/internal/pkg/storage"
	"github.com/shandysiswandi/authflow/internal/pkg/validator"
)

type Dependency struct {
	KVStore    kvstore.Store              `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Storage    storage.Storage            `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	In         io.Reader                  `validate:"required"`
	Out        io.Writer                  `validate:"required"`
	// Encryptor seals exported backup codes when set.
	Encryptor mfa.Encryptor
	// Transport overrides the base HTTP transport of the API client.
	Transport http.RoundTripper
}

// Module is the client side of the authentication protocol.
type Module struct {
	store       *session.Store
	scheduler   *refresh.Scheduler
	terminal    *terminal.Terminal
	publisher   *mq.Messaging
	unsubscribe func()
}

func New(dep Dependency) (*Module, error) {
	if err := dep.Validator.Validate(dep); err != nil {
		return nil, err
	}

	store := session.NewStore(dep.KVStore, dep.Config.GetString("session.namespace"))

	client := api.New(api.Config{
		BaseURL:   dep.Config.GetString("api.base_url"),
		Timeout:   dep.Config.GetSecond("api.timeout_seconds"),
		Transport: dep.Transport,
		Tokens:    store,
	}, dep.Instrument)

	scheduler := refresh.New(refresh.Dependency{
		Store:      store,
		API:        client,
		Interval:   dep.Config.GetMinute("session.refresh_interval_minutes"),
		Goroutine:  dep.Goroutine,
		Instrument: dep.Instrument,
	})

	uc := usecase.New(usecase.Dependency{
		API:        client,
		Session:    store,
		Storage:    dep.Storage,
		Encryptor:  dep.Encryptor,
		Validator:  dep.Validator,
		Config:     dep.Config,
		Clock:      dep.Clock,
		Instrument: dep.Instrument,
	})

	term := terminal.New(terminal.Dependency{
		In:      dep.In,
		Out:     dep.Out,
		Session: store,
		Signup:  flow.NewSignupFlow(client, store),
		Login:   flow.NewLoginFlow(client, store),
		Usecase: uc,
	})

	return &Module{
		store:     store,
		scheduler: scheduler,
		terminal:  term,
		publisher: mq.NewMessaging(dep.Messaging, dep.Goroutine, dep.Clock, dep.Instrument),
	}, nil
}

// Start restores the stored session and starts background refresh.
func (m *Module) Start(ctx context.Context) {
	m.unsubscribe = m.store.Subscribe(m.publisher.OnSessionChange(ctx))

	if err := m.store.Load(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to load stored session", "error", err)
	}

	m.scheduler.Start(ctx)
}

// Run blocks on the terminal until the user quits or ctx is done.
func (m *Module) Run(ctx context.Context) error {
	return m.terminal.Run(ctx)
}

// Stop cancels background refresh and stops publishing session changes.
func (m *Module) Stop() {
	m.scheduler.Stop()
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}
