// Package refresh rotates the session tokens on a fixed interval while the
// session store holds an authenticated session.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shandysiswandi/authflow/internal/auth/entity"
	"github.com/shandysiswandi/authflow/internal/auth/outbound/api"
	"github.com/shandysiswandi/authflow/internal/pkg/goroutine"
	"github.com/shandysiswandi/authflow/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// DefaultInterval is shorter than the access token lifetime so rotation
// happens before expiry.
const DefaultInterval = 14 * time.Minute

const (
	resultSuccess   = "success"
	resultFailure   = "failure"
	resultDiscarded = "discarded"
)

// ErrNoRefreshToken is logged when a tick finds no refresh token to send.
var ErrNoRefreshToken = errors.New("refresh: no refresh token")

type sessionStore interface {
	Subscribe(fn func(entity.SessionChange)) func()
	IsAuthenticated() bool
	RefreshToken() string
	UpdateTokens(ctx context.Context, tokens entity.TokenPair) error
	ClearAuth(ctx context.Context) error
}

type tokenRefresher interface {
	RefreshToken(ctx context.Context, in api.RefreshTokenRequest) (*entity.TokenPair, error)
}

// Ticker is the subset of *time.Ticker the scheduler needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

type Dependency struct {
	Store      sessionStore
	API        tokenRefresher
	Interval   time.Duration
	Goroutine  *goroutine.Manager
	Instrument instrument.Instrumentation
	NewTicker  func(time.Duration) Ticker
}

// Scheduler runs at most one refresh loop at a time. Every loop carries a
// generation number; results from an older generation are dropped.
type Scheduler struct {
	store     sessionStore
	api       tokenRefresher
	interval  time.Duration
	goroutine *goroutine.Manager
	ins       instrument.Instrumentation
	newTicker func(time.Duration) Ticker
	counter   metric.Int64Counter

	mu          sync.Mutex
	parent      context.Context
	generation  uint64
	cancel      context.CancelFunc
	unsubscribe func()
}

func New(dep Dependency) *Scheduler {
	interval := dep.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	newTicker := dep.NewTicker
	if newTicker == nil {
		newTicker = NewTimeTicker
	}

	counter, err := dep.Instrument.Meter("auth.refresh").Int64Counter(
		"auth.session.refresh",
		metric.WithDescription("Number of background token refresh attempts"),
	)
	if err != nil {
		slog.Error("failed to create session refresh counter", "error", err)
	}

	return &Scheduler{
		store:     dep.Store,
		api:       dep.API,
		interval:  interval,
		goroutine: dep.Goroutine,
		ins:       dep.Instrument,
		newTicker: newTicker,
		counter:   counter,
	}
}

// Start subscribes to the store and starts the loop when the session is
// already authenticated. Calling Start twice has no extra effect.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.mu.Unlock()
		return
	}
	s.parent = ctx
	s.mu.Unlock()

	unsubscribe := s.store.Subscribe(s.onChange)

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	if s.store.IsAuthenticated() {
		s.arm()
	}
}

// Stop unsubscribes and cancels the live loop. A pending tick has no effect.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	s.disarm()
}

// Active reports whether a refresh loop is running.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cancel != nil
}

func (s *Scheduler) onChange(change entity.SessionChange) {
	switch change.Kind {
	case entity.ChangeCleared:
		s.disarm()
	case entity.ChangeRestored, entity.ChangeAuthenticated, entity.ChangeTokensRotated:
		if change.Session.IsAuthenticated() {
			s.arm()
		} else {
			s.disarm()
		}
	}
}

// arm starts a loop unless one is already running.
func (s *Scheduler) arm() {
	s.mu.Lock()
	if s.cancel != nil || s.parent == nil {
		s.mu.Unlock()
		return
	}

	s.generation++
	gen := s.generation
	ctx, cancel := context.WithCancel(s.parent)
	s.cancel = cancel
	ticker := s.newTicker(s.interval)
	s.mu.Unlock()

	slog.DebugContext(ctx, "session refresh scheduled", "interval", s.interval.String())

	started := s.goroutine.Go(ctx, func(ctx context.Context) error {
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C():
				s.tick(ctx, gen)
			}
		}
	})
	if !started {
		ticker.Stop()
		s.disarm()
		slog.ErrorContext(ctx, "failed to schedule session refresh, waiting for the next session change")
	}
}

func (s *Scheduler) disarm() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.generation++
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (s *Scheduler) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cancel != nil && s.generation == gen
}

func (s *Scheduler) tick(ctx context.Context, gen uint64) {
	ctx, span := s.ins.Tracer("auth.refresh").Start(ctx, "Tick")
	defer span.End()

	if !s.current(gen) {
		s.record(ctx, resultDiscarded)
		return
	}

	refreshToken := s.store.RefreshToken()
	if refreshToken == "" {
		slog.WarnContext(ctx, "failed to refresh session", "error", ErrNoRefreshToken)
		s.fail(ctx, ErrNoRefreshToken)
		return
	}

	pair, err := s.api.RefreshToken(ctx, api.RefreshTokenRequest{RefreshToken: refreshToken})
	// A canceled loop means shutdown or sign-out, not a rejected token.
	if ctx.Err() != nil || !s.current(gen) {
		s.record(ctx, resultDiscarded)
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.WarnContext(ctx, "failed to refresh session, signing out", "error", err)
		s.fail(ctx, err)
		return
	}

	if err := s.store.UpdateTokens(ctx, *pair); err != nil {
		span.RecordError(err)
		slog.ErrorContext(ctx, "failed to store rotated tokens", "error", err)
		s.record(ctx, resultFailure)
		return
	}

	s.record(ctx, resultSuccess)
}

func (s *Scheduler) fail(ctx context.Context, cause error) {
	s.record(ctx, resultFailure)
	if err := s.store.ClearAuth(context.WithoutCancel(ctx)); err != nil {
		slog.ErrorContext(ctx, "failed to clear session after refresh failure", "cause", cause, "error", err)
	}
}

func (s *Scheduler) record(ctx context.Context, result string) {
	if s.counter == nil {
		return
	}
	s.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
