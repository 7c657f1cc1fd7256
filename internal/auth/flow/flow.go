// Package flow implements the signup and login step machines.
//
// A flow owns its state and the short-lived secrets of the current attempt
// (TOTP material, the login session token). Events are applied with Dispatch.
// Only one network step may be pending per flow; every other event is
// rejected until it settles. Abandon (and BackToLogin) start a new epoch so a
// response that lands afterwards is dropped.
package flow

import (
	"context"
	"errors"
	"sync"

	"github.com/shandysiswandi/authflow/internal/auth/entity"
	"github.com/shandysiswandi/authflow/internal/auth/outbound/api"
	"go.uber.org/atomic"
)

var (
	// ErrSubmissionInFlight is returned for any event dispatched while a
	// network step is pending.
	ErrSubmissionInFlight = errors.New("flow: submission in flight")
	// ErrInvalidTransition is returned when the event does not apply to the current state.
	ErrInvalidTransition = errors.New("flow: invalid transition")
	// ErrFlowComplete is returned for events dispatched after authentication.
	ErrFlowComplete = errors.New("flow: already complete")
	// ErrAbandoned is returned to the caller whose response arrived after the
	// flow was abandoned.
	ErrAbandoned = errors.New("flow: abandoned")
)

const (
	MsgSignupFailed  = "Signup failed. Please try again."
	MsgLoginFailed   = "Login failed. Please check your credentials."
	MsgVerifyFailed  = "TOTP verification failed. Please try again."
	MsgSignupSuccess = "Account created successfully!"
	MsgLoginSuccess  = "Login successful!"
)

type signupAPI interface {
	SignupInit(ctx context.Context, in api.SignupInitRequest) (*entity.SignupInit, error)
	SignupVerify(ctx context.Context, in api.SignupVerifyRequest) (*entity.AuthResult, error)
}

type loginAPI interface {
	LoginInit(ctx context.Context, in api.LoginInitRequest) (*entity.LoginInit, error)
	LoginVerify(ctx context.Context, in api.LoginVerifyRequest) (*entity.AuthResult, error)
}

type sessionWriter interface {
	SetAuth(ctx context.Context, user entity.User, tokens entity.TokenPair) error
}

// SubmitCode carries a TOTP code. It is valid in both flows.
type SubmitCode struct {
	Code string
}

func (SubmitCode) isSignupEvent() {}
func (SubmitCode) isLoginEvent()  {}

// machine holds the bookkeeping shared by both flows. mu guards the state of
// the embedding flow and epoch; it is never held across a network call.
// commit is held while a verified response is written to the session, so an
// Abandon either lands before the write (and drops it) or after it.
type machine struct {
	mu     sync.Mutex
	commit sync.Mutex
	busy   *atomic.Bool
	epoch  uint64
}

func newMachine() machine {
	return machine{busy: atomic.NewBool(false)}
}

// Submitting reports whether a network step is pending.
func (m *machine) Submitting() bool {
	return m.busy.Load()
}

// begin claims the in-flight slot. Callers hold mu.
func (m *machine) begin() (uint64, bool) {
	if !m.busy.CompareAndSwap(false, true) {
		return 0, false
	}
	return m.epoch, true
}

// settle releases the slot when epoch is still current. Callers hold mu.
func (m *machine) settle(epoch uint64) bool {
	if m.epoch != epoch {
		return false
	}
	m.busy.Store(false)
	return true
}

// restart drops any pending step. Callers hold mu.
func (m *machine) restart() {
	m.epoch++
	m.busy.Store(false)
}
