package flow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/authflow/internal/auth/entity"
	"github.com/shandysiswandi/authflow/internal/auth/outbound/api"
	"github.com/shandysiswandi/authflow/internal/auth/validation"
	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
)

// LoginState is one of LoginForm, LoginTotpVerify or LoginAuthenticated.
type LoginState interface {
	isLoginState()
}

type LoginForm struct {
	Error string
}

// LoginTotpVerify waits for the TOTP code. The session token from the first
// step stays inside the flow.
type LoginTotpVerify struct {
	Error string
}

type LoginAuthenticated struct {
	User    entity.User
	Message string
}

func (LoginForm) isLoginState()          {}
func (LoginTotpVerify) isLoginState()    {}
func (LoginAuthenticated) isLoginState() {}

// LoginEvent is one of SubmitLogin, SubmitCode or BackToLogin.
type LoginEvent interface {
	isLoginEvent()
}

type SubmitLogin struct {
	Email    string
	Password string
}

// BackToLogin leaves the TOTP step. It is accepted while a verify call is
// pending, whose result is then dropped.
type BackToLogin struct{}

func (SubmitLogin) isLoginEvent() {}
func (BackToLogin) isLoginEvent() {}

// LoginFlow authenticates an existing user with password and TOTP.
type LoginFlow struct {
	machine

	api     loginAPI
	session sessionWriter

	state        LoginState
	sessionToken string
}

func NewLoginFlow(api loginAPI, session sessionWriter) *LoginFlow {
	return &LoginFlow{
		machine: newMachine(),
		api:     api,
		session: session,
		state:   LoginForm{},
	}
}

// State returns the current state.
func (f *LoginFlow) State() LoginState {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state
}

// Abandon resets the flow to the form and forgets the session token.
func (f *LoginFlow) Abandon() {
	f.commit.Lock()
	defer f.commit.Unlock()
	f.mu.Lock()
	defer f.mu.Unlock()

	f.restart()
	f.state = LoginForm{}
	f.sessionToken = ""
}

// Dispatch applies ev to the current state.
func (f *LoginFlow) Dispatch(ctx context.Context, ev LoginEvent) (LoginState, error) {
	if _, back := ev.(BackToLogin); back {
		f.commit.Lock()
		defer f.commit.Unlock()
	}

	f.mu.Lock()
	state, step, err := f.apply(ev)
	f.mu.Unlock()

	if step == nil {
		return state, err
	}
	return step(ctx)
}

type loginStep func(ctx context.Context) (LoginState, error)

func (f *LoginFlow) apply(ev LoginEvent) (LoginState, loginStep, error) {
	if _, back := ev.(BackToLogin); back {
		if _, ok := f.state.(LoginTotpVerify); ok {
			f.restart()
			f.sessionToken = ""
			f.state = LoginForm{}
			return f.state, nil, nil
		}
	}

	if f.Submitting() {
		return f.state, nil, ErrSubmissionInFlight
	}

	switch st := f.state.(type) {
	case LoginAuthenticated:
		return st, nil, ErrFlowComplete

	case LoginForm:
		in, ok := ev.(SubmitLogin)
		if !ok {
			return st, nil, ErrInvalidTransition
		}
		if err := validation.ValidateLoginForm(validation.LoginForm(in)); err != nil {
			f.state = LoginForm{Error: goerror.Message(err, "")}
			return f.state, nil, err
		}
		epoch, _ := f.begin()
		return st, func(ctx context.Context) (LoginState, error) {
			return f.submitLogin(ctx, in, epoch)
		}, nil

	case LoginTotpVerify:
		in, ok := ev.(SubmitCode)
		if !ok {
			return st, nil, ErrInvalidTransition
		}
		code, err := validation.ValidateTOTPCode(in.Code)
		if err != nil {
			f.state = LoginTotpVerify{Error: goerror.Message(err, "")}
			return f.state, nil, err
		}
		epoch, _ := f.begin()
		token := f.sessionToken
		return st, func(ctx context.Context) (LoginState, error) {
			return f.submitCode(ctx, token, code, epoch)
		}, nil
	}

	return f.state, nil, ErrInvalidTransition
}

func (f *LoginFlow) submitLogin(ctx context.Context, in SubmitLogin, epoch uint64) (LoginState, error) {
	res, err := f.api.LoginInit(ctx, api.LoginInitRequest{Email: in.Email, Password: in.Password})

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.settle(epoch) {
		return f.state, ErrAbandoned
	}

	if err != nil {
		f.state = LoginForm{Error: goerror.Message(err, MsgLoginFailed)}
		return f.state, err
	}

	f.sessionToken = res.SessionToken
	f.state = LoginTotpVerify{}

	return f.state, nil
}

func (f *LoginFlow) submitCode(ctx context.Context, token, code string, epoch uint64) (LoginState, error) {
	res, err := f.api.LoginVerify(ctx, api.LoginVerifyRequest{SessionToken: token, TOTPCode: code})
	if err != nil {
		return f.verifyFailed(epoch, goerror.Message(err, MsgVerifyFailed), err)
	}

	f.commit.Lock()
	defer f.commit.Unlock()

	if state, ok := f.current(epoch); !ok {
		return state, ErrAbandoned
	}

	if err := f.session.SetAuth(ctx, res.User, res.Tokens); err != nil {
		if errors.Is(err, goerror.ErrCorruptSession) {
			return f.verifyFailed(epoch, MsgVerifyFailed, err)
		}
		slog.ErrorContext(ctx, "failed to persist session after login", "user_id", res.User.ID, "error", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.settle(epoch) {
		return f.state, ErrAbandoned
	}

	msg := res.Message
	if msg == "" {
		msg = MsgLoginSuccess
	}
	f.sessionToken = ""
	f.state = LoginAuthenticated{User: res.User, Message: msg}

	return f.state, nil
}

func (f *LoginFlow) current(epoch uint64) (LoginState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state, f.epoch == epoch
}

func (f *LoginFlow) verifyFailed(epoch uint64, msg string, err error) (LoginState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.settle(epoch) {
		return f.state, ErrAbandoned
	}

	f.state = LoginTotpVerify{Error: msg}
	return f.state, err
}
