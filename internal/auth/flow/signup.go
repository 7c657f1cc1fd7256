package flow

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/authflow/internal/auth/entity"
	"github.com/shandysiswandi/authflow/internal/auth/outbound/api"
	"github.com/shandysiswandi/authflow/internal/auth/validation"
	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
)

// SignupState is one of SignupForm, SignupQrAndBackup, SignupTotpVerify or
// SignupAuthenticated.
type SignupState interface {
	isSignupState()
}

type SignupForm struct {
	Error string
}

// SignupQrAndBackup shows the enrollment material exactly once.
type SignupQrAndBackup struct {
	UserID      int64
	Email       string
	QRCode      string
	Secret      string
	BackupCodes []string
}

type SignupTotpVerify struct {
	UserID int64
	Error  string
}

type SignupAuthenticated struct {
	User    entity.User
	Message string
}

func (SignupForm) isSignupState()          {}
func (SignupQrAndBackup) isSignupState()   {}
func (SignupTotpVerify) isSignupState()    {}
func (SignupAuthenticated) isSignupState() {}

// SignupEvent is one of SubmitSignup, AcknowledgeBackupCodes or SubmitCode.
type SignupEvent interface {
	isSignupEvent()
}

type SubmitSignup struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// AcknowledgeBackupCodes confirms the user saved the backup codes.
type AcknowledgeBackupCodes struct{}

func (SubmitSignup) isSignupEvent()           {}
func (AcknowledgeBackupCodes) isSignupEvent() {}

// SignupFlow walks a new user through account creation and TOTP enrollment.
type SignupFlow struct {
	machine

	api     signupAPI
	session sessionWriter

	state   SignupState
	pending *entity.SignupInit
}

func NewSignupFlow(api signupAPI, session sessionWriter) *SignupFlow {
	return &SignupFlow{
		machine: newMachine(),
		api:     api,
		session: session,
		state:   SignupForm{},
	}
}

// State returns the current state.
func (f *SignupFlow) State() SignupState {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state
}

// Abandon resets the flow to the form and forgets the current attempt.
func (f *SignupFlow) Abandon() {
	f.commit.Lock()
	defer f.commit.Unlock()
	f.mu.Lock()
	defer f.mu.Unlock()

	f.restart()
	f.state = SignupForm{}
	f.pending = nil
}

// Dispatch applies ev to the current state. Events that need the network
// return once the response has been applied.
func (f *SignupFlow) Dispatch(ctx context.Context, ev SignupEvent) (SignupState, error) {
	f.mu.Lock()
	state, step, err := f.apply(ev)
	f.mu.Unlock()

	if step == nil {
		return state, err
	}
	return step(ctx)
}

type signupStep func(ctx context.Context) (SignupState, error)

// apply runs with mu held and never blocks.
func (f *SignupFlow) apply(ev SignupEvent) (SignupState, signupStep, error) {
	if f.Submitting() {
		return f.state, nil, ErrSubmissionInFlight
	}

	switch st := f.state.(type) {
	case SignupAuthenticated:
		return st, nil, ErrFlowComplete

	case SignupForm:
		in, ok := ev.(SubmitSignup)
		if !ok {
			return st, nil, ErrInvalidTransition
		}
		if err := validation.ValidateSignupForm(validation.SignupForm(in)); err != nil {
			f.state = SignupForm{Error: goerror.Message(err, "")}
			return f.state, nil, err
		}
		epoch, _ := f.begin()
		return st, func(ctx context.Context) (SignupState, error) {
			return f.submitSignup(ctx, in, epoch)
		}, nil

	case SignupQrAndBackup:
		if _, ok := ev.(AcknowledgeBackupCodes); !ok {
			return st, nil, ErrInvalidTransition
		}
		if f.pending != nil {
			f.pending.TOTP = entity.TOTPMaterial{}
		}
		f.state = SignupTotpVerify{UserID: st.UserID}
		return f.state, nil, nil

	case SignupTotpVerify:
		in, ok := ev.(SubmitCode)
		if !ok {
			return st, nil, ErrInvalidTransition
		}
		code, err := validation.ValidateTOTPCode(in.Code)
		if err != nil {
			f.state = SignupTotpVerify{UserID: st.UserID, Error: goerror.Message(err, "")}
			return f.state, nil, err
		}
		epoch, _ := f.begin()
		return st, func(ctx context.Context) (SignupState, error) {
			return f.submitCode(ctx, st.UserID, code, epoch)
		}, nil
	}

	return f.state, nil, ErrInvalidTransition
}

func (f *SignupFlow) submitSignup(ctx context.Context, in SubmitSignup, epoch uint64) (SignupState, error) {
	res, err := f.api.SignupInit(ctx, api.SignupInitRequest{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
	})

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.settle(epoch) {
		return f.state, ErrAbandoned
	}

	if err != nil {
		f.state = SignupForm{Error: goerror.Message(err, MsgSignupFailed)}
		return f.state, err
	}

	f.pending = res
	f.state = SignupQrAndBackup{
		UserID:      res.UserID,
		Email:       res.Email,
		QRCode:      res.TOTP.QRCode,
		Secret:      res.TOTP.Secret,
		BackupCodes: slices.Clone(res.TOTP.BackupCodes),
	}

	return f.state, nil
}

func (f *SignupFlow) submitCode(ctx context.Context, userID int64, code string, epoch uint64) (SignupState, error) {
	res, err := f.api.SignupVerify(ctx, api.SignupVerifyRequest{UserID: userID, TOTPCode: code})
	if err != nil {
		return f.verifyFailed(epoch, userID, goerror.Message(err, MsgVerifyFailed), err)
	}

	f.commit.Lock()
	defer f.commit.Unlock()

	if state, ok := f.current(epoch); !ok {
		return state, ErrAbandoned
	}

	// The response is committed from here on. The slot stays claimed until
	// the session is written.
	if err := f.session.SetAuth(ctx, res.User, res.Tokens); err != nil {
		if errors.Is(err, goerror.ErrCorruptSession) {
			return f.verifyFailed(epoch, userID, MsgVerifyFailed, err)
		}
		slog.ErrorContext(ctx, "failed to persist session after signup", "user_id", res.User.ID, "error", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.settle(epoch) {
		return f.state, ErrAbandoned
	}

	msg := res.Message
	if msg == "" {
		msg = MsgSignupSuccess
	}
	f.pending = nil
	f.state = SignupAuthenticated{User: res.User, Message: msg}

	return f.state, nil
}

func (f *SignupFlow) current(epoch uint64) (SignupState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state, f.epoch == epoch
}

func (f *SignupFlow) verifyFailed(epoch uint64, userID int64, msg string, err error) (SignupState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.settle(epoch) {
		return f.state, ErrAbandoned
	}

	f.state = SignupTotpVerify{UserID: userID, Error: msg}
	return f.state, err
}
