// Package terminal drives the signup and login flows from a line-oriented
// console.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shandysiswandi/authflow/internal/auth/entity"
	"github.com/shandysiswandi/authflow/internal/auth/flow"
	"github.com/shandysiswandi/authflow/internal/auth/usecase"
)

type uc interface {
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*entity.User, error)
	ExportBackupCodes(ctx context.Context, in usecase.ExportBackupCodesInput) (*usecase.ExportBackupCodesOutput, error)
}

type sessionView interface {
	Loaded() <-chan struct{}
	Snapshot() entity.Session
}

type signupFlow interface {
	State() flow.SignupState
	Dispatch(ctx context.Context, ev flow.SignupEvent) (flow.SignupState, error)
	Abandon()
}

type loginFlow interface {
	State() flow.LoginState
	Dispatch(ctx context.Context, ev flow.LoginEvent) (flow.LoginState, error)
	Abandon()
}

type Dependency struct {
	In      io.Reader
	Out     io.Writer
	Session sessionView
	Signup  signupFlow
	Login   loginFlow
	Usecase uc
}

// Terminal reads one command per line until EOF or "quit".
type Terminal struct {
	in      *bufio.Scanner
	out     io.Writer
	session sessionView
	signup  signupFlow
	login   loginFlow
	uc      uc
}

func New(dep Dependency) *Terminal {
	return &Terminal{
		in:      bufio.NewScanner(dep.In),
		out:     dep.Out,
		session: dep.Session,
		signup:  dep.Signup,
		login:   dep.Login,
		uc:      dep.Usecase,
	}
}

const helpText = `commands:
  signup   create an account protected by an authenticator app
  login    sign in with email, password and a TOTP code
  logout   sign out and revoke the refresh token
  status   show the local session
  whoami   ask the server who the access token belongs to
  export   how to save backup codes
  help     show this help
  quit     leave
`

// Run blocks until the input ends, "quit" is entered, or ctx is done. Nothing
// is written before the stored session has been loaded.
func (t *Terminal) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.session.Loaded():
	}

	defer t.abandon()

	t.printStatus()
	t.println(`type "help" for commands`)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, ok := t.prompt("> ")
		if !ok {
			return nil
		}

		switch strings.ToLower(line) {
		case "":
		case "signup":
			if !t.runSignup(ctx) {
				return nil
			}
		case "login":
			if !t.runLogin(ctx) {
				return nil
			}
		case "logout":
			t.runLogout(ctx)
		case "status":
			t.printStatus()
		case "whoami":
			t.runWhoAmI(ctx)
		case "export":
			t.println("backup codes are shown once during signup; type \"export\" at that step to save them")
		case "help":
			t.printf("%s", helpText)
		case "quit", "exit":
			return nil
		default:
			t.printf("unknown command %q, type \"help\"\n", line)
		}
	}
}

func (t *Terminal) abandon() {
	t.signup.Abandon()
	t.login.Abandon()
}

// prompt reads a trimmed line. ok is false at end of input.
func (t *Terminal) prompt(label string) (string, bool) {
	t.printf("%s", label)
	if !t.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(t.in.Text()), true
}

func (t *Terminal) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(t.out, format, args...)
}

func (t *Terminal) println(s string) {
	_, _ = fmt.Fprintln(t.out, s)
}

func (t *Terminal) printError(msg string) {
	if msg != "" {
		t.printf("error: %s\n", msg)
	}
}

func (t *Terminal) printStatus() {
	sess := t.session.Snapshot()
	if !sess.IsAuthenticated() {
		t.println("not signed in")
		return
	}
	t.printf("signed in as %s <%s>\n", sess.User.Name, sess.User.Email)
}

func (t *Terminal) alreadySignedIn() bool {
	if sess := t.session.Snapshot(); sess.IsAuthenticated() {
		t.printf("already signed in as %s, log out first\n", sess.User.Email)
		return true
	}
	return false
}

func (t *Terminal) runLogout(ctx context.Context) {
	if err := t.uc.Logout(ctx); err != nil {
		t.printError(errorMessage(err))
		return
	}
	t.println("signed out")
}

func (t *Terminal) runWhoAmI(ctx context.Context) {
	user, err := t.uc.Profile(ctx)
	if err != nil {
		t.printError(errorMessage(err))
		return
	}
	t.printf("%s <%s> id=%s\n", user.Name, user.Email, user.ID)
}
