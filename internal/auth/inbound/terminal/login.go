package terminal

import (
	"context"
	"strings"

	"github.com/shandysiswandi/authflow/internal/auth/flow"
)

// runLogin walks the login flow. It returns false when the input ended.
func (t *Terminal) runLogin(ctx context.Context) bool {
	if t.alreadySignedIn() {
		return true
	}
	t.login.Abandon()

	for {
		switch st := t.login.State().(type) {
		case flow.LoginForm:
			if st.Error != "" {
				t.printError(st.Error)
				answer, ok := t.prompt("try again? [Y/n] ")
				if !ok {
					return false
				}
				if strings.EqualFold(answer, "n") {
					t.login.Abandon()
					return true
				}
			}

			email, ok := t.prompt("email: ")
			if !ok {
				return false
			}
			password, ok := t.prompt("password: ")
			if !ok {
				return false
			}
			_, _ = t.login.Dispatch(ctx, flow.SubmitLogin{Email: email, Password: password})

		case flow.LoginTotpVerify:
			t.printError(st.Error)
			code, ok := t.prompt(`6-digit code ("back" to start over, empty to cancel): `)
			if !ok {
				return false
			}
			switch {
			case code == "":
				t.login.Abandon()
				t.println("login cancelled")
				return true
			case strings.EqualFold(code, "back"):
				_, _ = t.login.Dispatch(ctx, flow.BackToLogin{})
			default:
				_, _ = t.login.Dispatch(ctx, flow.SubmitCode{Code: code})
			}

		case flow.LoginAuthenticated:
			t.println(st.Message)
			t.printf("welcome back, %s\n", st.User.Name)
			t.login.Abandon()
			return true
		}
	}
}
