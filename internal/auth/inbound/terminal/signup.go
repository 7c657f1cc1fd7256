package terminal

import (
	"context"
	"strings"

	"github.com/shandysiswandi/authflow/internal/auth/flow"
	"github.com/shandysiswandi/authflow/internal/auth/usecase"
	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
)

// runSignup walks the signup flow. It returns false when the input ended.
func (t *Terminal) runSignup(ctx context.Context) bool {
	if t.alreadySignedIn() {
		return true
	}
	t.signup.Abandon()

	for {
		switch st := t.signup.State().(type) {
		case flow.SignupForm:
			if st.Error != "" {
				t.printError(st.Error)
				answer, ok := t.prompt("try again? [Y/n] ")
				if !ok {
					return false
				}
				if strings.EqualFold(answer, "n") {
					t.signup.Abandon()
					return true
				}
			}

			ev, ok := t.readSignupForm()
			if !ok {
				return false
			}
			_, _ = t.signup.Dispatch(ctx, ev)

		case flow.SignupQrAndBackup:
			t.printEnrollment(st)
			answer, ok := t.prompt(`type "export" to save the backup codes, or press enter once they are stored: `)
			if !ok {
				return false
			}
			if strings.EqualFold(answer, "export") {
				t.exportBackupCodes(ctx, st)
				continue
			}
			_, _ = t.signup.Dispatch(ctx, flow.AcknowledgeBackupCodes{})

		case flow.SignupTotpVerify:
			t.printError(st.Error)
			code, ok := t.prompt("6-digit code (empty to cancel): ")
			if !ok {
				return false
			}
			if code == "" {
				t.signup.Abandon()
				t.println("signup cancelled")
				return true
			}
			_, _ = t.signup.Dispatch(ctx, flow.SubmitCode{Code: code})

		case flow.SignupAuthenticated:
			t.println(st.Message)
			t.printf("welcome, %s\n", st.User.Name)
			t.signup.Abandon()
			return true
		}
	}
}

func (t *Terminal) readSignupForm() (flow.SubmitSignup, bool) {
	var ev flow.SubmitSignup
	fields := []struct {
		label string
		dst   *string
	}{
		{label: "name: ", dst: &ev.Name},
		{label: "email: ", dst: &ev.Email},
		{label: "password: ", dst: &ev.Password},
		{label: "confirm password: ", dst: &ev.ConfirmPassword},
	}
	for _, f := range fields {
		v, ok := t.prompt(f.label)
		if !ok {
			return ev, false
		}
		*f.dst = v
	}
	return ev, true
}

func (t *Terminal) printEnrollment(st flow.SignupQrAndBackup) {
	t.printf("account created for %s\n", st.Email)
	t.println("scan this QR code (data URL) with your authenticator app:")
	t.println(st.QRCode)
	t.printf("or enter the secret manually: %s\n", st.Secret)
	t.println("backup codes (each works once):")
	for _, code := range st.BackupCodes {
		t.printf("  %s\n", code)
	}
}

func (t *Terminal) exportBackupCodes(ctx context.Context, st flow.SignupQrAndBackup) {
	out, err := t.uc.ExportBackupCodes(ctx, usecase.ExportBackupCodesInput{UserID: st.UserID, Codes: st.BackupCodes})
	if err != nil {
		t.printError(errorMessage(err))
		return
	}
	t.printf("backup codes saved to %s\n", out.Location)
}

func errorMessage(err error) string {
	return goerror.Message(err, err.Error())
}
