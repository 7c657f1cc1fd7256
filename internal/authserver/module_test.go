package authserver_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pqotp "github.com/pquerna/otp"
	"github.com/shandysiswandi/authflow/internal/auth/flow"
	"github.com/shandysiswandi/authflow/internal/auth/outbound/api"
	"github.com/shandysiswandi/authflow/internal/auth/session"
	"github.com/shandysiswandi/authflow/internal/authserver"
	"github.com/shandysiswandi/authflow/internal/pkg/clock"
	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
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

type testEnv struct {
	client *api.Client
	store  *session.Store
	totp   *otp.TOTP
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ins := instrument.NewNoop()
	clk := clock.New()
	uuid := uid.NewUUID()

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	sf, err := uid.NewSnowflake()
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	j, err := jwt.NewHS512(jwt.Config{
		Secret:    bytes.Repeat([]byte("k"), 64),
		Issuer:    "authserver",
		Audiences: []string{"authflow"},
		TTL:       15 * time.Minute,
		Clock:     clk,
		UUID:      uuid,
	})
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}

	r := router.NewRouter(router.Config{
		UUID:            uuid,
		JWT:             j,
		Instrument:      ins,
		PublicEndpoints: authserver.PublicEndpoints,
	})
	totp := otp.NewTOTP("authflow", 30, 1, pqotp.DigitsSix)

	if err := authserver.New(authserver.Dependency{
		KVStore:         kvstore.NewMemory(),
		Router:          r,
		Idempotency:     idempotency.NewMemory(),
		Validator:       v,
		HMAC:            hash.NewHMACSHA256("hmac-secret"),
		Bcrypt:          hash.NewBcrypt(4, ""),
		Argon2ID:        hash.NewArgon2id(""),
		MFAEncryptor:    mfa.NewAESGCMEncryptor(mfa.StaticKeyProvider{KeyBytes: bytes.Repeat([]byte{7}, 32)}),
		MFARecoveryCode: mfa.NewRecoveryCode(),
		UID:             sf,
		OID:             uuid,
		Totp:            totp,
		Clock:           clk,
		JWT:             j,
		Instrument:      ins,
		ChallengeTTL:    5 * time.Minute,
		RefreshTTL:      24 * time.Hour,
	}); err != nil {
		t.Fatalf("authserver: %v", err)
	}

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	store := session.NewStore(kvstore.NewMemory(), session.DefaultNamespace)

	return &testEnv{
		client: api.New(api.Config{BaseURL: srv.URL, Timeout: 5 * time.Second, Tokens: store}, ins),
		store:  store,
		totp:   totp,
	}
}

func (e *testEnv) code(t *testing.T, secret string) string {
	t.Helper()

	code, err := e.totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	return code
}

// invalidCode returns a well-formed code that is not accepted in the current
// validation window.
func (e *testEnv) invalidCode(t *testing.T, secret string) string {
	t.Helper()

	now := time.Now()
	valid := map[string]bool{}
	for _, at := range []time.Time{now.Add(-time.Minute), now.Add(-30 * time.Second), now, now.Add(30 * time.Second), now.Add(time.Minute)} {
		code, err := e.totp.GenerateCode(secret, at)
		if err != nil {
			t.Fatalf("generate code: %v", err)
		}
		valid[code] = true
	}
	for _, c := range []string{"000000", "111111", "222222", "333333", "444444", "555555"} {
		if !valid[c] {
			return c
		}
	}
	t.Fatalf("no invalid code found")
	return ""
}

// signup enrolls a user through the signup flow and returns the enrollment
// material shown to the user.
func (e *testEnv) signup(t *testing.T, ctx context.Context, email string) flow.SignupQrAndBackup {
	t.Helper()

	f := flow.NewSignupFlow(e.client, e.store)

	st, err := f.Dispatch(ctx, flow.SubmitSignup{
		Name:            "Ada",
		Email:           email,
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})
	if err != nil {
		t.Fatalf("submit signup: %v", err)
	}
	enroll, ok := st.(flow.SignupQrAndBackup)
	if !ok {
		t.Fatalf("expected qr and backup state, got %T", st)
	}

	if _, err := f.Dispatch(ctx, flow.AcknowledgeBackupCodes{}); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}

	st, err = f.Dispatch(ctx, flow.SubmitCode{Code: e.code(t, enroll.Secret)})
	if err != nil {
		t.Fatalf("submit code: %v", err)
	}
	if _, ok := st.(flow.SignupAuthenticated); !ok {
		t.Fatalf("expected authenticated, got %T", st)
	}

	return enroll
}

func TestSignupAndSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// Arrange & Act
	enroll := env.signup(t, ctx, "ada@example.com")

	// Assert
	if len(enroll.BackupCodes) != 10 || enroll.QRCode == "" || enroll.UserID == 0 {
		t.Fatalf("unexpected enrollment %+v", enroll)
	}
	if !env.store.IsAuthenticated() {
		t.Fatalf("expected authenticated store")
	}

	t.Run("Profile", func(t *testing.T) {
		user, err := env.client.Profile(ctx)
		if err != nil {
			t.Fatalf("profile: %v", err)
		}
		if user.Email != "ada@example.com" || user.Name != "Ada" {
			t.Fatalf("unexpected user %+v", user)
		}
	})

	t.Run("SignupAgainConflicts", func(t *testing.T) {
		_, err := env.client.SignupInit(ctx, api.SignupInitRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
		if status, _ := statusOf(err); status != http.StatusConflict {
			t.Fatalf("expected 409, got %v", err)
		}
		if goerror.Message(err, "") != "Email already registered" {
			t.Fatalf("unexpected message %q", goerror.Message(err, ""))
		}
	})

	t.Run("RefreshRotatesAndDetectsReuse", func(t *testing.T) {
		// Arrange
		old := env.store.RefreshToken()

		// Act
		pair, err := env.client.RefreshToken(ctx, api.RefreshTokenRequest{RefreshToken: old})
		if err != nil {
			t.Fatalf("refresh: %v", err)
		}
		_, reuseErr := env.client.RefreshToken(ctx, api.RefreshTokenRequest{RefreshToken: old})
		_, familyErr := env.client.RefreshToken(ctx, api.RefreshTokenRequest{RefreshToken: pair.RefreshToken})

		// Assert
		if pair.RefreshToken == old || !pair.IsComplete() {
			t.Fatalf("expected a new pair, got %+v", pair)
		}
		if status, _ := statusOf(reuseErr); status != http.StatusForbidden {
			t.Fatalf("expected 403 on reuse, got %v", reuseErr)
		}
		if status, _ := statusOf(familyErr); status != http.StatusUnauthorized {
			t.Fatalf("expected rotated token revoked, got %v", familyErr)
		}
	})

	t.Run("LogoutUnknownToken", func(t *testing.T) {
		msg, err := env.client.Logout(ctx, api.LogoutRequest{RefreshToken: "unknown"})
		if err != nil || msg != "Logged out successfully" {
			t.Fatalf("unexpected logout result %q %v", msg, err)
		}
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	enroll := env.signup(t, ctx, "bob@example.com")
	if err := env.store.ClearAuth(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	t.Run("WrongPassword", func(t *testing.T) {
		f := flow.NewLoginFlow(env.client, env.store)

		st, err := f.Dispatch(ctx, flow.SubmitLogin{Email: "bob@example.com", Password: "wrong-pass"})

		if err == nil {
			t.Fatalf("expected error")
		}
		form, ok := st.(flow.LoginForm)
		if !ok || form.Error != "Invalid email or password" {
			t.Fatalf("unexpected state %#v", st)
		}
	})

	t.Run("WrongCodeThenTOTP", func(t *testing.T) {
		// Arrange
		f := flow.NewLoginFlow(env.client, env.store)
		if _, err := f.Dispatch(ctx, flow.SubmitLogin{Email: "bob@example.com", Password: "secret1"}); err != nil {
			t.Fatalf("submit login: %v", err)
		}

		// Act
		wrong, wrongErr := f.Dispatch(ctx, flow.SubmitCode{Code: env.invalidCode(t, enroll.Secret)})
		st, err := f.Dispatch(ctx, flow.SubmitCode{Code: env.code(t, enroll.Secret)})

		// Assert
		if wrongErr == nil {
			t.Fatalf("expected wrong code to fail")
		}
		if v, ok := wrong.(flow.LoginTotpVerify); !ok || v.Error != "Invalid session or code" {
			t.Fatalf("unexpected state %#v", wrong)
		}
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		auth, ok := st.(flow.LoginAuthenticated)
		if !ok || auth.Message != "Login successful" || auth.User.Email != "bob@example.com" {
			t.Fatalf("unexpected state %#v", st)
		}
		if !env.store.IsAuthenticated() {
			t.Fatalf("expected authenticated store")
		}
	})

	t.Run("BackupCodeIsSingleUse", func(t *testing.T) {
		login := func() error {
			init, err := env.client.LoginInit(ctx, api.LoginInitRequest{Email: "bob@example.com", Password: "secret1"})
			if err != nil {
				t.Fatalf("login init: %v", err)
			}
			_, err = env.client.LoginVerify(ctx, api.LoginVerifyRequest{
				SessionToken: init.SessionToken,
				TOTPCode:     enroll.BackupCodes[0],
			})
			return err
		}

		// Act
		firstErr := login()
		secondErr := login()

		// Assert
		if firstErr != nil {
			t.Fatalf("first backup code login: %v", firstErr)
		}
		if status, _ := statusOf(secondErr); status != http.StatusUnauthorized {
			t.Fatalf("expected reused backup code to fail, got %v", secondErr)
		}
	})

	t.Run("ChallengeIsSingleUse", func(t *testing.T) {
		init, err := env.client.LoginInit(ctx, api.LoginInitRequest{Email: "bob@example.com", Password: "secret1"})
		if err != nil {
			t.Fatalf("login init: %v", err)
		}
		req := api.LoginVerifyRequest{SessionToken: init.SessionToken, TOTPCode: env.code(t, enroll.Secret)}

		if _, err := env.client.LoginVerify(ctx, req); err != nil {
			t.Fatalf("verify: %v", err)
		}
		_, err = env.client.LoginVerify(ctx, req)
		if status, _ := statusOf(err); status != http.StatusUnauthorized {
			t.Fatalf("expected 401 on replay, got %v", err)
		}
	})
}

func TestSignupVerifyWrongCode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	init, err := env.client.SignupInit(ctx, api.SignupInitRequest{Name: "Cy", Email: "cy@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("signup init: %v", err)
	}

	t.Run("PendingUserCannotLogin", func(t *testing.T) {
		_, err := env.client.LoginInit(ctx, api.LoginInitRequest{Email: "cy@example.com", Password: "secret1"})
		if status, _ := statusOf(err); status != http.StatusForbidden {
			t.Fatalf("expected 403, got %v", err)
		}
	})

	t.Run("UnknownUser", func(t *testing.T) {
		_, err := env.client.SignupVerify(ctx, api.SignupVerifyRequest{UserID: init.UserID + 1, TOTPCode: "123456"})
		if status, _ := statusOf(err); status != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %v", err)
		}
	})

	t.Run("MalformedCode", func(t *testing.T) {
		_, err := env.client.SignupVerify(ctx, api.SignupVerifyRequest{UserID: init.UserID, TOTPCode: "12ab"})
		if status, _ := statusOf(err); status != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %v", err)
		}
	})

	t.Run("VerifyTwice", func(t *testing.T) {
		code := env.code(t, init.TOTP.Secret)
		if _, err := env.client.SignupVerify(ctx, api.SignupVerifyRequest{UserID: init.UserID, TOTPCode: code}); err != nil {
			t.Fatalf("verify: %v", err)
		}

		_, err := env.client.SignupVerify(ctx, api.SignupVerifyRequest{UserID: init.UserID, TOTPCode: code})
		if status, _ := statusOf(err); status != http.StatusConflict {
			t.Fatalf("expected 409, got %v", err)
		}
	})
}

func statusOf(err error) (int, bool) {
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		return 0, false
	}
	return gerr.Status()
}
