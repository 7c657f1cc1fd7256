package terminal

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/authflow/internal/auth/entity"
	"github.com/shandysiswandi/authflow/internal/auth/flow"
	"github.com/shandysiswandi/authflow/internal/auth/outbound/api"
	"github.com/shandysiswandi/authflow/internal/auth/session"
	"github.com/shandysiswandi/authflow/internal/auth/usecase"
	"github.com/shandysiswandi/authflow/internal/pkg/config"
	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
	"github.com/shandysiswandi/authflow/internal/pkg/instrument"
	"github.com/shandysiswandi/authflow/internal/pkg/kvstore"
	"github.com/shandysiswandi/authflow/internal/pkg/storage"
	"github.com/shandysiswandi/authflow/internal/pkg/validator"
)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.UnixMilli(1000) }

type fakeBackend struct {
	logoutCalls int
}

func (f *fakeBackend) SignupInit(_ context.Context, in api.SignupInitRequest) (*entity.SignupInit, error) {
	return &entity.SignupInit{
		UserID: 5,
		Email:  in.Email,
		TOTP:   entity.TOTPMaterial{QRCode: "data:image/png;base64,QR", Secret: "SECRET", BackupCodes: []string{"code-1", "code-2"}},
	}, nil
}

func (f *fakeBackend) SignupVerify(_ context.Context, in api.SignupVerifyRequest) (*entity.AuthResult, error) {
	if in.TOTPCode != "123456" {
		return nil, goerror.NewRequest(http.StatusUnauthorized, "Invalid TOTP code")
	}
	return &entity.AuthResult{
		User:   entity.User{ID: "5", Email: "jane@example.com", Name: "Jane"},
		Tokens: entity.TokenPair{AccessToken: "at", RefreshToken: "rt"},
	}, nil
}

func (f *fakeBackend) LoginInit(_ context.Context, in api.LoginInitRequest) (*entity.LoginInit, error) {
	if in.Password != "secret1" {
		return nil, goerror.NewRequest(http.StatusUnauthorized, "Invalid credentials")
	}
	return &entity.LoginInit{SessionToken: "st"}, nil
}

func (f *fakeBackend) LoginVerify(context.Context, api.LoginVerifyRequest) (*entity.AuthResult, error) {
	return &entity.AuthResult{
		Message: "Login successful",
		User:    entity.User{ID: "5", Email: "jane@example.com", Name: "Jane"},
		Tokens:  entity.TokenPair{AccessToken: "at", RefreshToken: "rt"},
	}, nil
}

func (f *fakeBackend) Logout(context.Context, api.LogoutRequest) (string, error) {
	f.logoutCalls++
	return "ok", nil
}

func (f *fakeBackend) Profile(context.Context) (*entity.User, error) {
	return &entity.User{ID: "5", Email: "jane@example.com", Name: "Jane"}, nil
}

type fixture struct {
	store   *session.Store
	backend *fakeBackend
	out     *bytes.Buffer
	dir     string
}

func run(t *testing.T, input string) *fixture {
	t.Helper()

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	cfg, err := config.NewViperFromBytes("yaml", []byte("export:\n  bucket: out\n"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	f := &fixture{
		store:   session.NewStore(kvstore.NewMemory(), ""),
		backend: &fakeBackend{},
		out:     &bytes.Buffer{},
		dir:     t.TempDir(),
	}
	if err := f.store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	uc := usecase.New(usecase.Dependency{
		API:        f.backend,
		Session:    f.store,
		Storage:    storage.NewFile(storage.FileOptions{Dir: f.dir}),
		Validator:  v,
		Config:     cfg,
		Clock:      fixedClock{},
		Instrument: instrument.NewNoop(),
	})

	term := New(Dependency{
		In:      strings.NewReader(input),
		Out:     f.out,
		Session: f.store,
		Signup:  flow.NewSignupFlow(f.backend, f.store),
		Login:   flow.NewLoginFlow(f.backend, f.store),
		Usecase: uc,
	})

	if err := term.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	return f
}

func TestTerminal_Signup(t *testing.T) {
	// Arrange
	input := strings.Join([]string{
		"signup",
		"Jane", "jane@example.com", "secret1", "secret2", // mismatch
		"y",
		"Jane", "jane@example.com", "secret1", "secret1",
		"export",
		"",
		"12345",  // incomplete
		"000000", // rejected by server
		"123456",
		"status",
		"quit",
	}, "\n") + "\n"

	// Act
	f := run(t, input)

	// Assert
	out := f.out.String()
	for _, want := range []string{
		"not signed in",
		"error: Passwords do not match",
		"SECRET",
		"code-2",
		"backup codes saved to",
		"error: Please enter the 6-digit code",
		"error: Invalid TOTP code",
		"Account created successfully!",
		"signed in as Jane <jane@example.com>",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if !f.store.IsAuthenticated() {
		t.Fatalf("expected authenticated session")
	}
	entries, err := os.ReadDir(f.dir + "/out")
	if err != nil || len(entries) != 1 || entries[0].Name() != "socialpluse-backup-codes-1000.txt" {
		t.Fatalf("expected exported codes file, got %v (%v)", entries, err)
	}
}

func TestTerminal_LoginLogout(t *testing.T) {
	input := strings.Join([]string{
		"login",
		"jane@example.com", "wrong",
		"y",
		"jane@example.com", "secret1",
		"back",
		"jane@example.com", "secret1",
		"654321",
		"whoami",
		"logout",
		"status",
	}, "\n") + "\n"

	f := run(t, input)

	out := f.out.String()
	for _, want := range []string{
		"error: Invalid credentials",
		"Login successful",
		"Jane <jane@example.com> id=5",
		"signed out",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if f.store.IsAuthenticated() || f.backend.logoutCalls != 1 {
		t.Fatalf("expected logout to clear the session once, calls=%d", f.backend.logoutCalls)
	}
	if !strings.Contains(out, "signed out\n> not signed in") {
		t.Fatalf("expected status after logout, got:\n%s", out)
	}
}

func TestTerminal_WaitsForLoad(t *testing.T) {
	store := session.NewStore(kvstore.NewMemory(), "")
	out := &bytes.Buffer{}
	term := New(Dependency{
		In:      strings.NewReader("help\n"),
		Out:     out,
		Session: store,
		Signup:  flow.NewSignupFlow(&fakeBackend{}, store),
		Login:   flow.NewLoginFlow(&fakeBackend{}, store),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := term.Run(ctx)

	if err == nil {
		t.Fatalf("expected context error while the store is loading")
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output before load, got %q", out.String())
	}
}
