package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
	"github.com/shandysiswandi/authflow/internal/pkg/instrument"
	"github.com/shandysiswandi/authflow/internal/pkg/jwt"
)

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

type staticID struct{ id string }

func (s staticID) Generate() string { return s.id }

func newTestRouter(t *testing.T) (*Router, *jwt.Symmetric) {
	t.Helper()

	j, err := jwt.NewHS512(jwt.Config{
		Secret:    bytes.Repeat([]byte("s"), 64),
		Issuer:    "test",
		Audiences: []string{"test"},
		TTL:       time.Minute,
		Clock:     wallClock{},
		UUID:      staticID{id: "jti"},
	})
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}

	r := NewRouter(Config{
		UUID:       staticID{id: "generated-cid"},
		JWT:        j,
		Instrument: instrument.NewNoop(),
		PublicEndpoints: []Endpoint{
			{Method: http.MethodPost, Path: "/auth/login"},
		},
		MaskFields:           []string{"password"},
		MaintenanceEndpoints: []string{"/auth/closed"},
	})

	r.POST("/auth/login", func(req *Request) (any, error) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := req.DecodeBody(&body); err != nil {
			return nil, err
		}
		if body.Password != "secret" {
			return nil, goerror.NewBusiness("Invalid credentials", goerror.CodeUnauthorized)
		}
		return map[string]string{"sessionToken": "st"}, nil
	})
	r.GET("/auth/me", func(req *Request) (any, error) {
		return map[string]any{"id": jwt.GetAuth(req.Context()).UserID}, nil
	})
	r.POST("/auth/closed", func(*Request) (any, error) { return nil, nil })
	r.POST("/auth/panic", func(*Request) (any, error) { panic("boom") })

	return r, j
}

func TestRouter(t *testing.T) {
	r, j := newTestRouter(t)

	t.Run("RawSuccessBody", func(t *testing.T) {
		// Arrange
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.co","password":"secret"}`))
		req.Header.Set(HeaderCorrelationID, "cid-1")
		rec := httptest.NewRecorder()

		// Act
		r.ServeHTTP(rec, req)

		// Assert
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var body map[string]string
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if body["sessionToken"] != "st" {
			t.Fatalf("expected flat body, got %s", rec.Body.String())
		}
		if rec.Header().Get(HeaderCorrelationID) != "cid-1" {
			t.Fatalf("expected correlation id echoed")
		}
	})

	t.Run("FlatErrorBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.co","password":"nope"}`))
		rec := httptest.NewRecorder()

		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		var body ErrorResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if body.Message != "Invalid credentials" {
			t.Fatalf("unexpected message %q", body.Message)
		}
		if rec.Header().Get(HeaderCorrelationID) != "generated-cid" {
			t.Fatalf("expected generated correlation id")
		}
	})

	t.Run("MalformedBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"unknown":1}`))
		rec := httptest.NewRecorder()

		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("RequiresBearer", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}

		token, err := j.Generate(9, "a@b.co")
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("Maintenance", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/closed", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})

	t.Run("Panic", func(t *testing.T) {
		token, _ := j.Generate(1, "a@b.co")
		req := httptest.NewRequest(http.MethodPost, "/auth/panic", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("Health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}

func TestChain(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }), mw("a"), mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, ",") != "a,b,handler" {
		t.Fatalf("unexpected order %v", order)
	}
}
