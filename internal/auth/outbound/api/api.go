// Package api is the REST client for the authentication backend.
//
// Every method performs at most one HTTP call. Failures are returned as
// goerror request errors whose message is safe to show to the user.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
	"github.com/shandysiswandi/authflow/internal/pkg/instrument"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultBaseURL is used when Config.BaseURL is empty.
const DefaultBaseURL = "http://localhost:3000"

const headerCorrelationID = "X-Correlation-ID"

// ErrNoTokenSource is returned by authorized calls on a Client built without Tokens.
var ErrNoTokenSource = errors.New("api: no token source configured")

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// Config configures a Client.
type Config struct {
	// BaseURL is the backend origin, without a trailing path.
	BaseURL string
	// Timeout bounds a whole call. Zero leaves it to the transport.
	Timeout time.Duration
	// Transport is the base round tripper. http.DefaultTransport when nil.
	Transport http.RoundTripper
	// Tokens supplies the bearer token for authorized calls.
	Tokens TokenSource
}

// Client calls the six authentication endpoints and the profile endpoint.
type Client struct {
	baseURL  string
	plain    *http.Client
	authed   *http.Client
	ins      instrument.Instrumentation
	hasToken bool
}

// New builds a Client whose transport is traced with otelhttp.
func New(cfg Config, ins instrument.Instrumentation) *Client {
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	traced := otelhttp.NewTransport(base)

	return &Client{
		baseURL:  baseURL,
		plain:    &http.Client{Transport: traced, Timeout: cfg.Timeout},
		authed:   &http.Client{Transport: NewBearerTransport(traced, cfg.Tokens), Timeout: cfg.Timeout},
		ins:      ins,
		hasToken: cfg.Tokens != nil,
	}
}

type endpoint struct {
	name         string
	method       string
	path         string
	parseFailMsg string
	emptyMsg     string
	authorized   bool
}

var (
	epSignupInit = endpoint{
		name: "SignupInit", method: http.MethodPost, path: "/auth/signup/init",
		parseFailMsg: "An error occurred during signup initialization", emptyMsg: "Signup initialization failed",
	}
	epSignupVerify = endpoint{
		name: "SignupVerify", method: http.MethodPost, path: "/auth/signup/verify-totp",
		parseFailMsg: "An error occurred during TOTP verification", emptyMsg: "TOTP verification failed",
	}
	epLoginInit = endpoint{
		name: "LoginInit", method: http.MethodPost, path: "/auth/login/init",
		parseFailMsg: "An error occurred during login", emptyMsg: "Login failed",
	}
	epLoginVerify = endpoint{
		name: "LoginVerify", method: http.MethodPost, path: "/auth/login/verify-totp",
		parseFailMsg: "An error occurred during TOTP verification", emptyMsg: "TOTP verification failed",
	}
	epRefreshToken = endpoint{
		name: "RefreshToken", method: http.MethodPost, path: "/auth/refresh",
		parseFailMsg: "An error occurred during token refresh", emptyMsg: "Token refresh failed",
	}
	epLogout = endpoint{
		name: "Logout", method: http.MethodPost, path: "/auth/logout",
		parseFailMsg: "An error occurred during logout", emptyMsg: "Logout failed",
	}
	epProfile = endpoint{
		name: "Profile", method: http.MethodGet, path: "/auth/me",
		parseFailMsg: "An error occurred while loading the profile", emptyMsg: "Profile request failed",
		authorized: true,
	}
)

type errorBody struct {
	Message string `json:"message"`
}

func (c *Client) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.ins.Tracer("auth.outbound.api").Start(ctx, name)
}

func (c *Client) call(ctx context.Context, ep endpoint, in, out any) error {
	ctx, span := c.startSpan(ctx, ep.name)
	defer span.End()

	err := c.do(ctx, ep, in, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

func (c *Client) do(ctx context.Context, ep endpoint, in, out any) error {
	var body io.Reader
	if in != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return goerror.NewServer(err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, ep.method, c.baseURL+ep.path, body)
	if err != nil {
		return goerror.NewServer(err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if cID := instrument.GetCorrelationID(ctx); cID != "" {
		req.Header.Set(headerCorrelationID, cID)
	}

	client := c.plain
	if ep.authorized {
		client = c.authed
	}

	resp, err := client.Do(req)
	if err != nil {
		return goerror.NewNetwork(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return goerror.NewRequest(resp.StatusCode, ep.parseFailMsg, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failure(resp.StatusCode, raw, ep)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return goerror.NewRequest(resp.StatusCode, ep.parseFailMsg, err)
	}

	return nil
}

func failure(status int, raw []byte, ep endpoint) error {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		return goerror.NewRequest(status, ep.parseFailMsg, err)
	}
	if eb.Message == "" {
		return goerror.NewRequest(status, ep.emptyMsg)
	}

	return goerror.NewRequest(status, eb.Message)
}
