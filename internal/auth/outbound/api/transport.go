package api

import "net/http"

// TokenSource yields the current access token, or "" when there is none.
type TokenSource interface {
	AccessToken() string
}

type bearerTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

// NewBearerTransport attaches "Authorization: Bearer <token>" when tokens has one.
func NewBearerTransport(base http.RoundTripper, tokens TokenSource) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &bearerTransport{base: base, tokens: tokens}
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.tokens == nil {
		return t.base.RoundTrip(req)
	}

	token := t.tokens.AccessToken()
	if token == "" {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)

	return t.base.RoundTrip(clone)
}
