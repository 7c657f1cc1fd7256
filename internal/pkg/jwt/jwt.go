// Package jwt issues and verifies the access tokens of the auth server and
// carries verified claims through a request context.
package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrSigningKeyTooShort is returned when the HS512 secret is under 64 bytes.
	ErrSigningKeyTooShort = errors.New("jwt: HS512 signing key must be at least 64 bytes")
	// ErrTokenExpired is returned by Verify for an expired token.
	ErrTokenExpired = errors.New("jwt: token has expired")
	// ErrInvalidToken is returned by Verify for any other rejected token.
	ErrInvalidToken = errors.New("jwt: invalid token")
	// ErrMissingDependency is returned when the clock or id generator is nil.
	ErrMissingDependency = errors.New("jwt: clock and id generator are required")
)

type JWT interface {
	Generate(uid int64, email string) (string, error)
	Verify(tokenStr string) (Claims, error)
}

type clocker interface {
	Now() time.Time
}

type generator interface {
	Generate() string
}

type Config struct {
	// Secret must hold at least 64 bytes.
	Secret    []byte
	Issuer    string
	Audiences []string
	TTL       time.Duration
	Clock     clocker
	// UUID generates the jti claim.
	UUID generator
}

// Claims are the registered claims plus the authenticated user.
type Claims struct {
	jwt.RegisteredClaims

	UserID    int64  `json:"user_id,string"`
	UserEmail string `json:"user_email"`
}

type authKey struct{}

// GetAuth returns the claims stored by SetAuth, or nil.
func GetAuth(ctx context.Context) *Claims {
	clm, ok := ctx.Value(authKey{}).(Claims)
	if !ok {
		return nil
	}
	return &clm
}

func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, authKey{}, clm)
}
