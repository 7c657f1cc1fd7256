package jwt

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type staticID struct{}

func (staticID) Generate() string { return "jti-1" }

func TestSymmetric(t *testing.T) {
	clk := &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	j, err := NewHS512(Config{
		Secret:    bytes.Repeat([]byte("k"), 64),
		Issuer:    "authserver",
		Audiences: []string{"socialpluse"},
		TTL:       15 * time.Minute,
		Clock:     clk,
		UUID:      staticID{},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	t.Run("GenerateVerify", func(t *testing.T) {
		// Arrange
		token, err := j.Generate(7, "a@b.co")
		if err != nil {
			t.Fatalf("generate: %v", err)
		}

		// Act
		claims, err := j.Verify(token)

		// Assert
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if claims.UserID != 7 || claims.UserEmail != "a@b.co" || claims.ID != "jti-1" {
			t.Fatalf("unexpected claims %+v", claims)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := j.Generate(7, "a@b.co")
		if err != nil {
			t.Fatalf("generate: %v", err)
		}

		clk.now = clk.now.Add(time.Hour)
		t.Cleanup(func() { clk.now = clk.now.Add(-time.Hour) })

		if _, err := j.Verify(token); !errors.Is(err, ErrTokenExpired) {
			t.Fatalf("expected expired error, got %v", err)
		}
	})

	t.Run("ShortSecret", func(t *testing.T) {
		_, err := NewHS512(Config{Secret: []byte("short"), Clock: clk, UUID: staticID{}})
		if !errors.Is(err, ErrSigningKeyTooShort) {
			t.Fatalf("expected short secret error, got %v", err)
		}
	})
}

func TestContextAuth(t *testing.T) {
	if GetAuth(context.Background()) != nil {
		t.Fatalf("expected no claims")
	}

	ctx := SetAuth(context.Background(), Claims{UserID: 3})
	if c := GetAuth(ctx); c == nil || c.UserID != 3 {
		t.Fatalf("unexpected claims %+v", c)
	}
}
