package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestCorrelationID(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		if got := GetCorrelationID(context.Background()); got != "" {
			t.Fatalf("expected empty id, got %q", got)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		ctx := SetCorrelationID(context.Background(), "abc")
		if got := GetCorrelationID(ctx); got != "abc" {
			t.Fatalf("expected abc, got %q", got)
		}
	})
}

func TestNewHandler(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := slog.New(newHandler(slog.NewJSONHandler(&buf, nil), "authflow", []string{"accessToken"}))
	ctx := SetCorrelationID(context.Background(), "cid-1")

	// Act
	logger.InfoContext(ctx, "session stored", "accessToken", "secret-value", "user_id", "1")

	// Assert
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["accessToken"] != "***" {
		t.Fatalf("expected masked token, got %v", line["accessToken"])
	}
	if line["_cID"] != "cid-1" {
		t.Fatalf("expected correlation id, got %v", line["_cID"])
	}
	if line["service"] != "authflow" {
		t.Fatalf("expected service attribute, got %v", line["service"])
	}
	if strings.Contains(buf.String(), "secret-value") {
		t.Fatalf("token leaked into log output")
	}
}

func TestMaskJSONString(t *testing.T) {
	keys := buildMaskKeys([]string{"refreshToken"})

	masked, ok := maskJSONString(`{"refreshToken":"r1","user":{"id":"1"}}`, keys)
	if !ok {
		t.Fatalf("expected json payload to be masked")
	}
	if strings.Contains(masked, "r1") {
		t.Fatalf("expected refresh token to be masked, got %s", masked)
	}

	if _, ok := maskJSONString("plain text", keys); ok {
		t.Fatalf("expected plain text to be left alone")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != slog.LevelDebug {
		t.Fatalf("expected debug")
	}
	if ParseLevel("bogus") != slog.LevelInfo {
		t.Fatalf("expected info fallback")
	}
}

func TestNewDisabled(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	ins, err := New(context.Background(), &Config{ServiceName: "authflow", LogBackend: BackendZap})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := ins.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
