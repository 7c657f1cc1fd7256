package mq

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/authflow/internal/auth/entity"
	"github.com/shandysiswandi/authflow/internal/pkg/goroutine"
	"github.com/shandysiswandi/authflow/internal/pkg/instrument"
	"github.com/shandysiswandi/authflow/internal/pkg/messaging"
	"github.com/shandysiswandi/authflow/internal/shared/event"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestMessaging_OnSessionChange(t *testing.T) {
	// Arrange
	rec := messaging.NewRecorder()
	gm := goroutine.NewManager(2)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewMessaging(rec, gm, fixedClock{t: now}, instrument.NewNoop())
	ctx := instrument.SetCorrelationID(context.Background(), "cid-9")

	// Act
	m.OnSessionChange(ctx)(entity.SessionChange{
		Kind: entity.ChangeAuthenticated,
		Session: entity.Session{
			User:   &entity.User{ID: "7", Email: "a@b.co"},
			Tokens: &entity.TokenPair{AccessToken: "secret-access", RefreshToken: "secret-refresh"},
		},
	})
	if err := gm.Wait(); err != nil {
		t.Fatalf("unexpected goroutine error: %v", err)
	}

	// Assert
	msgs := rec.Messages()
	if len(msgs) != 1 || msgs[0].Destination != event.SessionChangedDestination {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	body := string(msgs[0].Message.Body)
	if strings.Contains(body, "secret-access") || strings.Contains(body, "secret-refresh") {
		t.Fatalf("tokens must never be published: %s", body)
	}

	var got event.SessionChangedMessage
	if err := json.Unmarshal(msgs[0].Message.Body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Kind != "authenticated" || got.UserID != "7" || !got.OccurredAt.Equal(now) {
		t.Fatalf("unexpected payload %+v", got)
	}
	if h := msgs[0].Message.Headers; len(h) != 1 || string(h[0].Value) != "cid-9" {
		t.Fatalf("unexpected headers %+v", h)
	}
}

func TestMessaging_PublishClosed(t *testing.T) {
	rec := messaging.NewRecorder()
	_ = rec.Close()
	m := NewMessaging(rec, goroutine.NewManager(1), fixedClock{t: time.Now()}, instrument.NewNoop())

	err := m.PublishSessionChanged(context.Background(), event.SessionChangedMessage{Kind: "cleared"})

	if err == nil {
		t.Fatalf("expected publish error after close")
	}
}
