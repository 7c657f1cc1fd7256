package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/authflow/internal/authserver/entity"
	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
	"github.com/shandysiswandi/authflow/internal/pkg/instrument"
	"github.com/shandysiswandi/authflow/internal/pkg/kvstore"
)

func TestRepo_Users(t *testing.T) {
	ctx := context.Background()
	r := NewRepo(kvstore.NewMemory(), instrument.NewNoop())

	t.Run("PendingUserIsReplaced", func(t *testing.T) {
		// Arrange
		if err := r.CreateUser(ctx, entity.User{ID: 1, Email: "a@b.co", Status: entity.UserStatusPending}); err != nil {
			t.Fatalf("create: %v", err)
		}

		// Act
		err := r.CreateUser(ctx, entity.User{ID: 2, Email: "A@b.co", Status: entity.UserStatusPending})

		// Assert
		if err != nil {
			t.Fatalf("replace: %v", err)
		}
		user, err := r.GetUserByEmail(ctx, "a@b.co")
		if err != nil || user.ID != 2 {
			t.Fatalf("expected user 2, got %+v %v", user, err)
		}
		if _, err := r.GetUserByID(ctx, 1); !errors.Is(err, goerror.ErrNotFound) {
			t.Fatalf("expected old user removed, got %v", err)
		}
	})

	t.Run("ActiveUserConflicts", func(t *testing.T) {
		if err := r.ActivateUser(ctx, 2); err != nil {
			t.Fatalf("activate: %v", err)
		}

		if err := r.ActivateUser(ctx, 2); !errors.Is(err, goerror.ErrConflict) {
			t.Fatalf("expected conflict on second activate, got %v", err)
		}
		err := r.CreateUser(ctx, entity.User{ID: 3, Email: "a@b.co"})
		if !errors.Is(err, goerror.ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("BackupCodes", func(t *testing.T) {
		if err := r.CreateUser(ctx, entity.User{
			ID:          4,
			Email:       "c@d.co",
			BackupCodes: []entity.BackupCode{{Hash: "h1"}, {Hash: "h2"}},
		}); err != nil {
			t.Fatalf("create: %v", err)
		}

		first, err := r.MarkBackupCodeUsed(ctx, 4, 1)
		if err != nil || !first {
			t.Fatalf("expected first use to succeed, got %v %v", first, err)
		}
		second, err := r.MarkBackupCodeUsed(ctx, 4, 1)
		if err != nil || second {
			t.Fatalf("expected second use to fail, got %v %v", second, err)
		}
		if ok, _ := r.MarkBackupCodeUsed(ctx, 4, 5); ok {
			t.Fatalf("expected out of range index to fail")
		}
	})
}

func TestRepo_RefreshTokens(t *testing.T) {
	ctx := context.Background()
	r := NewRepo(kvstore.NewMemory(), instrument.NewNoop())
	exp := time.Now().Add(time.Hour)

	if err := r.CreateRefreshToken(ctx, "h1", entity.RefreshToken{UserID: 9, ExpiresAt: exp}); err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("Rotate", func(t *testing.T) {
		// Act
		err := r.RotateRefreshToken(ctx, "h1", "h2", entity.RefreshToken{UserID: 9, ExpiresAt: exp})

		// Assert
		if err != nil {
			t.Fatalf("rotate: %v", err)
		}
		old, err := r.GetRefreshToken(ctx, "h1")
		if err != nil || !old.Revoked || old.ReplacedBy != "h2" {
			t.Fatalf("unexpected old token %+v %v", old, err)
		}
		if err := r.RotateRefreshToken(ctx, "h1", "h3", entity.RefreshToken{UserID: 9}); !errors.Is(err, goerror.ErrNotFound) {
			t.Fatalf("expected not found on second rotate, got %v", err)
		}
	})

	t.Run("RevokeAll", func(t *testing.T) {
		if err := r.RevokeAllRefreshToken(ctx, 9); err != nil {
			t.Fatalf("revoke all: %v", err)
		}

		cur, err := r.GetRefreshToken(ctx, "h2")
		if err != nil || !cur.Revoked {
			t.Fatalf("expected h2 revoked, got %+v %v", cur, err)
		}
		if err := r.RevokeAllRefreshToken(ctx, 404); err != nil {
			t.Fatalf("expected no-op for unknown user, got %v", err)
		}
	})

	t.Run("RevokeUnknown", func(t *testing.T) {
		if err := r.RevokeRefreshToken(ctx, "missing"); !errors.Is(err, goerror.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestRepo_Challenge(t *testing.T) {
	ctx := context.Background()
	r := NewRepo(kvstore.NewMemory(), instrument.NewNoop())

	// Arrange
	if err := r.CreateChallenge(ctx, "c1", entity.Challenge{UserID: 5, ExpiresAt: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	ch, err := r.GetChallenge(ctx, "c1")
	if err != nil || ch.UserID != 5 {
		t.Fatalf("unexpected challenge %+v %v", ch, err)
	}

	// Act
	first := r.ConsumeChallenge(ctx, "c1")
	second := r.ConsumeChallenge(ctx, "c1")

	// Assert
	if first != nil {
		t.Fatalf("consume: %v", first)
	}
	if !errors.Is(second, goerror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", second)
	}
}
