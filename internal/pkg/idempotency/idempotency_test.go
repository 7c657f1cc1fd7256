package idempotency

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTrackers(t *testing.T) map[string]Idempotency {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Idempotency{
		"Redis":  New(client),
		"Memory": NewMemory(),
	}
}

func TestExec(t *testing.T) {
	for name, tracker := range newTrackers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("FailureReleasesKey", func(t *testing.T) {
				// Arrange
				boom := errors.New("invalid code")

				// Act
				err := tracker.Exec(ctx, "verify:1", func(context.Context) error { return boom })

				// Assert
				if !errors.Is(err, boom) {
					t.Fatalf("expected fn error, got %v", err)
				}

				calls := 0
				if err := tracker.Exec(ctx, "verify:1", func(context.Context) error { calls++; return nil }); err != nil {
					t.Fatalf("expected retry to run, got %v", err)
				}
				if calls != 1 {
					t.Fatalf("expected fn to run once, ran %d", calls)
				}
			})

			t.Run("CompletedRejectsRepeat", func(t *testing.T) {
				err := tracker.Exec(ctx, "verify:1", func(context.Context) error {
					t.Fatalf("fn must not run again")
					return nil
				})
				if !errors.Is(err, ErrAlreadyCompleted) {
					t.Fatalf("expected completed error, got %v", err)
				}
			})

			t.Run("InProgressRejectsConcurrent", func(t *testing.T) {
				err := tracker.Exec(ctx, "verify:2", func(ctx context.Context) error {
					inner := tracker.Exec(ctx, "verify:2", func(context.Context) error { return nil })
					if !errors.Is(inner, ErrAlreadyInProgress) {
						t.Fatalf("expected in progress error, got %v", inner)
					}
					return nil
				})
				if err != nil {
					t.Fatalf("outer exec: %v", err)
				}
			})
		})
	}
}
