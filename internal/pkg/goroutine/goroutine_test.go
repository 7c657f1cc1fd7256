package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestManager(t *testing.T) {
	t.Run("CollectsErrors", func(t *testing.T) {
		// Arrange
		g := NewManager(4)
		boom := errors.New("boom")
		var ran atomic.Int32

		// Act
		g.Go(context.Background(), func(context.Context) error { ran.Add(1); return boom })
		g.Go(context.Background(), func(context.Context) error { ran.Add(1); return nil })
		err := g.Wait()

		// Assert
		if ran.Load() != 2 {
			t.Fatalf("expected 2 runs, got %d", ran.Load())
		}
		if !errors.Is(err, boom) {
			t.Fatalf("expected joined error, got %v", err)
		}
	})

	t.Run("LimitReached", func(t *testing.T) {
		g := NewManager(1)
		release := make(chan struct{})

		if !g.Go(context.Background(), func(context.Context) error { <-release; return nil }) {
			t.Fatalf("expected first task to be scheduled")
		}
		if g.Go(context.Background(), func(context.Context) error { return nil }) {
			t.Fatalf("expected second task to be rejected")
		}

		close(release)
		if err := g.Wait(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("ClosedAfterWait", func(t *testing.T) {
		g := NewManager(1)
		_ = g.Wait()

		if g.Go(context.Background(), func(context.Context) error { return nil }) {
			t.Fatalf("expected closed manager to reject work")
		}
	})

	t.Run("RecoversPanic", func(t *testing.T) {
		g := NewManager(1)

		g.Go(context.Background(), func(context.Context) error { panic("boom") })

		if err := g.Wait(); err != nil {
			t.Fatalf("expected panic to be swallowed, got %v", err)
		}
	})
}
