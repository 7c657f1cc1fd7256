package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// Start restores the session, starts background refresh and runs the terminal.
// The returned channel is closed when the user quits or a termination signal
// arrives.
func (a *App) Start() <-chan struct{} {
	terminateChan := make(chan struct{})

	a.auth.Start(a.ctx)

	go func() {
		if err := a.auth.Run(a.ctx); err != nil {
			slog.Error("terminal stopped with error", "error", err)
		}

		a.cancel()
	}()

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(sigint)

		select {
		case <-sigint:
			a.cancel()
		case <-a.ctx.Done():
		}

		close(terminateChan)

		slog.Info("application gracefully shutdown")
	}()

	return terminateChan
}

// Stop cancels background work and closes resources.
func (a *App) Stop(ctx context.Context) {
	a.auth.Stop()

	if a.cancel != nil {
		a.cancel()
	}

	slog.InfoContext(ctx, "waiting for all goroutine to finish")
	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "error from goroutines executions", "error", err)
	}
	slog.InfoContext(ctx, "all goroutines have finished successfully")

	for _, closer := range a.closers {
		if err := closer.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resources", "name", closer.name, "error", err)
		}
	}
}
