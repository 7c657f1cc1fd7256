package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/authflow/internal/auth"
)

func (a *App) initModules() {
	module, err := auth.New(auth.Dependency{
		KVStore:    a.kvstore,
		Messaging:  a.messaging,
		Storage:    a.storage,
		Goroutine:  a.goroutine,
		Config:     a.config,
		Instrument: a.ins,
		Validator:  a.validator,
		Clock:      a.clock,
		In:         os.Stdin,
		Out:        os.Stdout,
		Encryptor:  a.mfaEncryptor,
	})
	if err != nil {
		slog.Error("failed to init module auth", "error", err)
		os.Exit(1)
	}

	a.auth = module
}
