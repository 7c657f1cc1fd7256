package app

import (
	"context"

	"github.com/shandysiswandi/authflow/internal/auth"
	"github.com/shandysiswandi/authflow/internal/pkg/clock"
	"github.com/shandysiswandi/authflow/internal/pkg/config"
	"github.com/shandysiswandi/authflow/internal/pkg/goroutine"
	"github.com/shandysiswandi/authflow/internal/pkg/instrument"
	"github.com/shandysiswandi/authflow/internal/pkg/kvstore"
	"github.com/shandysiswandi/authflow/internal/pkg/messaging"
	"github.com/shandysiswandi/authflow/internal/pkg/mfa"
	"github.com/shandysiswandi/authflow/internal/pkg/storage"
	"github.com/shandysiswandi/authflow/internal/pkg/validator"
)

// App wires dependencies and manages the client lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine    *goroutine.Manager
	validator    validator.Validator
	clock        clock.Clocker
	mfaEncryptor mfa.Encryptor

	// resources
	kvstore   kvstore.Store
	messaging messaging.Messaging
	storage   storage.Storage

	// modules
	auth *auth.Module

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initKVStore()
	app.initStorage()
	app.initMessaging()
	app.initModules()
	app.initClosers()

	return app
}
