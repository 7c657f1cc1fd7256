// Package kvstore provides string key/value persistence with interchangeable
// backends.
//
// Every driver stores opaque string values under string keys. Get returns an
// error wrapping goerror.ErrNotFound when the key is absent, so callers can
// check with errors.Is regardless of the backend.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
)

// Store is the persistence contract shared by every driver.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	io.Closer
}

var (
	// ErrUnknownDriver indicates an unsupported kvstore driver.
	ErrUnknownDriver = errors.New("kvstore: unknown driver")
	// ErrInvalidName indicates a bucket or table name that is not a plain identifier.
	ErrInvalidName = errors.New("kvstore: invalid bucket or table name")
)

var reIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func notFound(key string) error {
	return fmt.Errorf("kvstore: key %q: %w", key, goerror.ErrNotFound)
}

func validName(name string) error {
	if !reIdentifier.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
