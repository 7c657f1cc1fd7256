// Package idempotency guards operations that must not run concurrently or
// twice for the same key.
package idempotency

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrAlreadyInProgress is returned when another caller holds the key.
	ErrAlreadyInProgress = errors.New("operation already in progress")
	// ErrAlreadyCompleted is returned when the keyed operation already succeeded.
	ErrAlreadyCompleted = errors.New("operation already completed")
	// ErrInvalidState is returned when the stored state cannot be interpreted.
	ErrInvalidState = errors.New("invalid state")
)

// State is the recorded progress of a keyed operation.
type State string

const (
	StateNone       State = "none"        // operation can proceed
	StateInProgress State = "in_progress" // operation already in progress
	StateCompleted  State = "completed"   // operation already completed
	StateError      State = "error"       // state lookup failed
)

func (s State) String() string {
	return string(s)
}

// Idempotency runs fn at most once per key until the state expires. A failed
// fn releases the key so the caller may retry.
type Idempotency interface {
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error
}

const (
	defaultLockDuration = time.Minute
	defaultStateTTL     = time.Minute
)

// Option customizes a single Exec call.
type Option func(*execOptions)

type execOptions struct {
	lockDuration time.Duration
	stateTTL     time.Duration
}

// WithLockDuration sets how long an in-progress claim lives.
func WithLockDuration(lockDuration time.Duration) Option {
	return func(o *execOptions) {
		o.lockDuration = lockDuration
	}
}

// WithStateTTL sets how long a completed state is remembered.
func WithStateTTL(stateTTL time.Duration) Option {
	return func(o *execOptions) {
		o.stateTTL = stateTTL
	}
}

func buildOptions(opts []Option) *execOptions {
	execOpt := &execOptions{
		lockDuration: defaultLockDuration,
		stateTTL:     defaultStateTTL,
	}
	for _, opt := range opts {
		opt(execOpt)
	}
	if execOpt.lockDuration <= 0 {
		execOpt.lockDuration = defaultLockDuration
	}
	if execOpt.stateTTL <= 0 {
		execOpt.stateTTL = defaultStateTTL
	}
	return execOpt
}

// StateTracker implements Idempotency on top of Redis SETNX.
type StateTracker struct {
	client *redis.Client
	prefix string
}

// New returns a Redis-backed tracker.
func New(client *redis.Client) *StateTracker {
	return &StateTracker{
		client: client,
		prefix: "idempotency:",
	}
}

// Acquire tries to start an operation.
func (s *StateTracker) Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error) {
	fk := s.prefix + key

	acquired, err := s.client.SetNX(ctx, fk, StateInProgress.String(), lockDuration).Result()
	if err != nil {
		return StateError, err
	}
	if acquired {
		return StateNone, nil
	}

	result, err := s.client.Get(ctx, fk).Result()
	if errors.Is(err, redis.Nil) {
		acquired, err = s.client.SetNX(ctx, fk, StateInProgress.String(), lockDuration).Result()
		if err != nil {
			return StateError, err
		}
		if acquired {
			return StateNone, nil
		}
		return StateError, ErrInvalidState
	}
	if err != nil {
		return StateError, err
	}

	switch result {
	case StateInProgress.String():
		return StateInProgress, nil
	case StateCompleted.String():
		return StateCompleted, nil
	default:
		return StateError, ErrInvalidState
	}
}

// MarkCompleted records a successful run.
func (s *StateTracker) MarkCompleted(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, StateCompleted.String(), ttl).Err()
}

// Release drops the claim so a later call can retry.
func (s *StateTracker) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Exec runs fn when no other run holds or has completed key.
func (s *StateTracker) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	execOpt := buildOptions(opts)

	state, err := s.Acquire(ctx, key, execOpt.lockDuration)
	if err != nil {
		return err
	}

	switch state {
	case StateInProgress:
		return ErrAlreadyInProgress
	case StateCompleted:
		return ErrAlreadyCompleted
	}

	if err := fn(ctx); err != nil {
		return errors.Join(err, s.Release(ctx, key))
	}

	return s.MarkCompleted(ctx, key, execOpt.stateTTL)
}

// Memory implements Idempotency for a single process.
type Memory struct {
	mu     sync.Mutex
	states map[string]memoryState
	now    func() time.Time
}

type memoryState struct {
	state     State
	expiresAt time.Time
}

// NewMemory returns an in-process tracker.
func NewMemory() *Memory {
	return &Memory{states: make(map[string]memoryState), now: time.Now}
}

// Exec runs fn when no other run holds or has completed key.
func (m *Memory) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	execOpt := buildOptions(opts)

	m.mu.Lock()
	if st, ok := m.states[key]; ok && m.now().Before(st.expiresAt) {
		m.mu.Unlock()
		if st.state == StateCompleted {
			return ErrAlreadyCompleted
		}
		return ErrAlreadyInProgress
	}
	m.states[key] = memoryState{state: StateInProgress, expiresAt: m.now().Add(execOpt.lockDuration)}
	m.mu.Unlock()

	err := fn(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		delete(m.states, key)
		return err
	}
	m.states[key] = memoryState{state: StateCompleted, expiresAt: m.now().Add(execOpt.stateTTL)}

	return nil
}
