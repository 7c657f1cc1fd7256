// Package session keeps the authenticated session in memory and mirrors it to
// a kvstore so it survives restarts.
//
// The in-memory state is either fully authenticated (a user and both tokens)
// or empty. Any operation that would leave a partial state collapses the
// store to empty instead.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/shandysiswandi/authflow/internal/auth/entity"
	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
	"github.com/shandysiswandi/authflow/internal/pkg/kvstore"
	"go.uber.org/atomic"
)

// DefaultNamespace prefixes every persisted key.
const DefaultNamespace = "socialpluse"

type keys struct {
	access  string
	refresh string
	user    string
}

func (k keys) all() []string {
	return []string{k.access, k.refresh, k.user}
}

type subscriber struct {
	id uint64
	fn func(entity.SessionChange)
}

// Store is the single source of truth for the current session.
type Store struct {
	kv   kvstore.Store
	keys keys

	mu      sync.RWMutex
	session entity.Session

	loading  *atomic.Bool
	loadOnce sync.Once
	loaded   chan struct{}
	loadErr  error

	subMu  sync.Mutex
	subs   []subscriber
	nextID uint64
}

// NewStore returns a store that is loading until Load completes.
func NewStore(kv kvstore.Store, namespace string) *Store {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	return &Store{
		kv: kv,
		keys: keys{
			access:  namespace + "_access_token",
			refresh: namespace + "_refresh_token",
			user:    namespace + "_user",
		},
		loading: atomic.NewBool(true),
		loaded:  make(chan struct{}),
	}
}

// IsLoading reports whether the persisted session has not been read yet.
func (s *Store) IsLoading() bool {
	return s.loading.Load()
}

// Loaded is closed once Load has finished.
func (s *Store) Loaded() <-chan struct{} {
	return s.loaded
}

// Load restores the persisted session. Only the first call reads the backend;
// later calls return the first result.
func (s *Store) Load(ctx context.Context) error {
	s.loadOnce.Do(func() {
		sess, err := s.read(ctx)

		s.mu.Lock()
		s.session = sess
		s.mu.Unlock()

		s.loadErr = err
		s.loading.Store(false)
		close(s.loaded)

		s.notify(entity.SessionChange{Kind: entity.ChangeRestored, Session: sess.Clone()})
	})

	return s.loadErr
}

func (s *Store) read(ctx context.Context) (entity.Session, error) {
	values := make(map[string]string, 3)
	missing := 0
	for _, k := range s.keys.all() {
		v, err := s.kv.Get(ctx, k)
		if errors.Is(err, goerror.ErrNotFound) {
			missing++
			continue
		}
		if err != nil {
			return entity.Session{}, err
		}
		values[k] = v
	}

	if len(values) == 0 {
		return entity.Session{}, nil
	}

	reason := ""
	var user entity.User
	switch {
	case missing > 0:
		reason = "missing key"
	case values[s.keys.access] == "" || values[s.keys.refresh] == "":
		reason = "empty token"
	case json.Unmarshal([]byte(values[s.keys.user]), &user) != nil:
		reason = "unparseable user"
	case user.IsZero():
		reason = "empty user"
	}

	if reason != "" {
		slog.WarnContext(ctx, "stored session is corrupt, resetting", "reason", reason)
		if err := s.removeAll(ctx); err != nil {
			slog.WarnContext(ctx, "failed to remove corrupt session keys", "error", err)
		}
		return entity.Session{}, nil
	}

	return entity.Session{
		User:   &user,
		Tokens: &entity.TokenPair{AccessToken: values[s.keys.access], RefreshToken: values[s.keys.refresh]},
	}, nil
}

// SetAuth replaces the session. Memory is updated even when persisting fails.
func (s *Store) SetAuth(ctx context.Context, user entity.User, tokens entity.TokenPair) error {
	if user.IsZero() || !tokens.IsComplete() {
		return errors.Join(goerror.ErrCorruptSession, s.ClearAuth(ctx))
	}

	userJSON, err := json.Marshal(user)
	if err != nil {
		return errors.Join(err, s.ClearAuth(ctx))
	}

	sess := entity.Session{User: &user, Tokens: &tokens}

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	err = errors.Join(
		s.kv.Set(ctx, s.keys.access, tokens.AccessToken),
		s.kv.Set(ctx, s.keys.refresh, tokens.RefreshToken),
		s.kv.Set(ctx, s.keys.user, string(userJSON)),
	)

	s.notify(entity.SessionChange{Kind: entity.ChangeAuthenticated, Session: sess.Clone()})

	return err
}

// UpdateTokens replaces only the tokens of an authenticated session.
func (s *Store) UpdateTokens(ctx context.Context, tokens entity.TokenPair) error {
	if !tokens.IsComplete() {
		return errors.Join(goerror.ErrCorruptSession, s.ClearAuth(ctx))
	}

	s.mu.Lock()
	if s.session.User == nil {
		s.mu.Unlock()
		return errors.Join(goerror.ErrNotAuthenticated, s.ClearAuth(ctx))
	}
	s.session.Tokens = &tokens
	sess := s.session.Clone()
	s.mu.Unlock()

	err := errors.Join(
		s.kv.Set(ctx, s.keys.access, tokens.AccessToken),
		s.kv.Set(ctx, s.keys.refresh, tokens.RefreshToken),
	)

	s.notify(entity.SessionChange{Kind: entity.ChangeTokensRotated, Session: sess})

	return err
}

// ClearAuth drops the session and its persisted keys. It is safe to call on
// an empty store, which does not notify subscribers.
func (s *Store) ClearAuth(ctx context.Context) error {
	s.mu.Lock()
	wasSet := s.session.User != nil || s.session.Tokens != nil
	s.session = entity.Session{}
	s.mu.Unlock()

	err := s.removeAll(ctx)

	if wasSet {
		s.notify(entity.SessionChange{Kind: entity.ChangeCleared})
	}

	return err
}

func (s *Store) removeAll(ctx context.Context) error {
	var errs []error
	for _, k := range s.keys.all() {
		if err := s.kv.Remove(ctx, k); err != nil && !errors.Is(err, goerror.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsAuthenticated reports whether a user and both tokens are held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.session.IsAuthenticated()
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() entity.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.session.Clone()
}

// AccessToken returns the current access token or "".
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session.Tokens == nil {
		return ""
	}
	return s.session.Tokens.AccessToken
}

// RefreshToken returns the current refresh token or "".
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session.Tokens == nil {
		return ""
	}
	return s.session.Tokens.RefreshToken
}

// Subscribe registers fn for every later change. Callbacks run synchronously
// on the mutating goroutine, in subscription order, without the store lock.
func (s *Store) Subscribe(fn func(entity.SessionChange)) (unsubscribe func()) {
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()

			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) notify(change entity.SessionChange) {
	s.subMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(change)
	}
}
