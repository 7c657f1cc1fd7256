package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/shandysiswandi/authflow/internal/authserver/entity"
	"github.com/shandysiswandi/authflow/internal/pkg/goerror"
	"github.com/shandysiswandi/authflow/internal/pkg/instrument"
	"github.com/shandysiswandi/authflow/internal/pkg/kvstore"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Repo persists users, login challenges and refresh tokens as JSON documents
// in a kvstore. Read-modify-write sequences are serialized by mu, so a Repo
// must be the only writer of its store.
type Repo struct {
	mu  sync.Mutex
	kv  kvstore.Store
	ins instrument.Instrumentation
}

func NewRepo(kv kvstore.Store, ins instrument.Instrumentation) *Repo {
	return &Repo{kv: kv, ins: ins}
}

func keyUser(id int64) string         { return "user:" + strconv.FormatInt(id, 10) }
func keyEmail(email string) string    { return "user_email:" + strings.ToLower(email) }
func keyChallenge(hash string) string { return "challenge:" + hash }
func keyRefresh(hash string) string   { return "refresh:" + hash }
func keyUserTokens(id int64) string   { return "user_refresh:" + strconv.FormatInt(id, 10) }

func (r *Repo) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return r.ins.Tracer("authserver.outbound.repo").Start(ctx, name)
}

func (r *Repo) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (r *Repo) get(ctx context.Context, key string, dst any) error {
	raw, err := r.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *Repo) put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, key, string(raw))
}

func (r *Repo) GetUserByID(ctx context.Context, id int64) (_ *entity.User, err error) {
	ctx, span := r.startSpan(ctx, "GetUserByID")
	defer func() { r.endSpan(span, err) }()

	var user entity.User
	if err := r.get(ctx, keyUser(id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repo) GetUserByEmail(ctx context.Context, email string) (_ *entity.User, err error) {
	ctx, span := r.startSpan(ctx, "GetUserByEmail")
	defer func() { r.endSpan(span, err) }()

	raw, err := r.kv.Get(ctx, keyEmail(email))
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode email index: %w", err)
	}

	var user entity.User
	if err := r.get(ctx, keyUser(id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser stores a new user. An active user holding the same email is a
// conflict; a pending one is replaced.
func (r *Repo) CreateUser(ctx context.Context, user entity.User) (err error) {
	ctx, span := r.startSpan(ctx, "CreateUser")
	defer func() { r.endSpan(span, err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := r.kv.Get(ctx, keyEmail(user.Email))
	switch {
	case err == nil:
		oldID, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			return fmt.Errorf("decode email index: %w", perr)
		}
		var old entity.User
		if gerr := r.get(ctx, keyUser(oldID), &old); gerr != nil && !errors.Is(gerr, goerror.ErrNotFound) {
			return gerr
		}
		if old.IsActive() {
			return goerror.ErrConflict
		}
		if rerr := r.kv.Remove(ctx, keyUser(oldID)); rerr != nil && !errors.Is(rerr, goerror.ErrNotFound) {
			return rerr
		}
	case !errors.Is(err, goerror.ErrNotFound):
		return err
	}

	if err := r.put(ctx, keyUser(user.ID), user); err != nil {
		return err
	}
	return r.kv.Set(ctx, keyEmail(user.Email), strconv.FormatInt(user.ID, 10))
}

// ActivateUser moves a pending user to active. Any other status is a conflict.
func (r *Repo) ActivateUser(ctx context.Context, id int64) (err error) {
	ctx, span := r.startSpan(ctx, "ActivateUser")
	defer func() { r.endSpan(span, err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	var user entity.User
	if err := r.get(ctx, keyUser(id), &user); err != nil {
		return err
	}
	if user.Status != entity.UserStatusPending {
		return goerror.ErrConflict
	}
	user.Status = entity.UserStatusActive

	return r.put(ctx, keyUser(id), user)
}

// MarkBackupCodeUsed consumes the backup code at idx. It reports false when the
// code was already used.
func (r *Repo) MarkBackupCodeUsed(ctx context.Context, userID int64, idx int) (_ bool, err error) {
	ctx, span := r.startSpan(ctx, "MarkBackupCodeUsed")
	defer func() { r.endSpan(span, err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	var user entity.User
	if err := r.get(ctx, keyUser(userID), &user); err != nil {
		return false, err
	}
	if idx < 0 || idx >= len(user.BackupCodes) || user.BackupCodes[idx].Used {
		return false, nil
	}
	user.BackupCodes[idx].Used = true

	if err := r.put(ctx, keyUser(userID), user); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repo) CreateChallenge(ctx context.Context, hash string, ch entity.Challenge) (err error) {
	ctx, span := r.startSpan(ctx, "CreateChallenge")
	defer func() { r.endSpan(span, err) }()

	return r.put(ctx, keyChallenge(hash), ch)
}

func (r *Repo) GetChallenge(ctx context.Context, hash string) (_ *entity.Challenge, err error) {
	ctx, span := r.startSpan(ctx, "GetChallenge")
	defer func() { r.endSpan(span, err) }()

	var ch entity.Challenge
	if err := r.get(ctx, keyChallenge(hash), &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// ConsumeChallenge removes the challenge. It returns goerror.ErrNotFound when
// another caller consumed it first.
func (r *Repo) ConsumeChallenge(ctx context.Context, hash string) (err error) {
	ctx, span := r.startSpan(ctx, "ConsumeChallenge")
	defer func() { r.endSpan(span, err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.kv.Get(ctx, keyChallenge(hash)); err != nil {
		return err
	}
	return r.kv.Remove(ctx, keyChallenge(hash))
}

func (r *Repo) CreateRefreshToken(ctx context.Context, hash string, rt entity.RefreshToken) (err error) {
	ctx, span := r.startSpan(ctx, "CreateRefreshToken")
	defer func() { r.endSpan(span, err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.createRefreshToken(ctx, hash, rt)
}

func (r *Repo) createRefreshToken(ctx context.Context, hash string, rt entity.RefreshToken) error {
	if err := r.put(ctx, keyRefresh(hash), rt); err != nil {
		return err
	}

	var hashes []string
	if err := r.get(ctx, keyUserTokens(rt.UserID), &hashes); err != nil && !errors.Is(err, goerror.ErrNotFound) {
		return err
	}

	return r.put(ctx, keyUserTokens(rt.UserID), append(hashes, hash))
}

func (r *Repo) GetRefreshToken(ctx context.Context, hash string) (_ *entity.RefreshToken, err error) {
	ctx, span := r.startSpan(ctx, "GetRefreshToken")
	defer func() { r.endSpan(span, err) }()

	var rt entity.RefreshToken
	if err := r.get(ctx, keyRefresh(hash), &rt); err != nil {
		return nil, err
	}
	return &rt, nil
}

// RotateRefreshToken revokes oldHash in favour of newHash. It returns
// goerror.ErrNotFound when oldHash is unknown or already revoked.
func (r *Repo) RotateRefreshToken(ctx context.Context, oldHash, newHash string, rt entity.RefreshToken) (err error) {
	ctx, span := r.startSpan(ctx, "RotateRefreshToken")
	defer func() { r.endSpan(span, err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	var old entity.RefreshToken
	if err := r.get(ctx, keyRefresh(oldHash), &old); err != nil {
		return err
	}
	if old.Revoked {
		return goerror.ErrNotFound
	}

	old.Revoked = true
	old.ReplacedBy = newHash
	if err := r.put(ctx, keyRefresh(oldHash), old); err != nil {
		return err
	}

	return r.createRefreshToken(ctx, newHash, rt)
}

func (r *Repo) RevokeRefreshToken(ctx context.Context, hash string) (err error) {
	ctx, span := r.startSpan(ctx, "RevokeRefreshToken")
	defer func() { r.endSpan(span, err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.revoke(ctx, hash)
}

// RevokeAllRefreshToken revokes every refresh token issued to userID.
func (r *Repo) RevokeAllRefreshToken(ctx context.Context, userID int64) (err error) {
	ctx, span := r.startSpan(ctx, "RevokeAllRefreshToken")
	defer func() { r.endSpan(span, err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	var hashes []string
	if err := r.get(ctx, keyUserTokens(userID), &hashes); err != nil {
		if errors.Is(err, goerror.ErrNotFound) {
			return nil
		}
		return err
	}

	for _, h := range lo.Uniq(hashes) {
		if err := r.revoke(ctx, h); err != nil && !errors.Is(err, goerror.ErrNotFound) {
			return err
		}
	}

	return nil
}

func (r *Repo) revoke(ctx context.Context, hash string) error {
	var rt entity.RefreshToken
	if err := r.get(ctx, keyRefresh(hash), &rt); err != nil {
		return err
	}
	if rt.Revoked {
		return nil
	}
	rt.Revoked = true

	return r.put(ctx, keyRefresh(hash), rt)
}
