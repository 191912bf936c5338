package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"academic-portal/internal/rbac"
)

// Backend is the durable key/value storage under a Store.
// Load reports ok=false for a missing key; that is not an error.
type Backend interface {
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	Save(ctx context.Context, values map[string]string) error
	Remove(ctx context.Context, keys ...string) error
}

// Pinger is implemented by backends that talk to a server.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Reader is the read-only view handed to everything except the auth
// gateway. The gateway is the only writer.
type Reader interface {
	Get(ctx context.Context) (Session, bool)
	Profile(ctx context.Context) (UserProfile, bool)
	Epoch() uint64
}

// Store holds the current session and user profile. It is constructed once
// per process and injected; there is no package-level instance.
type Store struct {
	backend Backend
	log     *slog.Logger

	// epoch increments on every clear so in-flight work started under an
	// earlier session can detect that it has been logged out.
	epoch atomic.Uint64
}

var ErrNoBackend = errors.New("session: backend not configured")

func NewStore(backend Backend, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{backend: backend, log: log}
}

// Ping checks the backend is reachable. In-process backends always are.
func (s *Store) Ping(ctx context.Context) error {
	if s.backend == nil {
		return ErrNoBackend
	}
	p, ok := s.backend.(Pinger)
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}

// Get returns the stored session, or false when no access token is stored.
// Backend failures are logged and read as absent.
func (s *Store) Get(ctx context.Context) (Session, bool) {
	access, ok := s.load(ctx, KeyAccessToken)
	if !ok || access == "" {
		return Session{}, false
	}
	refresh, _ := s.load(ctx, KeyRefreshToken)
	return Session{AccessToken: access, RefreshToken: refresh}, true
}

// RefreshToken is readable on its own because refresh needs it even after
// the access token was dropped.
func (s *Store) RefreshToken(ctx context.Context) (string, bool) {
	v, ok := s.load(ctx, KeyRefreshToken)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (s *Store) Set(ctx context.Context, sess Session) error {
	if sess.AccessToken == "" {
		return errors.New("session: access token is required")
	}
	return s.save(ctx, map[string]string{
		KeyAccessToken:  sess.AccessToken,
		KeyRefreshToken: sess.RefreshToken,
	})
}

// SetAccessToken replaces the access token in place, leaving the refresh
// token and profile untouched.
func (s *Store) SetAccessToken(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("session: access token is required")
	}
	return s.save(ctx, map[string]string{KeyAccessToken: token})
}

func (s *Store) Clear(ctx context.Context) error {
	s.epoch.Add(1)
	return s.remove(ctx, KeyAccessToken, KeyRefreshToken)
}

func (s *Store) Profile(ctx context.Context) (UserProfile, bool) {
	raw, ok := s.load(ctx, KeyUser)
	if !ok || raw == "" {
		return UserProfile{}, false
	}
	p, ok := decodeProfile(raw)
	if !ok {
		s.log.Warn("stored profile did not decode; treating as absent")
		return UserProfile{}, false
	}
	return p, true
}

func (s *Store) SetProfile(ctx context.Context, p UserProfile) error {
	if !p.Role.Valid() {
		return fmt.Errorf("session: profile role %q is not a known role", string(p.Role))
	}
	raw, err := encodeProfile(p)
	if err != nil {
		return fmt.Errorf("session: encode profile: %w", err)
	}
	return s.save(ctx, map[string]string{KeyUser: raw})
}

func (s *Store) ClearProfile(ctx context.Context) error {
	return s.remove(ctx, KeyUser)
}

// Reset removes the session and the profile in one backend call.
func (s *Store) Reset(ctx context.Context) error {
	s.epoch.Add(1)
	return s.remove(ctx, allKeys...)
}

func (s *Store) Epoch() uint64 { return s.epoch.Load() }

// Rotate advances the epoch without touching stored values. A login calls it
// before writing so work started under the previous session cannot write
// into the new one.
func (s *Store) Rotate() uint64 { return s.epoch.Add(1) }

// IsAuthenticated requires both a session and a profile with a known role.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	if _, ok := s.Get(ctx); !ok {
		return false
	}
	_, ok := s.Profile(ctx)
	return ok
}

// HasSession and CurrentRole satisfy rbac.SessionState.

func (s *Store) HasSession(ctx context.Context) bool {
	_, ok := s.Get(ctx)
	return ok
}

func (s *Store) CurrentRole(ctx context.Context) (rbac.Role, bool) {
	p, ok := s.Profile(ctx)
	if !ok {
		return "", false
	}
	return p.Role, true
}

func (s *Store) load(ctx context.Context, key string) (string, bool) {
	if s.backend == nil {
		return "", false
	}
	v, ok, err := s.backend.Load(ctx, key)
	if err != nil {
		s.log.Error("session store load failed", "key", key, "err", err)
		return "", false
	}
	return v, ok
}

func (s *Store) save(ctx context.Context, values map[string]string) error {
	if s.backend == nil {
		return ErrNoBackend
	}
	if err := s.backend.Save(ctx, values); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

func (s *Store) remove(ctx context.Context, keys ...string) error {
	if s.backend == nil {
		return ErrNoBackend
	}
	if err := s.backend.Remove(ctx, keys...); err != nil {
		return fmt.Errorf("session: remove: %w", err)
	}
	return nil
}

var (
	_ Reader            = (*Store)(nil)
	_ rbac.SessionState = (*Store)(nil)
)
