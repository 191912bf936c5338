package session

import (
	"context"
	"errors"
	"testing"

	"academic-portal/internal/rbac"
)

func newTestStore() (*Store, *MemoryBackend) {
	b := NewMemoryBackend()
	return NewStore(b, nil), b
}

func TestStore_GetAbsentWhenEmpty(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	if _, ok := s.Get(ctx); ok {
		t.Fatalf("expected absent session")
	}
	if _, ok := s.Profile(ctx); ok {
		t.Fatalf("expected absent profile")
	}
	if s.IsAuthenticated(ctx) {
		t.Fatalf("expected unauthenticated")
	}
}

func TestStore_RefreshTokenWithoutAccessTokenIsAnonymous(t *testing.T) {
	s, b := newTestStore()
	ctx := context.Background()
	_ = b.Save(ctx, map[string]string{KeyRefreshToken: "r1"})

	if _, ok := s.Get(ctx); ok {
		t.Fatalf("expected anonymous without access token")
	}
	if rt, ok := s.RefreshToken(ctx); !ok || rt != "r1" {
		t.Fatalf("expected refresh token r1, got %q", rt)
	}
}

func TestStore_SetAccessTokenKeepsRefreshToken(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	if err := s.Set(ctx, Session{AccessToken: "a1", RefreshToken: "r1"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetAccessToken(ctx, "a2"); err != nil {
		t.Fatalf("set access: %v", err)
	}
	got, ok := s.Get(ctx)
	if !ok || got.AccessToken != "a2" || got.RefreshToken != "r1" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestStore_ProfileRoundTrip(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	p := UserProfile{ID: "7", Username: "hod", DisplayName: "Head", Role: rbac.RoleHOD, Department: "CSE"}
	if err := s.SetProfile(ctx, p); err != nil {
		t.Fatalf("set profile: %v", err)
	}
	got, ok := s.Profile(ctx)
	if !ok || got != p {
		t.Fatalf("unexpected profile: %+v", got)
	}
	if role, ok := s.CurrentRole(ctx); !ok || role != rbac.RoleHOD {
		t.Fatalf("unexpected role %q", role)
	}
}

func TestStore_UndecodableProfileIsAbsent(t *testing.T) {
	s, b := newTestStore()
	ctx := context.Background()

	for _, raw := range []string{
		"{not json",
		`{"id":1,"username":"x","role":"janitor"}`,
		`{"id":1,"username":"x"}`,
	} {
		_ = b.Save(ctx, map[string]string{KeyUser: raw})
		if _, ok := s.Profile(ctx); ok {
			t.Fatalf("expected absent profile for %q", raw)
		}
	}
}

func TestStore_SetProfileRejectsUnknownRole(t *testing.T) {
	s, b := newTestStore()
	if err := s.SetProfile(context.Background(), UserProfile{Username: "x", Role: "janitor"}); err == nil {
		t.Fatalf("expected error")
	}
	if len(b.Snapshot()) != 0 {
		t.Fatalf("expected nothing written")
	}
}

func TestStore_ResetClearsAllKeysAndBumpsEpoch(t *testing.T) {
	s, b := newTestStore()
	ctx := context.Background()

	_ = s.Set(ctx, Session{AccessToken: "a", RefreshToken: "r"})
	_ = s.SetProfile(ctx, UserProfile{ID: "1", Username: "f", Role: rbac.RoleFaculty})
	before := s.Epoch()

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n := len(b.Snapshot()); n != 0 {
		t.Fatalf("expected empty backend, got %d keys", n)
	}
	if s.Epoch() != before+1 {
		t.Fatalf("expected epoch bump")
	}
	if s.IsAuthenticated(ctx) {
		t.Fatalf("expected unauthenticated after reset")
	}
}

func TestStore_RotateKeepsValues(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	_ = s.Set(ctx, Session{AccessToken: "a", RefreshToken: "r"})

	before := s.Epoch()
	if got := s.Rotate(); got != before+1 || s.Epoch() != got {
		t.Fatalf("expected epoch %d, got %d", before+1, got)
	}
	if sess, ok := s.Get(ctx); !ok || sess.AccessToken != "a" {
		t.Fatalf("rotate must not touch the session, got %+v", sess)
	}
}

type failingBackend struct{}

func (failingBackend) Load(context.Context, string) (string, bool, error) {
	return "", false, errors.New("down")
}
func (failingBackend) Save(context.Context, map[string]string) error { return errors.New("down") }
func (failingBackend) Remove(context.Context, ...string) error       { return errors.New("down") }

func TestStore_BackendFailureReadsAsAbsent(t *testing.T) {
	s := NewStore(failingBackend{}, nil)
	ctx := context.Background()

	if _, ok := s.Get(ctx); ok {
		t.Fatalf("expected absent")
	}
	if err := s.Set(ctx, Session{AccessToken: "a"}); err == nil {
		t.Fatalf("expected save error")
	}
}

func TestUserID_AcceptsNumbersAndStrings(t *testing.T) {
	for raw, want := range map[string]UserID{
		`{"id":42,"username":"a","role":"admin"}`:   "42",
		`{"id":"u-1","username":"a","role":"admin"}`: "u-1",
	} {
		p, ok := decodeProfile(raw)
		if !ok || p.ID != want {
			t.Fatalf("decode %s: got %+v ok=%v", raw, p, ok)
		}
	}
}
