package rbac

import (
	"context"
	"testing"
)

// fakeState is a session view with a fixed answer.
type fakeState struct {
	session bool
	role    Role
	roleOK  bool
}

func (f fakeState) HasSession(context.Context) bool { return f.session }

func (f fakeState) CurrentRole(context.Context) (Role, bool) { return f.role, f.roleOK }

func signedIn(r Role) fakeState { return fakeState{session: true, role: r, roleOK: true} }

func TestCanEnter_NoSessionRedirectsToLogin(t *testing.T) {
	g := NewGuard(fakeState{})

	d := g.CanEnter(context.Background(), "/hod/dashboard", NewSet(RoleHOD))
	if d.Allowed() || d.Target != LoginPath || d.Reason != ReasonUnauthenticated {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if d.From != "/hod/dashboard" {
		t.Fatalf("expected From to remember the path, got %q", d.From)
	}
}

func TestCanEnter_WrongRoleRedirectsToUnauthorized(t *testing.T) {
	g := NewGuard(signedIn(RoleFaculty))

	d := g.CanEnter(context.Background(), "/principal/dashboard", NewSet(RolePrincipal, RoleAdmin))
	if d.Allowed() || d.Target != UnauthorizedPath || d.Reason != ReasonRoleNotPermitted {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if d.From != "" {
		t.Fatalf("unauthorized redirects carry no return path, got %q", d.From)
	}
}

func TestCanEnter_MatchingRoleAllowed(t *testing.T) {
	g := NewGuard(signedIn(RoleHOD))

	if d := g.CanEnter(context.Background(), "/hod/dashboard", NewSet(RoleHOD)); !d.Allowed() {
		t.Fatalf("expected allow, got %+v", d)
	}
}

func TestCanEnter_EmptyRequirementAdmitsAnyRole(t *testing.T) {
	for _, r := range []Role{RoleFaculty, RoleHOD, RolePrincipal, RoleAdmin} {
		g := NewGuard(signedIn(r))
		if d := g.CanEnter(context.Background(), "/dashboard", Any()); !d.Allowed() {
			t.Fatalf("%s: expected allow, got %+v", r, d)
		}
	}
}

func TestCanEnter_SessionWithoutRoleIsUnauthenticated(t *testing.T) {
	g := NewGuard(fakeState{session: true})

	d := g.CanEnter(context.Background(), "/dashboard", Any())
	if d.Allowed() || d.Target != LoginPath {
		t.Fatalf("expected login redirect, got %+v", d)
	}
}

func TestCanEnter_NilGuardDenies(t *testing.T) {
	var g *Guard
	if d := g.CanEnter(context.Background(), "/dashboard", Any()); d.Allowed() {
		t.Fatalf("nil guard must not allow")
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole(" hod "); err != nil || r != RoleHOD {
		t.Fatalf("expected hod, got %q %v", r, err)
	}
	if _, err := ParseRole("dean"); err == nil {
		t.Fatalf("expected unknown role to fail")
	}
	var r Role
	if err := r.UnmarshalText([]byte("superuser")); err == nil {
		t.Fatalf("expected decode failure")
	}
}

func TestHomePath(t *testing.T) {
	cases := map[Role]string{
		RoleFaculty:   "/faculty/dashboard",
		RoleHOD:       "/hod/dashboard",
		RolePrincipal: "/principal/dashboard",
		RoleAdmin:     "/dashboard",
	}
	for r, want := range cases {
		if got := HomePath(r); got != want {
			t.Fatalf("%s: expected %s, got %s", r, want, got)
		}
	}
}

func TestSafeReturnPath(t *testing.T) {
	cases := map[string]string{
		"/hod/dashboard":       "/hod/dashboard",
		"/reports?term=2":      "/reports?term=2",
		"":                     "",
		"https://evil.example": "",
		"//evil.example":       "",
		"/\\evil.example":      "",
		"/login":               "",
		"/login?from=/x":       "",
		"/\t/evil.example":     "",
		"/\n/evil.example":     "",
		"/a\r\nSet-Cookie: x":  "",
		"/del\x7f":             "",
	}
	for in, want := range cases {
		if got := SafeReturnPath(in); got != want {
			t.Fatalf("SafeReturnPath(%q) = %q, want %q", in, got, want)
		}
	}
}
