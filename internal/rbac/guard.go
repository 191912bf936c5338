package rbac

import (
	"context"
	"net/url"
	"strings"
)

// SessionState is the read-only view of the token store the guard needs.
// The guard never mutates session state.
type SessionState interface {
	// HasSession reports whether an access token is currently stored.
	HasSession(ctx context.Context) bool
	// CurrentRole returns the stored profile's role; false when the profile
	// is absent or does not decode to a known role.
	CurrentRole(ctx context.Context) (Role, bool)
}

// Guard is the navigation-time authorization checkpoint evaluated before a
// protected view renders.
type Guard struct {
	state SessionState
}

func NewGuard(state SessionState) *Guard {
	return &Guard{state: state}
}

// CanEnter decides whether path may be rendered for the current session.
// Rules:
// - no session: redirect to /login, remembering path
// - session without a known role: treated the same as no session
// - required non-empty and role not in it: redirect to /unauthorized
// - otherwise allow
func (g *Guard) CanEnter(ctx context.Context, path string, required Set) Decision {
	if g == nil || g.state == nil || !g.state.HasSession(ctx) {
		return redirectToLogin(path)
	}

	role, ok := g.state.CurrentRole(ctx)
	if !ok {
		return redirectToLogin(path)
	}

	if !required.Empty() && !required.Contains(role) {
		return redirectUnauthorized()
	}
	return allow()
}

// SafeReturnPath returns from when it is a same-origin absolute path that is
// not the login page itself, otherwise "".
func SafeReturnPath(from string) string {
	from = strings.TrimSpace(from)
	if from == "" || !strings.HasPrefix(from, "/") {
		return ""
	}
	// Browsers drop tabs and newlines from URLs, so "/\t/host" becomes "//host".
	for i := 0; i < len(from); i++ {
		if from[i] < 0x20 || from[i] == 0x7f {
			return ""
		}
	}
	// "//host" and "/\host" are scheme-relative in browsers.
	if strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return ""
	}
	if u, err := url.Parse(from); err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	if from == LoginPath || strings.HasPrefix(from, LoginPath+"?") {
		return ""
	}
	return from
}
