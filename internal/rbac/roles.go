package rbac

import (
	"fmt"
	"strings"
)

// Role is the closed set of dashboard roles. Keep the string values stable;
// they are part of the backend's user payload and the persisted profile.
type Role string

const (
	RoleFaculty   Role = "faculty"
	RoleHOD       Role = "hod"
	RolePrincipal Role = "principal"
	RoleAdmin     Role = "admin"
)

var knownRoles = map[Role]struct{}{
	RoleFaculty:   {},
	RoleHOD:       {},
	RolePrincipal: {},
	RoleAdmin:     {},
}

// ParseRole validates a wire value. Unknown values are an error so callers can
// treat the principal as unauthenticated instead of admitting it.
func ParseRole(v string) (Role, error) {
	r := Role(strings.TrimSpace(v))
	if _, ok := knownRoles[r]; !ok {
		return "", fmt.Errorf("rbac: unknown role %q", v)
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

func (r Role) String() string { return string(r) }

// UnmarshalText rejects unknown roles at the decode boundary.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("rbac: unknown role %q", string(r))
	}
	return []byte(r), nil
}

// Set is a set of roles admitted by a route. The empty set admits any
// authenticated role.
type Set map[Role]struct{}

func NewSet(roles ...Role) Set {
	s := make(Set, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Any is the empty requirement: any authenticated user.
func Any() Set { return Set{} }

func (s Set) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}

func (s Set) Empty() bool { return len(s) == 0 }

// HomePath is where a freshly logged-in user lands when no return path was
// requested.
func HomePath(r Role) string {
	switch r {
	case RoleFaculty:
		return "/faculty/dashboard"
	case RoleHOD:
		return "/hod/dashboard"
	case RolePrincipal:
		return "/principal/dashboard"
	default:
		return "/dashboard"
	}
}
