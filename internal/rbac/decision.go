package rbac

// Decision is the derived outcome of a navigation check. It is never persisted.

type Decision struct {
	Outcome Outcome `json:"outcome"`

	// Target and Reason are set only for redirects.
	Target string `json:"target,omitempty"`
	Reason Reason `json:"reason,omitempty"`

	// From carries the originally requested path on login redirects so a
	// successful login can return the user there.
	From string `json:"from,omitempty"`
}

type Outcome string

const (
	OutcomeAllow    Outcome = "allow"
	OutcomeRedirect Outcome = "redirect"
)

type Reason string

const (
	ReasonUnauthenticated  Reason = "unauthenticated"
	ReasonRoleNotPermitted Reason = "role_not_permitted"
)

const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

func (d Decision) Allowed() bool { return d.Outcome == OutcomeAllow }

func allow() Decision { return Decision{Outcome: OutcomeAllow} }

func redirectToLogin(from string) Decision {
	return Decision{Outcome: OutcomeRedirect, Target: LoginPath, Reason: ReasonUnauthenticated, From: from}
}

func redirectUnauthorized() Decision {
	return Decision{Outcome: OutcomeRedirect, Target: UnauthorizedPath, Reason: ReasonRoleNotPermitted}
}
