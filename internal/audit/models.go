package audit

import "time"

// Event is an append-only record of a credential event on this client.
//
// Invariants:
// - Events are never updated or deleted by callers.
// - Recording is best-effort; session flows never block on it.
// - Tokens are never recorded.

type Event struct {
	ID   string    `json:"id"`
	Type EventType `json:"type"`

	// Username/Role describe the principal when known. A failed login only
	// knows the attempted username.
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`

	Message string `json:"message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type EventType string

const (
	EventLogin         EventType = "login"
	EventLoginFailed   EventType = "login_failed"
	EventRefresh       EventType = "refresh"
	EventRefreshFailed EventType = "refresh_failed"
	EventLogout        EventType = "logout"
)
