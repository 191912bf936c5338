package auth

import "github.com/goccy/go-json"

// Backend endpoints consumed by the gateway.
const (
	loginPath   = "/api/auth/login"
	refreshPath = "/api/auth/refresh"

	// DefaultLogoutPath is notified best-effort on logout.
	DefaultLogoutPath = "/api/auth/logout"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse keeps the user raw so an unknown role can be reported as a
// profile problem rather than a generic decode failure.
type loginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	User         json.RawMessage `json:"user"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}
