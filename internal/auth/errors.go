package auth

import (
	"errors"

	"academic-portal/internal/httpclient"
)

var (
	// ErrInvalidCredentials indicates the backend rejected the username or password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrRefreshFailed indicates the refresh token is missing, invalid or expired.
	// It cannot be recovered locally; the session is over.
	ErrRefreshFailed = errors.New("session refresh failed")

	// ErrInvalidProfile indicates a login answer that cannot become a session:
	// missing tokens or a user whose role is not one we know.
	ErrInvalidProfile = errors.New("login response carried an unusable profile")

	// ErrSessionEnded is the cancellation cause of requests bound to a
	// session that has since been logged out or replaced by a new login.
	// It is the transport's sentinel so both layers agree on it.
	ErrSessionEnded = httpclient.ErrSessionEnded
)
