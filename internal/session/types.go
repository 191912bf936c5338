package session

import (
	"bytes"
	"strconv"

	"academic-portal/internal/rbac"

	"github.com/goccy/go-json"
)

// Persisted keys. They mirror what the browser dashboard keeps in local
// storage, so a store written by one build is readable by the next.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

var allKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

// Session is the pair of bearer credentials held for the current client.
// An empty AccessToken means the client is anonymous regardless of
// RefreshToken.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (s Session) Anonymous() bool { return s.AccessToken == "" }

// UserProfile is the identity returned by the backend at login.
type UserProfile struct {
	ID          UserID    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Role        rbac.Role `json:"role"`
	Department  string    `json:"department,omitempty"`
}

// UserID accepts both numeric and string ids from the backend.
type UserID string

func (id *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*id = UserID(n.String())
	return nil
}

func (id UserID) String() string { return string(id) }

func encodeProfile(p UserProfile) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeProfile treats a profile without a known role as undecodable.
func decodeProfile(raw string) (UserProfile, bool) {
	var p UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return UserProfile{}, false
	}
	if !p.Role.Valid() {
		return UserProfile{}, false
	}
	return p, true
}
