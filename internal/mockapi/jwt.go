package mockapi

import (
	"errors"
	"time"

	"academic-portal/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const clockSkew = 30 * time.Second

type Manager struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(cfg config.AuthConfig) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}

	return &Manager{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		audience:   cfg.JWTAudience,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}, nil
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
}

/* ===================== ISSUE TOKENS ===================== */

func (m *Manager) IssuePair(now time.Time, a Account) (TokenPair, error) {
	sid := uuid.NewString()

	access, err := m.issue(now, TokenTypeAccess, a, sid, m.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := m.issue(now, TokenTypeRefresh, a, sid, m.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		SessionID:    sid,
	}, nil
}

// IssueAccess mints a new access token within an existing session.
func (m *Manager) IssueAccess(now time.Time, a Account, sessionID string) (string, error) {
	return m.issue(now, TokenTypeAccess, a, sessionID, m.accessTTL)
}

/* ===================== VERIFY TOKEN ===================== */

func (m *Manager) Verify(tokenString string, expected TokenType, now time.Time) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(clockSkew),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	claims, err := m.parse(tokenString, opts...)
	if err != nil {
		return Claims{}, err
	}
	return claims, checkCustom(claims, expected)
}

// Inspect checks the signature and shape of a token but not its lifetime.
// Logout uses it so an expired access token still ends its session.
func (m *Manager) Inspect(tokenString string, expected TokenType) (Claims, error) {
	claims, err := m.parse(tokenString,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, err
	}
	return claims, checkCustom(claims, expected)
}

func (m *Manager) parse(tokenString string, opts ...jwt.ParserOption) (Claims, error) {
	var claims Claims
	_, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return Claims{}, err
	}
	return claims, nil
}

func checkCustom(claims Claims, expected TokenType) error {
	if claims.TokenType != expected {
		return errors.New("token_type mismatch")
	}
	if claims.UserID == "" {
		return errors.New("user_id missing")
	}
	if claims.SessionID == "" {
		return errors.New("sid missing")
	}

	// Role is required ONLY for access tokens
	if expected == TokenTypeAccess && claims.Role == "" {
		return errors.New("role missing in access token")
	}
	return nil
}

/* ===================== INTERNAL ISSUE ===================== */

func (m *Manager) issue(now time.Time, tokenType TokenType, a Account, sessionID string, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   a.ID,
			Audience:  audienceOrNil(m.audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		UserID:    a.ID,
		Username:  a.Username,
		SessionID: sessionID,
		TokenType: tokenType,
	}
	if tokenType == TokenTypeAccess {
		claims.Role = a.Role.String()
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(m.secret)
}

func audienceOrNil(aud string) jwt.ClaimStrings {
	if aud == "" {
		return nil
	}
	return jwt.ClaimStrings{aud}
}
