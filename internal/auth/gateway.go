package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"academic-portal/internal/audit"
	"academic-portal/internal/httpclient"
	"academic-portal/internal/session"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout       = 15 * time.Second
	logoutNotifyTimeout  = 5 * time.Second
	maxResponseBodyBytes = 1 << 20
)

// Recorder receives credential events. Recording is best-effort.
type Recorder interface {
	Record(ctx context.Context, typ audit.EventType, username, role, message string) error
}

type Config struct {
	// BaseURL is the academic backend, e.g. http://localhost:5000.
	BaseURL string
	Timeout time.Duration
	// LogoutPath is notified on logout; empty disables the notification.
	LogoutPath string
	// HTTPClient overrides the client used for auth calls. It must not be
	// the session client: auth calls carry their own credentials.
	HTTPClient *http.Client
}

// Gateway performs login, refresh and logout against the backend and is the
// only writer of the token store.
//
// States: Anonymous -(login)-> Authenticated -(refresh ok)-> Authenticated
// -(refresh rejected | logout)-> Anonymous.
type Gateway struct {
	base       *url.URL
	client     *http.Client
	logoutPath string

	store *session.Store
	rec   Recorder
	log   *slog.Logger

	// flights coalesces concurrent refreshes keyed by refresh token.
	flights singleflight.Group

	// writeMu serializes store writes that depend on the logout epoch.
	writeMu sync.Mutex

	mu       sync.Mutex
	lifetime context.Context
	end      context.CancelCauseFunc
}

func NewGateway(cfg Config, store *session.Store, rec Recorder, log *slog.Logger) (*Gateway, error) {
	if store == nil {
		return nil, errors.New("auth: token store is required")
	}
	base, err := httpclient.ParseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	if log == nil {
		log = slog.Default()
	}

	g := &Gateway{
		base:       base,
		client:     client,
		logoutPath: cfg.LogoutPath,
		store:      store,
		rec:        rec,
		log:        log,
	}
	g.lifetime, g.end = context.WithCancelCause(context.Background())
	return g, nil
}

// Login exchanges credentials for a session. On success the session and
// profile are both stored; on any failure nothing is stored.
func (g *Gateway) Login(ctx context.Context, username, password string) (session.Session, session.UserProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		g.record(ctx, audit.EventLoginFailed, username, "", "missing credentials")
		return session.Session{}, session.UserProfile{}, ErrInvalidCredentials
	}

	status, body, err := g.post(ctx, loginPath, "", loginRequest{Username: username, Password: password})
	if err != nil {
		g.record(ctx, audit.EventLoginFailed, username, "", "backend unreachable")
		return session.Session{}, session.UserProfile{}, err
	}
	if status >= http.StatusInternalServerError {
		g.record(ctx, audit.EventLoginFailed, username, "", fmt.Sprintf("backend status %d", status))
		return session.Session{}, session.UserProfile{}, g.statusError(status, loginPath, body)
	}
	if status < 200 || status > 299 {
		g.record(ctx, audit.EventLoginFailed, username, "", "rejected")
		return session.Session{}, session.UserProfile{}, ErrInvalidCredentials
	}

	sess, profile, err := decodeLogin(body)
	if err != nil {
		g.log.Warn("login response rejected", "username", username, "err", err)
		g.record(ctx, audit.EventLoginFailed, username, "", err.Error())
		return session.Session{}, session.UserProfile{}, err
	}

	g.writeMu.Lock()
	err = g.writeLogin(ctx, sess, profile)
	g.writeMu.Unlock()
	if err != nil {
		g.record(ctx, audit.EventLoginFailed, username, profile.Role.String(), "store write failed")
		return session.Session{}, session.UserProfile{}, err
	}

	g.log.Info("login", "username", profile.Username, "role", profile.Role)
	g.record(ctx, audit.EventLogin, profile.Username, profile.Role.String(), "")
	return sess, profile, nil
}

func (g *Gateway) writeLogin(ctx context.Context, sess session.Session, profile session.UserProfile) error {
	// Requests still running for a previous session must not continue under
	// the new one.
	g.endLifetime()
	g.store.Rotate()

	if err := g.store.Set(ctx, sess); err != nil {
		return err
	}
	if err := g.store.SetProfile(ctx, profile); err != nil {
		if rerr := g.store.Reset(ctx); rerr != nil {
			g.log.Error("rollback after profile write failed", "err", rerr)
		}
		return err
	}
	return nil
}

func decodeLogin(body []byte) (session.Session, session.UserProfile, error) {
	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return session.Session{}, session.UserProfile{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if lr.AccessToken == "" || lr.RefreshToken == "" {
		return session.Session{}, session.UserProfile{}, fmt.Errorf("%w: missing tokens", ErrInvalidProfile)
	}
	if len(lr.User) == 0 {
		return session.Session{}, session.UserProfile{}, fmt.Errorf("%w: missing user", ErrInvalidProfile)
	}

	var p session.UserProfile
	if err := json.Unmarshal(lr.User, &p); err != nil {
		return session.Session{}, session.UserProfile{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if !p.Role.Valid() {
		return session.Session{}, session.UserProfile{}, fmt.Errorf("%w: role %q", ErrInvalidProfile, string(p.Role))
	}
	return session.Session{AccessToken: lr.AccessToken, RefreshToken: lr.RefreshToken}, p, nil
}

// Refresh exchanges the stored refresh token for a new access token and
// writes only the access token back. Concurrent callers holding the same
// refresh token share one backend call and its result.
//
// A rejected or missing refresh token ends the session locally and returns
// ErrRefreshFailed. Transport failures return *httpclient.NetworkError and
// leave the session alone.
func (g *Gateway) Refresh(ctx context.Context) (string, error) {
	// Read under the write lock so the token and epoch belong to the same
	// session even when a login is being written.
	g.writeMu.Lock()
	epoch := g.store.Epoch()
	rt, ok := g.store.RefreshToken(ctx)
	g.writeMu.Unlock()
	if !ok {
		g.expire(ctx, epoch, "no refresh token")
		return "", ErrRefreshFailed
	}

	ch := g.flights.DoChan(rt, func() (any, error) {
		fctx, cancel := g.Bind(context.WithoutCancel(ctx))
		defer cancel()
		return g.exchange(fctx, rt, epoch)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (g *Gateway) exchange(ctx context.Context, refreshToken string, epoch uint64) (string, error) {
	status, body, err := g.post(ctx, refreshPath, refreshToken, nil)
	if err != nil {
		if g.store.Epoch() != epoch {
			return "", fmt.Errorf("%w: %w", ErrRefreshFailed, ErrSessionEnded)
		}
		g.log.Warn("refresh request failed", "err", err)
		return "", err
	}
	if status < 200 || status > 299 {
		g.expire(ctx, epoch, fmt.Sprintf("backend status %d", status))
		return "", fmt.Errorf("%w: backend answered %d", ErrRefreshFailed, status)
	}

	var rr refreshResponse
	if err := json.Unmarshal(body, &rr); err != nil || rr.AccessToken == "" {
		g.expire(ctx, epoch, "unusable refresh response")
		return "", fmt.Errorf("%w: unusable response", ErrRefreshFailed)
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	if g.store.Epoch() != epoch {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, ErrSessionEnded)
	}
	if err := g.store.SetAccessToken(ctx, rr.AccessToken); err != nil {
		return "", err
	}

	p, _ := g.store.Profile(ctx)
	g.log.Debug("access token refreshed", "username", p.Username)
	g.record(ctx, audit.EventRefresh, p.Username, p.Role.String(), "")
	return rr.AccessToken, nil
}

// expire ends the session after an unrecoverable refresh failure, unless a
// logout already ended it.
func (g *Gateway) expire(ctx context.Context, epoch uint64, reason string) {
	p, _ := g.store.Profile(ctx)

	g.writeMu.Lock()
	if g.store.Epoch() == epoch {
		if err := g.store.Reset(context.WithoutCancel(ctx)); err != nil {
			g.log.Error("session reset failed", "err", err)
		}
		g.endLifetime()
	}
	g.writeMu.Unlock()

	g.log.Info("refresh failed; session ended", "username", p.Username, "reason", reason)
	g.record(ctx, audit.EventRefreshFailed, p.Username, p.Role.String(), reason)
}

// Logout clears the session and profile unconditionally and cancels every
// request bound to the ended session. The backend is told best-effort; its
// answer does not matter. Only a logout that ended a session is recorded.
func (g *Gateway) Logout(ctx context.Context) error {
	sess, hadSession := g.store.Get(ctx)
	p, _ := g.store.Profile(ctx)

	g.writeMu.Lock()
	err := g.store.Reset(context.WithoutCancel(ctx))
	g.endLifetime()
	g.writeMu.Unlock()

	if hadSession && g.logoutPath != "" {
		g.notifyLogout(ctx, sess.AccessToken)
	}

	if err != nil {
		g.log.Error("logout: local clear failed", "err", err)
		return err
	}
	// A refresh failure already ended and recorded the session.
	if !hadSession {
		return nil
	}
	g.log.Info("logout", "username", p.Username)
	g.record(ctx, audit.EventLogout, p.Username, p.Role.String(), "")
	return nil
}

func (g *Gateway) notifyLogout(ctx context.Context, accessToken string) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutNotifyTimeout)
	defer cancel()

	status, _, err := g.post(nctx, g.logoutPath, accessToken, nil)
	if err != nil {
		g.log.Debug("logout notification failed", "err", err)
		return
	}
	if status < 200 || status > 299 {
		g.log.Debug("logout notification rejected", "status", status)
	}
}

// Authenticated reports whether a session with a usable profile is stored.
func (g *Gateway) Authenticated(ctx context.Context) bool {
	return g.store.IsAuthenticated(ctx)
}

// Bind derives a context from parent that is canceled, with cause
// ErrSessionEnded, when the current session ends.
func (g *Gateway) Bind(parent context.Context) (context.Context, context.CancelFunc) {
	g.mu.Lock()
	life := g.lifetime
	g.mu.Unlock()

	ctx, cancel := context.WithCancelCause(parent)
	stop := context.AfterFunc(life, func() { cancel(ErrSessionEnded) })
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}

func (g *Gateway) endLifetime() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.end(ErrSessionEnded)
	g.lifetime, g.end = context.WithCancelCause(context.Background())
}

func (g *Gateway) post(ctx context.Context, path, bearer string, in any) (int, []byte, error) {
	u, err := httpclient.Resolve(g.base, path)
	if err != nil {
		return 0, nil, err
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("auth: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, &httpclient.NetworkError{Method: req.Method, URL: u.String(), Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return 0, nil, &httpclient.NetworkError{Method: req.Method, URL: u.String(), Err: err}
	}
	return resp.StatusCode, b, nil
}

func (g *Gateway) statusError(status int, path string, body []byte) error {
	var eb struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &eb)
	return &httpclient.StatusError{
		StatusCode: status,
		Method:     http.MethodPost,
		URL:        g.base.String() + path,
		Message:    eb.Error,
	}
}

func (g *Gateway) record(ctx context.Context, typ audit.EventType, username, role, message string) {
	if g.rec == nil {
		return
	}
	if err := g.rec.Record(ctx, typ, username, role, message); err != nil {
		g.log.Debug("audit record failed", "type", typ, "err", err)
	}
}

var _ httpclient.Authenticator = (*Gateway)(nil)
