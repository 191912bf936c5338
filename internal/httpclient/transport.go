package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"academic-portal/internal/session"
	"academic-portal/pkg/logger"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "

	// LoginPath is where the client sends the user after a refresh failure.
	LoginPath = "/login"
)

// Authenticator is the part of the auth gateway the transport drives.
type Authenticator interface {
	// Refresh exchanges the stored refresh token for a new access token.
	Refresh(ctx context.Context) (string, error)
	// Logout clears local session state; it must succeed without network.
	Logout(ctx context.Context) error
	// Bind derives a context that is canceled when the session ends.
	Bind(ctx context.Context) (context.Context, context.CancelFunc)
}

// Navigator forces the user somewhere else, e.g. the login page.
type Navigator interface {
	Navigate(ctx context.Context, target string)
}

// Transport attaches the bearer token to every request and, on a 401,
// refreshes once and resubmits once.
//
// Protocol per logical request:
//  1. attach Authorization from the token store when a session exists
//  2. on 401 with retry budget left: spend it, refresh, resubmit with the new token
//  3. on refresh failure: logout, navigate to /login, return the original 401
//  4. on 401 with no budget left: return the response untouched
type Transport struct {
	Base      http.RoundTripper
	Tokens    session.Reader
	Auth      Authenticator
	Navigator Navigator
	Log       *slog.Logger
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	origCtx := req.Context()
	state := RetryStateFrom(origCtx)
	if state == nil {
		state = NewRetryState()
		origCtx = WithRetryState(origCtx, state)
	}

	ctx, cancel := origCtx, context.CancelFunc(func() {})
	if t.Auth != nil {
		ctx, cancel = t.Auth.Bind(origCtx)
	}

	out, err := replayable(req.Clone(ctx))
	if err != nil {
		cancel()
		return nil, &NetworkError{Method: req.Method, URL: redactURL(req), Err: err}
	}

	epoch := t.epoch()
	if sess, ok := t.session(ctx); ok {
		out.Header.Set(authorizationHeader, bearerPrefix+sess.AccessToken)
	}

	start := time.Now()
	resp, err := t.send(out)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || t.Auth == nil {
		t.logResult(ctx, out, resp.StatusCode, state, start)
		return withCancel(resp, cancel), nil
	}

	// Already retried: surface the 401 as-is.
	if !state.take() {
		t.logResult(ctx, out, resp.StatusCode, state, start)
		return withCancel(resp, cancel), nil
	}

	original := snapshot(resp)
	t.logger(ctx).Debug("access token rejected; refreshing", "method", out.Method, "path", out.URL.Path)

	token, rerr := t.Auth.Refresh(ctx)
	if rerr != nil {
		cancel()
		// The session this request ran under is already gone; ending the
		// current one would log out whoever signed in since.
		if errors.Is(rerr, ErrSessionEnded) {
			return nil, &StatusError{StatusCode: original.status, Method: out.Method, URL: redactURL(out), Message: original.message, Err: rerr}
		}
		if isTransient(rerr) {
			if t.epoch() != epoch {
				return nil, &StatusError{StatusCode: original.status, Method: out.Method, URL: redactURL(out), Err: ErrSessionEnded}
			}
			return nil, rerr
		}
		t.endSession(origCtx)
		return nil, &StatusError{
			StatusCode: original.status,
			Method:     out.Method,
			URL:        redactURL(out),
			Message:    original.message,
			Err:        rerr,
		}
	}

	if t.epoch() != epoch {
		cancel()
		return nil, &StatusError{
			StatusCode: original.status,
			Method:     out.Method,
			URL:        redactURL(out),
			Message:    original.message,
			Err:        ErrSessionEnded,
		}
	}

	retry, err := rewind(out.Clone(ctx))
	if err != nil {
		cancel()
		return nil, &NetworkError{Method: out.Method, URL: redactURL(out), Err: err}
	}
	retry.Header.Set(authorizationHeader, bearerPrefix+token)

	resp, err = t.send(retry)
	if err != nil {
		cancel()
		return nil, err
	}
	t.logResult(ctx, retry, resp.StatusCode, state, start)
	return withCancel(resp, cancel), nil
}

func (t *Transport) send(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, &NetworkError{Method: req.Method, URL: redactURL(req), Err: err}
	}
	return resp, nil
}

// endSession runs the forced logout. It uses the caller's context, not the
// bound one, because the bound one dies with the session.
func (t *Transport) endSession(ctx context.Context) {
	if err := t.Auth.Logout(ctx); err != nil {
		t.logger(ctx).Error("forced logout failed", "err", err)
	}
	if t.Navigator != nil {
		t.Navigator.Navigate(ctx, LoginPath)
	}
}

func (t *Transport) session(ctx context.Context) (session.Session, bool) {
	if t.Tokens == nil {
		return session.Session{}, false
	}
	return t.Tokens.Get(ctx)
}

func (t *Transport) epoch() uint64 {
	if t.Tokens == nil {
		return 0
	}
	return t.Tokens.Epoch()
}

func (t *Transport) logger(ctx context.Context) *slog.Logger {
	if t.Log != nil {
		return t.Log
	}
	return logger.From(ctx)
}

func (t *Transport) logResult(ctx context.Context, req *http.Request, status int, state *RetryState, start time.Time) {
	t.logger(ctx).Debug("api request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", status,
		"retried", state.Retried(),
		"duration_ms", float64(time.Since(start).Milliseconds()),
	)
}

// isTransient separates "could not reach the backend" from "the backend
// said no". Only the latter ends the session.
func isTransient(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// replayable makes sure req.Body can be produced again for a resubmission.
func replayable(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return req, nil
	}
	buf, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, err
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}
	req.Body, _ = req.GetBody()
	req.ContentLength = int64(len(buf))
	return req, nil
}

// rewind gives a cloned request a fresh copy of its body.
func rewind(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody == nil {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	req.Body = body
	return req, nil
}

type rejected struct {
	status  int
	message string
}

// snapshot drains and closes a response that will not reach the caller.
func snapshot(resp *http.Response) rejected {
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return rejected{status: resp.StatusCode, message: errorMessage(b)}
}

func redactURL(req *http.Request) string {
	if req == nil || req.URL == nil {
		return ""
	}
	u := *req.URL
	u.User = nil
	u.RawQuery = ""
	return u.String()
}

// cancelOnClose releases the bound context once the caller is done with the
// body; canceling earlier would cut the body off mid-read.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func withCancel(resp *http.Response, cancel context.CancelFunc) *http.Response {
	if resp.Body == nil {
		cancel()
		return resp
	}
	resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp
}
