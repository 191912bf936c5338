package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const defaultTimeout = 15 * time.Second

// Client is the outbound gateway every view uses for backend data. It
// resolves paths against the backend base URL and runs them through the
// session Transport.
type Client struct {
	base *url.URL
	http *http.Client
}

type Options struct {
	BaseURL string
	Timeout time.Duration
}

func New(opts Options, t *Transport) (*Client, error) {
	base, err := ParseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.New("httpclient: transport is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		base: base,
		http: &http.Client{Transport: t, Timeout: timeout},
	}, nil
}

// ParseBaseURL accepts absolute http(s) URLs only.
func ParseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("httpclient: invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("httpclient: base url must be absolute http(s), got %q", raw)
	}
	return u, nil
}

// Resolve joins a backend path (and optional query) onto the base URL.
func Resolve(base *url.URL, path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("httpclient: invalid path %q: %w", path, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return nil, fmt.Errorf("httpclient: path must be relative, got %q", path)
	}
	out := *base
	out.Path = strings.TrimRight(base.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	out.RawQuery = ref.RawQuery
	return &out, nil
}

// NewRequest builds a request for a backend path. A non-nil body is encoded
// as JSON.
func (c *Client) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	u, err := Resolve(c.base, path)
	if err != nil {
		return nil, err
	}

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("httpclient: encode body: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do sends req. Responses of any status are returned; only transport and
// session failures are errors. Typed errors are unwrapped from *url.Error.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, unwrapURLError(err)
	}
	return resp, nil
}

// DoJSON sends a JSON request and decodes a 2xx body into out (when non-nil).
// Non-2xx answers become *StatusError.
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any) error {
	req, err := c.NewRequest(ctx, method, path, in)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &StatusError{
			StatusCode: resp.StatusCode,
			Method:     method,
			URL:        redactURL(req),
			Message:    errorMessage(b),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("httpclient: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.DoJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.DoJSON(ctx, http.MethodPost, path, in, out)
}

// BaseURL returns a copy of the backend base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

func unwrapURLError(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	var se *StatusError
	if errors.As(ue.Err, &se) {
		return se
	}
	var ne *NetworkError
	if errors.As(ue.Err, &ne) {
		return ne
	}
	// Client-level timeouts never reach the transport.
	return &NetworkError{Method: ue.Op, URL: ue.URL, Err: ue.Err}
}

// errorMessage pulls "error" or "message" out of a JSON error body.
func errorMessage(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &body); err != nil {
		return ""
	}
	if body.Error != "" {
		return body.Error
	}
	return body.Message
}
