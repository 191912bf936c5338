package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionEnded is returned when the session changed while a request was
// waiting to be resubmitted. The request is not sent again.
var ErrSessionEnded = errors.New("session ended")

// NetworkError is a transport failure (DNS, connect, reset, timeout). It is
// never absorbed by the session layer; views decide how to show it.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	if e == nil {
		return "httpclient: network error"
	}
	return fmt.Sprintf("httpclient: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StatusError is a non-2xx answer from the backend. Err carries the cause
// when the session layer had a say, e.g. a failed refresh after a 401.
type StatusError struct {
	StatusCode int
	Method     string
	URL        string
	Message    string
	Err        error
}

func (e *StatusError) Error() string {
	if e == nil {
		return "httpclient: unexpected status"
	}
	msg := fmt.Sprintf("httpclient: %s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}
