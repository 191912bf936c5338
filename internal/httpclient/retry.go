package httpclient

import (
	"context"
	"sync"
)

// retryBudget bounds every logical request to one refresh-triggered resubmission.
const retryBudget = 1

// RetryState travels with one logical request (including its resubmission)
// and records whether the refresh-then-retry budget has been spent.
type RetryState struct {
	mu       sync.Mutex
	attempts int
}

func NewRetryState() *RetryState { return &RetryState{} }

// Retried reports whether the budget has been consumed.
func (r *RetryState) Retried() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts >= retryBudget
}

// Attempts is the number of refresh-triggered resubmissions taken.
func (r *RetryState) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

// take consumes one unit of budget; false when none is left.
func (r *RetryState) take() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attempts >= retryBudget {
		return false
	}
	r.attempts++
	return true
}

type retryKey struct{}

// WithRetryState attaches state to ctx. Requests built from the returned
// context share it.
func WithRetryState(ctx context.Context, r *RetryState) context.Context {
	return context.WithValue(ctx, retryKey{}, r)
}

// RetryStateFrom returns the state attached to ctx, or nil.
func RetryStateFrom(ctx context.Context) *RetryState {
	if r, ok := ctx.Value(retryKey{}).(*RetryState); ok {
		return r
	}
	return nil
}
