package dashboard

import (
	"context"
	"sync"

	"academic-portal/pkg/logger"
)

// redirect captures a forced navigation raised by the session client while
// a handler is running. The handler turns it into an HTTP redirect.
type redirect struct {
	mu     sync.Mutex
	target string
}

func (r *redirect) set(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = target
}

func (r *redirect) Target() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

type redirectKey struct{}

func withRedirect(ctx context.Context) (context.Context, *redirect) {
	r := &redirect{}
	return context.WithValue(ctx, redirectKey{}, r), r
}

// Navigator routes the client's forced navigations to the handler that made
// the request. Outside a handler there is no one to redirect; it only logs.
type Navigator struct{}

func (Navigator) Navigate(ctx context.Context, target string) {
	if r, ok := ctx.Value(redirectKey{}).(*redirect); ok {
		r.set(target)
	}
	logger.From(ctx).Info("session ended; navigating", "target", target)
}
