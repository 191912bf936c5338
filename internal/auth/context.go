package auth

import (
	"context"
	"errors"

	"academic-portal/internal/session"
)

type ctxKey int

const ctxProfile ctxKey = iota

// WithProfile stores the current user's profile on a request context so
// views do not each go back to the token store.
func WithProfile(ctx context.Context, p session.UserProfile) context.Context {
	return context.WithValue(ctx, ctxProfile, p)
}

func ProfileFrom(ctx context.Context) (session.UserProfile, error) {
	if p, ok := ctx.Value(ctxProfile).(session.UserProfile); ok && p.Role.Valid() {
		return p, nil
	}
	return session.UserProfile{}, errors.New("profile not in context")
}
