package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok && raw != nil
}

// WithClaimsContext sets the Claims in the given context
func WithClaimsContext(r context.Context, claims *Claims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the Claims from the standard context
func GetClaims(ctx context.Context) (*Claims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*Claims)
	return raw, ok && raw != nil
}

// GetRouterClaims extracts the Claims stored in the request locals by the
// bearer middleware.
func GetRouterClaims(ctx router.Context, key string) (*Claims, bool) {
	if key == "" {
		key = "user" // Default key used by JWT middleware
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(*Claims)
	return claims, ok && claims != nil
}

// CurrentUser returns the user resolved for this request, if any
func CurrentUser(ctx router.Context) (*User, bool) {
	return FromContext(ctx.Context())
}
