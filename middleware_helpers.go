package auth

import (
	"context"

	"github.com/leadnest/leadnest-auth/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener so consumers can use auth helpers directly.
type ValidationListener = jwtware.ValidationListener

// ContextEnricherAdapter stores the validated claims in the standard context
// so handlers can use GetClaims.
func ContextEnricherAdapter(c context.Context, claims jwtware.Claims) context.Context {
	authClaims, ok := claims.(*Claims)
	if !ok || authClaims == nil {
		return c
	}
	return WithClaimsContext(c, authClaims)
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	for _, l := range listeners {
		if l != nil {
			cfg.ValidationListeners = append(cfg.ValidationListeners, l)
		}
	}
}
