package jwtware

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-router"
	"github.com/leadnest/leadnest-auth/security"
)

var (
	defaultTokenLookup       = "header:" + router.HeaderAuthorization
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
	ErrInvalidTokenFormat    = errors.New("Invalid token format")
)

// Claims is the subset of token claims the middleware needs. It mirrors the
// auth package claims without importing it.
type Claims interface {
	Subject() string
}

// TokenValidator interface for validating tokens without import cycles
type TokenValidator interface {
	Validate(tokenString string) (Claims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (Claims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (Claims, error) {
	return f(tokenString)
}

// ValidationListener is invoked after a token has been validated.
type ValidationListener func(ctx router.Context, claims Claims) error

type Config struct {
	// Filter skips the middleware when it returns true
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	ContextKey     string
	TokenLookup    string
	AuthScheme     string

	// TokenValidator is required for token validation
	TokenValidator TokenValidator

	// ContextEnricher is an optional function to propagate claims to the
	// request's user context.
	ContextEnricher func(c context.Context, claims Claims) context.Context

	// ValidationListeners are invoked after token validation succeeds.
	ValidationListeners []ValidationListener
}

// New returns bearer token middleware. Requests without a token get 401,
// tokens that are not three dot separated segments get 403 and tokens that
// fail validation get 401.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		extractors := cfg.getExtractors()

		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw, err := ExtractRawTokenFromContext(ctx, extractors)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if !security.IsValidTokenFormat(raw) {
				return cfg.ErrorHandler(ctx, ErrInvalidTokenFormat)
			}

			claims, err := cfg.TokenValidator.Validate(raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if err := cfg.runValidationListeners(ctx, claims); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, claims)

			if cfg.ContextEnricher != nil {
				ctx.SetContext(cfg.ContextEnricher(ctx.Context(), claims))
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

// ClaimsFromContext returns the claims stored by the middleware
func ClaimsFromContext(ctx router.Context, key string) (Claims, bool) {
	if key == "" {
		key = "user"
	}
	claims, ok := ctx.Locals(key).(Claims)
	return claims, ok && claims != nil
}

// RawToken returns the bearer token of the request, if any
func RawToken(ctx router.Context) string {
	raw, _ := ExtractRawTokenFromContext(ctx, GetExtractors(defaultTokenLookup, "Bearer"))
	return raw
}

func ExtractRawTokenFromContext(ctx router.Context, extractors []JWTExtractor) (string, error) {
	var raw string
	err := ErrJWTMissingOrMalformed

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = DefaultErrorHandler
	}

	if cfg.TokenValidator == nil {
		panic("AUTH: JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

// DefaultErrorHandler answers with the JSON error body used by the API
func DefaultErrorHandler(ctx router.Context, err error) error {
	if errors.Is(err, ErrInvalidTokenFormat) {
		return ctx.JSON(router.StatusForbidden, map[string]string{
			"detail": ErrInvalidTokenFormat.Error(),
			"code":   "INVALID_TOKEN_FORMAT",
		})
	}

	ctx.SetHeader("WWW-Authenticate", "Bearer")

	if errors.Is(err, ErrJWTMissingOrMalformed) {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{
			"detail": "Not authenticated",
			"code":   "NOT_AUTHENTICATED",
		})
	}

	return ctx.JSON(router.StatusUnauthorized, map[string]string{
		"detail": "Could not validate credentials",
		"code":   "INVALID_TOKEN",
	})
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(ctx router.Context, claims Claims) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(ctx, claims); err != nil {
			return err
		}
	}
	return nil
}

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// header:Authorization,cookie:jwt,query:auth_token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

type JWTExtractor func(ctx router.Context) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	authScheme = strings.TrimSpace(authScheme)
	return func(ctx router.Context) (string, error) {
		a := ctx.Header(header)
		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			return strings.TrimSpace(a[l+1:]), nil
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(ctx router.Context) (string, error) {
		token := ctx.Query(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(ctx router.Context) (string, error) {
		token := ctx.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
