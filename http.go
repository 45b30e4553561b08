package auth

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/leadnest/leadnest-auth/middleware/jwtware"
)

// DefaultContextKey is the locals key the bearer middleware stores claims under
const DefaultContextKey = "user"

// HeaderWWWAuthenticate carries the challenge on 401 responses
const HeaderWWWAuthenticate = "WWW-Authenticate"

// RouteAuthenticator builds the middleware guarding protected routes
type RouteAuthenticator struct {
	auth             Authenticator
	validator        TokenValidator
	contextKey       string
	Logger           Logger
	AuthErrorHandler router.ErrorHandler
	ErrorHandler     router.ErrorHandler
}

func NewHTTPAuthenticator(auther Authenticator, validator TokenValidator) *RouteAuthenticator {
	a := &RouteAuthenticator{
		auth:       auther,
		validator:  validator,
		contextKey: DefaultContextKey,
		Logger:     defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	a.Logger = normalizeLogger(logger)
	return a
}

// ContextKey is the locals key holding the request claims
func (a *RouteAuthenticator) ContextKey() string {
	return a.contextKey
}

// ProtectedRoute validates the bearer token and stores its claims in the
// request locals and user context. Listeners run after validation.
func (a *RouteAuthenticator) ProtectedRoute(listeners ...ValidationListener) router.MiddlewareFunc {
	cfg := jwtware.Config{
		ContextKey:      a.contextKey,
		ErrorHandler:    a.MakeClientRouteAuthErrorHandler(false),
		ContextEnricher: ContextEnricherAdapter,
		TokenValidator: jwtware.TokenValidatorFunc(func(token string) (jwtware.Claims, error) {
			claims, err := a.validator.Validate(token)
			if err != nil {
				return nil, err
			}
			return claims, nil
		}),
	}
	RegisterValidationListeners(&cfg, listeners...)

	return jwtware.New(cfg)
}

// LoadUser resolves the active user named by the token subject. It must run
// after ProtectedRoute.
func (a *RouteAuthenticator) LoadUser() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			claims, ok := GetRouterClaims(ctx, a.contextKey)
			if !ok {
				return a.ErrorHandler(ctx, ErrNotAuthenticated)
			}

			user, err := a.auth.UserFromSession(ctx.Context(), claims)
			if err != nil {
				if errors.Is(err, ErrInvalidCredentials) {
					// the account behind a valid token is gone
					err = ErrTokenMalformed
				}
				return a.ErrorHandler(ctx, err)
			}

			ctx.SetContext(WithContext(ctx.Context(), user))
			return ctx.Next()
		}
	}
}

// CSRFUser returns the token subject, used to bind CSRF tokens to a user
func (a *RouteAuthenticator) CSRFUser(ctx router.Context) (string, bool) {
	claims, ok := GetRouterClaims(ctx, a.contextKey)
	if !ok {
		return "", false
	}
	return claims.Subject(), claims.Subject() != ""
}

func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) router.ErrorHandler {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		switch {
		case errors.Is(err, jwtware.ErrInvalidTokenFormat):
			richErr = ErrInvalidTokenFormat
		case errors.Is(err, jwtware.ErrJWTMissingOrMalformed):
			richErr = ErrNotAuthenticated
		case IsTokenExpiredError(err):
			richErr = ErrTokenExpired
		case IsInvalidSignatureError(err):
			richErr = ErrInvalidSignature
		case errors.As(err, &richErr):
		default:
			richErr = ErrTokenMalformed
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) defaultAuthErrHandler(ctx router.Context, err error) error {
	richErr := AsRichError(err)

	a.Logger.Info(
		"Authentication error",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", ctx.OriginalURL(),
	)

	return WriteError(ctx, richErr)
}

func (a *RouteAuthenticator) defaultErrHandler(ctx router.Context, err error) error {
	richErr := AsRichError(err)

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(ctx, richErr)
	default:
		return WriteError(ctx, richErr)
	}
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// ErrorResponseFor maps err to its status code and body. Internal errors
// never leak their cause.
func ErrorResponseFor(err error) (int, ErrorResponse) {
	richErr := AsRichError(err)
	status := StatusCode(richErr)

	detail := richErr.Message
	if status >= router.StatusInternalServerError {
		detail = "An unexpected server error occurred"
	}

	return status, ErrorResponse{
		Detail: detail,
		Code:   richErr.TextCode,
	}
}

// WriteError renders err as an ErrorResponse. 401 responses carry a Bearer
// challenge.
func WriteError(ctx router.Context, err error) error {
	status, body := ErrorResponseFor(err)

	if status == router.StatusUnauthorized {
		ctx.SetHeader(HeaderWWWAuthenticate, "Bearer")
	}

	return ctx.JSON(status, body)
}
