package csrf

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

var (
	ErrTokenMismatch    = errors.New("CSRF token mismatch")
	ErrTokenMissing     = errors.New("CSRF token missing")
	ErrTokenExpired     = errors.New("CSRF token expired")
	ErrTokenMalformed   = errors.New("CSRF token malformed")
	ErrSecureKeyMissing = errors.New("CSRF secure key required")
	ErrUnknownUser      = errors.New("CSRF token requires an authenticated user")
)

// DefaultMaxAge is how long a token stays valid
const DefaultMaxAge = time.Hour

// DefaultContextKey is the default key for storing CSRF tokens in locals
const DefaultContextKey = "csrf_token"

// DefaultHeaderName is the default header name for CSRF tokens
const DefaultHeaderName = "X-CSRF-Token"

// Generate returns a token bound to userID, signed with secret. The format
// is "<user>:<unix seconds>:<hex hmac-sha256>".
func Generate(secret []byte, userID string) string {
	return GenerateAt(secret, userID, time.Now())
}

// GenerateAt is Generate with an explicit issue time
func GenerateAt(secret []byte, userID string, at time.Time) string {
	message := userID + ":" + strconv.FormatInt(at.Unix(), 10)
	return message + ":" + sign(secret, message)
}

// Validate checks that token was issued for userID with secret and is not
// older than maxAge.
func Validate(token string, secret []byte, userID string, maxAge time.Duration) error {
	return ValidateAt(token, secret, userID, maxAge, time.Now())
}

// ValidateAt is Validate with an explicit current time
func ValidateAt(token string, secret []byte, userID string, maxAge time.Duration, now time.Time) error {
	if len(secret) == 0 {
		return ErrSecureKeyMissing
	}

	if token == "" {
		return ErrTokenMissing
	}

	// the user part may itself contain colons, split from the right
	sigIdx := strings.LastIndex(token, ":")
	if sigIdx <= 0 {
		return ErrTokenMalformed
	}
	message, signature := token[:sigIdx], token[sigIdx+1:]

	tsIdx := strings.LastIndex(message, ":")
	if tsIdx < 0 {
		return ErrTokenMalformed
	}
	tokenUser, tsRaw := message[:tsIdx], message[tsIdx+1:]

	issued, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return ErrTokenMalformed
	}

	if tokenUser != userID {
		return ErrTokenMismatch
	}

	if now.Unix()-issued > int64(maxAge/time.Second) {
		return ErrTokenExpired
	}

	if !hmac.Equal([]byte(signature), []byte(sign(secret, message))) {
		return ErrTokenMismatch
	}

	return nil
}

func sign(secret []byte, message string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// Config defines the configuration for CSRF middleware
type Config struct {
	// Filter defines a function to skip middleware
	Filter func(router.Context) bool

	// SecureKey signs the tokens, required
	SecureKey []byte

	// HeaderName defines the header name for the token
	HeaderName string

	// ContextKey defines the key for storing the token in locals
	ContextKey string

	// UserResolver returns the identity tokens are bound to
	UserResolver func(router.Context) (string, bool)

	// ErrorHandler defines the error handler
	ErrorHandler router.ErrorHandler
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.UserResolver == nil {
		cfg.UserResolver = func(ctx router.Context) (string, bool) {
			return "", false
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(ctx router.Context, err error) error {
			return ctx.JSON(router.StatusForbidden, map[string]string{
				"detail": err.Error(),
				"code":   "CSRF_INVALID",
			})
		}
	}

	return cfg
}

// New creates a middleware that issues a token bound to the resolved user.
// The token is stored in locals and sent in the response header; clients
// echo it back and handlers check it with Validate.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := configDefault(config...)

		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			if len(cfg.SecureKey) == 0 {
				return cfg.ErrorHandler(ctx, ErrSecureKeyMissing)
			}

			userID, ok := cfg.UserResolver(ctx)
			if !ok || userID == "" {
				return cfg.ErrorHandler(ctx, ErrUnknownUser)
			}

			token := Generate(cfg.SecureKey, userID)
			ctx.Locals(cfg.ContextKey, token)
			ctx.SetHeader(cfg.HeaderName, token)
			ctx.SetHeader("Cache-Control", "no-store, max-age=0")

			return ctx.Next()
		}
	}
}
