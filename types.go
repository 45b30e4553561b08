package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger is the structured logger used across the package. Arguments after
// the message are key/value pairs.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds attributes that are part of an auth session
type Session interface {
	Subject() string
	Issuer() string
	TokenID() string
	Expires() time.Time
	IssuedAt() time.Time
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	SessionFromToken(token string) (Session, error)
	CurrentUser(ctx context.Context, token string) (*User, error)
	UserFromSession(ctx context.Context, session Session) (*User, error)
}

// TokenService issues and validates signed access tokens.
type TokenService interface {
	TokenValidator
	Issue(subject string, ttl time.Duration) (string, error)
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, email, password string) (*User, error)
	FindIdentityByEmail(ctx context.Context, email string) (*User, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) { d.print("ERR", msg, args) }

func (d defLogger) Warn(msg string, args ...any) { d.print("WRN", msg, args) }

func (d defLogger) Info(msg string, args ...any) { d.print("INF", msg, args) }

func (d defLogger) Debug(msg string, args ...any) { d.print("DBG", msg, args) }

func (d defLogger) print(level, msg string, args []any) {
	var b strings.Builder
	b.WriteString("[" + level + "] AUTH " + msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	fmt.Println(b.String())
}

// DefaultLogger returns the printf based logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
