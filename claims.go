package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the signed claim set of an access token. The subject is the
// user email.
type Claims struct {
	jwt.RegisteredClaims
}

// Verify interface compliance
var _ Session = (*Claims)(nil)

// Subject returns the subject claim
func (c *Claims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Issuer returns the issuer claim
func (c *Claims) Issuer() string {
	return c.RegisteredClaims.Issuer
}

// TokenID returns the jti claim
func (c *Claims) TokenID() string {
	return c.RegisteredClaims.ID
}

// Expires returns the expiration time
func (c *Claims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *Claims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
