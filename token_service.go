package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// MinSigningKeyLength is the shortest HMAC secret we accept
const MinSigningKeyLength = 32

// DefaultTokenTTL matches ACCESS_TOKEN_EXPIRE_MINUTES=30
const DefaultTokenTTL = 30 * time.Minute

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey   []byte
	keyID        string
	previousKeys [][]byte
	keys         *keyfunc.JWKS
	issuer       string
	logger       Logger
	now          func() time.Time
}

// TokenServiceOption configures a TokenServiceImpl
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenIssuer sets the iss claim and requires it on validation
func WithTokenIssuer(issuer string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.issuer = issuer
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.logger = normalizeLogger(logger)
	}
}

// WithTokenClock overrides the clock used for iat/exp
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// WithPreviousSigningKeys keeps tokens signed with retired secrets valid
// while a new secret rolls out. Issuing always uses the current key.
func WithPreviousSigningKeys(keys ...[]byte) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		for _, key := range keys {
			if len(key) > 0 {
				ts.previousKeys = append(ts.previousKeys, append([]byte(nil), key...))
			}
		}
	}
}

// SigningKeyID derives the kid header stamped on tokens signed with key
func SigningKeyID(key []byte) string {
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:8])
}

// NewTokenService creates a new TokenService instance. The signing key and
// every previous key must be at least MinSigningKeyLength bytes.
func NewTokenService(signingKey []byte, opts ...TokenServiceOption) (*TokenServiceImpl, error) {
	if len(signingKey) < MinSigningKeyLength {
		return nil, ErrWeakSigningKey
	}

	ts := &TokenServiceImpl{
		signingKey: append([]byte(nil), signingKey...),
		keyID:      SigningKeyID(signingKey),
		logger:     defLogger{},
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	givenKeys := map[string]keyfunc.GivenKey{
		ts.keyID: keyfunc.NewGivenHMAC(ts.signingKey, keyfunc.GivenKeyOptions{
			Algorithm: jwt.SigningMethodHS256.Alg(),
		}),
	}

	for _, key := range ts.previousKeys {
		if len(key) < MinSigningKeyLength {
			return nil, ErrWeakSigningKey
		}
		kid := SigningKeyID(key)
		if _, ok := givenKeys[kid]; ok {
			continue
		}
		givenKeys[kid] = keyfunc.NewGivenHMAC(key, keyfunc.GivenKeyOptions{
			Algorithm: jwt.SigningMethodHS256.Alg(),
		})
	}

	ts.keys = keyfunc.NewGiven(givenKeys)

	return ts, nil
}

// KeyID is the kid header of tokens this service issues
func (ts *TokenServiceImpl) KeyID() string {
	return ts.keyID
}

var _ TokenService = (*TokenServiceImpl)(nil)

// Issue signs a token for subject that expires after ttl. A zero ttl
// produces a token that is already expired.
func (ts *TokenServiceImpl) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", NewValidationError("subject", "must not be empty")
	}

	if ttl < 0 {
		return "", NewValidationError("ttl", "must be non-negative")
	}

	now := ts.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *Claims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = ts.keyID

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string. The signature is checked
// before any claim, so a tampered expired token reports ErrInvalidSignature.
// The kid header selects the current or a previous key, tokens without one
// are checked against the current key.
func (ts *TokenServiceImpl) Validate(tokenString string) (*Claims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		if _, ok := t.Header["kid"]; !ok {
			return ts.signingKey, nil
		}
		return ts.keys.Keyfunc(t)
	}, parserOptions...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid),
			errors.Is(err, keyfunc.ErrKIDNotFound):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			ts.logger.Debug("TokenService validate rejected token", "error", err)
			return nil, ErrTokenMalformed
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return nil, ErrTokenMalformed
	}

	// exp is second precision, a token issued with ttl=0 lands exactly on now
	if !ts.now().Before(claims.Expires()) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}
