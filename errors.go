package auth

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeInvalidSignature   = "INVALID_SIGNATURE"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeInactiveUser       = "INACTIVE_USER"
	TextCodeValidation         = "VALIDATION_ERROR"
	TextCodeNotAuthenticated   = "NOT_AUTHENTICATED"
	TextCodeInvalidTokenFormat = "INVALID_TOKEN_FORMAT"
)

// ErrDuplicateEmail is returned when registering an email that already exists.
var ErrDuplicateEmail = errors.New("Email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(errors.CodeBadRequest)

// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
var ErrInvalidCredentials = errors.New("Incorrect email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired token is past its exp claim
var ErrTokenExpired = errors.New("Token has expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidSignature token signature does not match the server secret
var ErrInvalidSignature = errors.New("Token signature is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidSignature).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed token could not be parsed
var ErrTokenMalformed = errors.New("Could not validate credentials", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrNotAuthenticated no bearer token was presented
var ErrNotAuthenticated = errors.New("Not authenticated", errors.CategoryAuth).
	WithTextCode(TextCodeNotAuthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidTokenFormat the bearer token is not three dot separated segments
var ErrInvalidTokenFormat = errors.New("Invalid token format", errors.CategoryAuthz).
	WithTextCode(TextCodeInvalidTokenFormat).
	WithCode(errors.CodeForbidden)

// ErrInactiveUser the account exists but is disabled
var ErrInactiveUser = errors.New("Inactive user", errors.CategoryAuth).
	WithTextCode(TextCodeInactiveUser).
	WithCode(errors.CodeBadRequest)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// ErrWeakSigningKey the token secret is shorter than MinSigningKeyLength
var ErrWeakSigningKey = errors.New("signing key must be at least 32 bytes", errors.CategoryInternal).
	WithCode(errors.CodeInternal)

// NewValidationError reports a rejected input field. The field and reason
// are kept in the error metadata.
func NewValidationError(field, reason string) *errors.Error {
	return errors.New(field+": "+reason, errors.CategoryValidation).
		WithTextCode(TextCodeValidation).
		WithCode(errors.CodeBadRequest).
		WithMetadata(map[string]any{
			"field":  field,
			"reason": reason,
		})
}

// ValidationField returns the field and reason of a validation error.
func ValidationField(err error) (field, reason string, ok bool) {
	var richErr *errors.Error
	if !errors.As(err, &richErr) || richErr.Category != errors.CategoryValidation {
		return "", "", false
	}
	field, _ = richErr.Metadata["field"].(string)
	reason, _ = richErr.Metadata["reason"].(string)
	return field, reason, field != ""
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsInvalidSignatureError will check for tampered tokens
func IsInvalidSignatureError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidSignature) {
		return true
	}
	return strings.Contains(err.Error(), "signature is invalid")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// AsRichError converts any error into a rich error with an HTTP status code.
// Errors without a category are reported as internal failures.
func AsRichError(err error) *errors.Error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}
	return richErr
}

// StatusCode resolves the HTTP status for an error.
func StatusCode(err error) int {
	richErr := AsRichError(err)
	if richErr.Code != 0 {
		return richErr.Code
	}

	switch richErr.Category {
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryValidation, errors.CategoryBadInput, errors.CategoryConflict:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// IsInvalidCredentials reports a failed email and password check
func IsInvalidCredentials(err error) bool {
	return err != nil && errors.Is(err, ErrInvalidCredentials)
}
