package auth_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/leadnest/leadnest-auth"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTokenExpiredError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "Structured token expired error", err: auth.ErrTokenExpired, expected: true},
		{name: "Legacy token expired error (string match)", err: errors.New("some wrapper: token is expired"), expected: true},
		{name: "Different structured error", err: auth.ErrInvalidSignature, expected: false},
		{name: "Nil error", err: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.IsTokenExpiredError(tt.err))
		})
	}
}

func TestIsInvalidSignatureError(t *testing.T) {
	assert.True(t, auth.IsInvalidSignatureError(auth.ErrInvalidSignature))
	assert.True(t, auth.IsInvalidSignatureError(errors.New("token signature is invalid")))
	assert.False(t, auth.IsInvalidSignatureError(auth.ErrTokenExpired))
	assert.False(t, auth.IsInvalidSignatureError(nil))
}

func TestIsMalformedError(t *testing.T) {
	assert.True(t, auth.IsMalformedError(auth.ErrTokenMalformed))
	assert.True(t, auth.IsMalformedError(errors.New("token is malformed: bad segment")))
	assert.False(t, auth.IsMalformedError(auth.ErrInvalidCredentials))
	assert.False(t, auth.IsMalformedError(nil))
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "duplicate email", err: auth.ErrDuplicateEmail, want: http.StatusBadRequest},
		{name: "invalid credentials", err: auth.ErrInvalidCredentials, want: http.StatusUnauthorized},
		{name: "expired", err: auth.ErrTokenExpired, want: http.StatusUnauthorized},
		{name: "signature", err: auth.ErrInvalidSignature, want: http.StatusUnauthorized},
		{name: "malformed", err: auth.ErrTokenMalformed, want: http.StatusUnauthorized},
		{name: "inactive", err: auth.ErrInactiveUser, want: http.StatusBadRequest},
		{name: "token format", err: auth.ErrInvalidTokenFormat, want: http.StatusForbidden},
		{name: "validation", err: auth.NewValidationError("email", "Invalid email format"), want: http.StatusBadRequest},
		{name: "category only", err: goerrors.New("slow down", goerrors.CategoryRateLimit), want: http.StatusTooManyRequests},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.StatusCode(tt.err))
		})
	}
}

func TestNewValidationError(t *testing.T) {
	err := auth.NewValidationError("password", "Password must be at least 8 characters long")

	field, reason, ok := auth.ValidationField(err)
	require.True(t, ok)
	assert.Equal(t, "password", field)
	assert.Equal(t, "Password must be at least 8 characters long", reason)
	assert.Equal(t, auth.TextCodeValidation, err.TextCode)

	_, _, ok = auth.ValidationField(auth.ErrDuplicateEmail)
	assert.False(t, ok)
}

func TestAsRichErrorWrapsUnknown(t *testing.T) {
	rich := auth.AsRichError(errors.New("driver exploded"))
	assert.Equal(t, goerrors.CategoryInternal, rich.Category)
	assert.Equal(t, http.StatusInternalServerError, auth.StatusCode(rich))

	assert.Same(t, auth.ErrDuplicateEmail, auth.AsRichError(auth.ErrDuplicateEmail))
}

func TestDuplicateEmailMessage(t *testing.T) {
	assert.Equal(t, "Email already registered", auth.ErrDuplicateEmail.Message)
	assert.Equal(t, auth.TextCodeDuplicateEmail, auth.ErrDuplicateEmail.TextCode)
}
