package csrf

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSecureKey() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

func TestGenerateFormat(t *testing.T) {
	at := time.Unix(1700000000, 0)
	token := GenerateAt(newTestSecureKey(), "42", at)

	parts := strings.Split(token, ":")
	require.Len(t, parts, 3)
	assert.Equal(t, "42", parts[0])
	assert.Equal(t, "1700000000", parts[1])
	assert.Len(t, parts[2], 64)
}

func TestValidateRoundTrip(t *testing.T) {
	key := newTestSecureKey()
	token := Generate(key, "user@example.com")

	require.NoError(t, Validate(token, key, "user@example.com", DefaultMaxAge))
}

func TestValidateFailures(t *testing.T) {
	key := newTestSecureKey()
	issued := time.Unix(1700000000, 0)
	token := GenerateAt(key, "alice", issued)

	tampered := token[:len(token)-1] + "0"
	if tampered == token {
		tampered = token[:len(token)-1] + "1"
	}

	tests := []struct {
		name   string
		token  string
		secret []byte
		user   string
		now    time.Time
		want   error
	}{
		{name: "other user", token: token, secret: key, user: "bob", now: issued, want: ErrTokenMismatch},
		{name: "expired", token: token, secret: key, user: "alice", now: issued.Add(DefaultMaxAge + time.Second), want: ErrTokenExpired},
		{name: "tampered signature", token: tampered, secret: key, user: "alice", now: issued, want: ErrTokenMismatch},
		{name: "wrong secret", token: token, secret: []byte("another-secret-another-secret-00"), user: "alice", now: issued, want: ErrTokenMismatch},
		{name: "empty", token: "", secret: key, user: "alice", now: issued, want: ErrTokenMissing},
		{name: "no separators", token: "garbage", secret: key, user: "alice", now: issued, want: ErrTokenMalformed},
		{name: "bad timestamp", token: "alice:abc:ff", secret: key, user: "alice", now: issued, want: ErrTokenMalformed},
		{name: "missing secret", token: token, secret: nil, user: "alice", now: issued, want: ErrSecureKeyMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAt(tt.token, tt.secret, tt.user, DefaultMaxAge, tt.now)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateUserWithColons(t *testing.T) {
	key := newTestSecureKey()
	token := Generate(key, "urn:user:7")
	assert.NoError(t, Validate(token, key, "urn:user:7", time.Minute))
}

func newCSRFApp(key []byte, user string) *fiber.App {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return a
	})
	srv.Router().Get("/form", func(ctx router.Context) error {
		token, _ := ctx.Locals(DefaultContextKey).(string)
		return ctx.SendString(token)
	}, New(Config{
		SecureKey: key,
		UserResolver: func(ctx router.Context) (string, bool) {
			return user, user != ""
		},
	}))
	return srv.WrappedRouter()
}

func TestMiddlewareIssuesToken(t *testing.T) {
	key := newTestSecureKey()
	app := newCSRFApp(key, "alice")

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/form", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "no-store, max-age=0", res.Header.Get("Cache-Control"))

	token := res.Header.Get(DefaultHeaderName)
	require.NotEmpty(t, token)
	assert.NoError(t, Validate(token, key, "alice", DefaultMaxAge))
	assert.ErrorIs(t, Validate(token, key, "mallory", DefaultMaxAge), ErrTokenMismatch)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, token, string(body))
}

func TestMiddlewareRequiresUser(t *testing.T) {
	app := newCSRFApp(newTestSecureKey(), "")

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/form", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestMiddlewareRequiresKey(t *testing.T) {
	app := newCSRFApp(nil, "alice")

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/form", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Empty(t, res.Header.Get(DefaultHeaderName))
}
