package jwtware_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadnest/leadnest-auth/middleware/jwtware"
)

type testClaims struct {
	sub string
}

func (c testClaims) Subject() string { return c.sub }

const validToken = "aaa.bbb.ccc"

func staticValidator(t *testing.T) jwtware.TokenValidator {
	t.Helper()
	return jwtware.TokenValidatorFunc(func(token string) (jwtware.Claims, error) {
		if token == validToken {
			return testClaims{sub: "owner@example.com"}, nil
		}
		return nil, errors.New("bad signature")
	})
}

func newServer() router.Server[*fiber.App] {
	return router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return a
	})
}

func newApp(t *testing.T, cfg jwtware.Config) *fiber.App {
	t.Helper()

	srv := newServer()
	srv.Router().Get("/me", func(ctx router.Context) error {
		claims, ok := jwtware.ClaimsFromContext(ctx, cfg.ContextKey)
		if !ok {
			return ctx.SendStatus(router.StatusInternalServerError)
		}
		return ctx.SendString(claims.Subject())
	}, jwtware.New(cfg))

	return srv.WrappedRouter()
}

func doRequest(t *testing.T, app *fiber.App, header string) (*http.Response, map[string]any, string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set(router.HeaderAuthorization, header)
	}

	res, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	body := map[string]any{}
	_ = json.Unmarshal(raw, &body)
	return res, body, string(raw)
}

func TestJWTWare_BasicHeaderExtraction(t *testing.T) {
	app := newApp(t, jwtware.Config{TokenValidator: staticValidator(t)})

	res, _, raw := doRequest(t, app, "Bearer "+validToken)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "owner@example.com", raw)
}

func TestJWTWare_SchemeIsCaseInsensitive(t *testing.T) {
	app := newApp(t, jwtware.Config{TokenValidator: staticValidator(t)})

	res, _, _ := doRequest(t, app, "bearer "+validToken)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestJWTWare_MissingToken(t *testing.T) {
	app := newApp(t, jwtware.Config{TokenValidator: staticValidator(t)})

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "scheme only", header: "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, body, _ := doRequest(t, app, tt.header)
			assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
			assert.Equal(t, "Bearer", res.Header.Get("WWW-Authenticate"))
			assert.Equal(t, "Not authenticated", body["detail"])
		})
	}
}

func TestJWTWare_InvalidTokenFormat(t *testing.T) {
	app := newApp(t, jwtware.Config{TokenValidator: staticValidator(t)})

	for _, token := range []string{"aaa.bbb", "aaa..ccc", "a.b.c.d"} {
		res, body, _ := doRequest(t, app, "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, res.StatusCode, token)
		assert.Equal(t, "Invalid token format", body["detail"])
	}
}

func TestJWTWare_ValidatorRejection(t *testing.T) {
	app := newApp(t, jwtware.Config{TokenValidator: staticValidator(t)})

	res, body, _ := doRequest(t, app, "Bearer xxx.yyy.zzz")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "Bearer", res.Header.Get("WWW-Authenticate"))
	assert.Equal(t, "Could not validate credentials", body["detail"])
}

func TestJWTWare_CustomContextKeyAndListeners(t *testing.T) {
	var seen string
	app := newApp(t, jwtware.Config{
		TokenValidator: staticValidator(t),
		ContextKey:     "claims",
		ValidationListeners: []jwtware.ValidationListener{
			func(ctx router.Context, claims jwtware.Claims) error {
				seen = claims.Subject()
				return nil
			},
		},
	})

	res, _, raw := doRequest(t, app, "Bearer "+validToken)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "owner@example.com", raw)
	assert.Equal(t, "owner@example.com", seen)
}

func TestJWTWare_ListenerErrorStopsRequest(t *testing.T) {
	app := newApp(t, jwtware.Config{
		TokenValidator: staticValidator(t),
		ValidationListeners: []jwtware.ValidationListener{
			func(ctx router.Context, claims jwtware.Claims) error {
				return errors.New("revoked")
			},
		},
	})

	res, _, _ := doRequest(t, app, "Bearer "+validToken)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestJWTWare_FilterSkips(t *testing.T) {
	srv := newServer()
	srv.Router().Get("/public", func(ctx router.Context) error {
		return ctx.SendString("ok")
	}, jwtware.New(jwtware.Config{
		TokenValidator: staticValidator(t),
		Filter:         func(ctx router.Context) bool { return ctx.Path() == "/public" },
	}))

	res, err := srv.WrappedRouter().Test(httptest.NewRequest(http.MethodGet, "/public", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestGetDefaultConfig_RequiresValidator(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.GetDefaultConfig(jwtware.Config{})
	})
}

func TestGetExtractors(t *testing.T) {
	extractors := jwtware.GetExtractors("header:Authorization, cookie:jwt, query:token, bogus")
	assert.Len(t, extractors, 3)

	srv := newServer()
	srv.Router().Get("/", func(ctx router.Context) error {
		raw, err := jwtware.ExtractRawTokenFromContext(ctx, extractors)
		if err != nil {
			return ctx.SendStatus(router.StatusUnauthorized)
		}
		return ctx.SendString(raw)
	})
	app := srv.WrappedRouter()

	req := httptest.NewRequest(http.MethodGet, "/?token=q.q.q", nil)
	res, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(res.Body)
	assert.Equal(t, "q.q.q", string(raw))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: "c.c.c"})
	res, err = app.Test(req)
	require.NoError(t, err)
	raw, _ = io.ReadAll(res.Body)
	assert.Equal(t, "c.c.c", string(raw))

	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}
