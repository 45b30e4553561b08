package auth

import (
	"context"
	"path"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/leadnest/leadnest-auth/middleware/csrf"
	"github.com/leadnest/leadnest-auth/ratelimit"
	"github.com/leadnest/leadnest-auth/security"
)

// Registrar creates user accounts
type Registrar interface {
	Execute(ctx context.Context, msg RegisterUserMessage) (*User, error)
}

type AuthControllerRoutes struct {
	Register  string
	Login     string
	Me        string
	Test      string
	CSRFToken string
}

// DefaultAuthControllerRoutes returns the paths the controller mounts
func DefaultAuthControllerRoutes() *AuthControllerRoutes {
	return &AuthControllerRoutes{
		Register:  "/register",
		Login:     "/login",
		Me:        "/me",
		Test:      "/test",
		CSRFToken: "/csrf-token",
	}
}

type AuthController struct {
	Logger       Logger
	Auther       Authenticator
	Registrar    Registrar
	Routes       *AuthControllerRoutes
	ErrorHandler router.ErrorHandler

	// Protected runs before the routes that need a bearer token
	Protected []router.MiddlewareFunc
	// CSRF runs after Protected on the CSRF token route when set
	CSRF router.MiddlewareFunc
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Logger = normalizeLogger(logger)
		return ac
	}
}

func WithAuthenticator(auther Authenticator) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Auther = auther
		return ac
	}
}

func WithRegistrar(registrar Registrar) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Registrar = registrar
		return ac
	}
}

func WithProtected(handlers ...router.MiddlewareFunc) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Protected = append(ac.Protected, handlers...)
		return ac
	}
}

func WithCSRF(handler router.MiddlewareFunc) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.CSRF = handler
		return ac
	}
}

func WithControllerErrorHandler(handler router.ErrorHandler) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		if handler != nil {
			ac.ErrorHandler = handler
		}
		return ac
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: WriteError,
		Routes:       DefaultAuthControllerRoutes(),
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Registrar == nil {
		panic("Missing Registrar in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the auth endpoints on r
func RegisterAuthRoutes[T any](r router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	r.Post(controller.Routes.Register, controller.Register).
		SetName("auth.register")
	r.Post(controller.Routes.Login, controller.Login).
		SetName("auth.login")
	r.Get(controller.Routes.Me, controller.Me, controller.protected()...).
		SetName("auth.me")
	r.Get(controller.Routes.Test, controller.Test).
		SetName("auth.test")

	if controller.CSRF != nil {
		mw := append(controller.protected(), controller.CSRF)
		r.Get(controller.Routes.CSRFToken, controller.CSRFToken, mw...).
			SetName("auth.csrf")
	}

	return controller
}

// RateLimitAuthRoutes guards register and login under prefix, each route in
// its own bucket. It must be mounted before RegisterAuthRoutes.
func RateLimitAuthRoutes(app fiber.Router, prefix string, cfg ratelimit.Config) {
	routes := DefaultAuthControllerRoutes()

	for scope, route := range map[string]string{
		"register": routes.Register,
		"login":    routes.Login,
	} {
		scoped := cfg
		scoped.Scope = scope
		app.Post(path.Join("/", prefix, route), ratelimit.New(scoped))
	}
}

// RegisterHealthRoutes mounts the service root and health check
func RegisterHealthRoutes[T any](r router.Router[T], service string) {
	r.Get("/", func(ctx router.Context) error {
		return ctx.JSON(router.StatusOK, map[string]any{"ok": true, "service": service})
	}).SetName("root")

	r.Get("/health", func(ctx router.Context) error {
		return ctx.JSON(router.StatusOK, map[string]string{"status": "ok"})
	}).SetName("health")
}

func (a *AuthController) protected() []router.MiddlewareFunc {
	out := make([]router.MiddlewareFunc, 0, len(a.Protected)+1)
	for _, m := range a.Protected {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// RegistrationCreatePayload is the register request body
type RegistrationCreatePayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, security.PasswordByteLimit),
	)
}

// Register creates an account and answers with the new user
func (a *AuthController) Register(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Warn("register user parse payload", "error", err)
		return a.ErrorHandler(ctx, NewValidationError("body", "Invalid request body"))
	}

	payload.Email = security.SanitizeString(payload.Email)

	if err := payload.Validate(); err != nil {
		a.Logger.Warn("register user validate payload", "error", err)
		return a.ErrorHandler(ctx, validationErrorFromOzzo(err))
	}

	user, err := a.Registrar.Execute(ctx.Context(), RegisterUserMessage{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, user)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// TokenResponse is the body of a successful login
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for a bearer token
func (a *AuthController) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Warn("login parse payload", "error", err)
		return a.ErrorHandler(ctx, NewValidationError("body", "Invalid request body"))
	}

	payload.Email = security.SanitizeString(payload.Email)

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationErrorFromOzzo(err))
	}

	token, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// Me returns the user resolved by the Protected middleware
func (a *AuthController) Me(ctx router.Context) error {
	user, ok := CurrentUser(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrNotAuthenticated)
	}

	return ctx.JSON(router.StatusOK, user)
}

// Test lists the auth endpoints
func (a *AuthController) Test(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Auth router is working",
		"endpoints": []string{
			a.Routes.Register,
			a.Routes.Login,
			a.Routes.Me,
			a.Routes.Test,
		},
	})
}

// CSRFToken returns the token the CSRF middleware issued for this request
func (a *AuthController) CSRFToken(ctx router.Context) error {
	token, _ := ctx.Locals(csrf.DefaultContextKey).(string)
	return ctx.JSON(router.StatusOK, map[string]string{
		"csrf_token": token,
		"header":     csrf.DefaultHeaderName,
	})
}

// validationErrorFromOzzo reports the first failing field, in name order
func validationErrorFromOzzo(err error) error {
	verrs, ok := err.(validation.Errors)
	if !ok || len(verrs) == 0 {
		return NewValidationError("body", err.Error())
	}

	fields := make([]string, 0, len(verrs))
	for field := range verrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	field := fields[0]
	return NewValidationError(field, verrs[field].Error())
}
